package borrower

import (
	"credit-ledger/internal/pkg/apperrors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Same rules as the registration request tags.
const (
	aadharRule = "required,len=12,number"
	emailRule  = "required,email"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var monthsInYear = decimal.NewFromInt(12)

type Borrower struct {
	ID           uuid.UUID
	AadharID     string
	Name         string
	Email        string
	AnnualIncome decimal.Decimal
	CreditScore  *int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type RegisterParams struct {
	AadharID     string
	Name         string
	Email        string
	AnnualIncome decimal.Decimal
}

// NewBorrower validates the registration fields and returns an unscored borrower with a fresh ID.
func NewBorrower(p RegisterParams) (*Borrower, error) {
	aadharID := strings.TrimSpace(p.AadharID)
	name := strings.TrimSpace(p.Name)
	email := strings.ToLower(strings.TrimSpace(p.Email))

	if err := validate.Var(aadharID, aadharRule); err != nil {
		return nil, apperrors.NewValidationError("aadharId", "must be exactly 12 digits")
	}
	if name == "" {
		return nil, apperrors.NewValidationError("name", "cannot be empty")
	}
	if err := validate.Var(email, emailRule); err != nil {
		return nil, apperrors.NewValidationError("email", "must be a valid email address")
	}
	if !p.AnnualIncome.IsPositive() {
		return nil, apperrors.NewValidationError("annualIncome", "must be greater than zero")
	}

	return &Borrower{
		ID:           uuid.New(),
		AadharID:     aadharID,
		Name:         name,
		Email:        email,
		AnnualIncome: p.AnnualIncome,
	}, nil
}

func (b *Borrower) MonthlyIncome() decimal.Decimal {
	return b.AnnualIncome.Div(monthsInYear)
}

func (b *Borrower) IsScored() bool {
	return b.CreditScore != nil
}
