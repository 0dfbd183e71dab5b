package dto

import (
	"credit-ledger/internal/domain/borrower"
	"credit-ledger/internal/pkg/apperrors"
	"credit-ledger/internal/pkg/money"
	"time"

	"github.com/shopspring/decimal"
)

type RegisterBorrowerRequest struct {
	AadharID     string `json:"aadharId" validate:"required,len=12,number"`
	Name         string `json:"name" validate:"required,max=255"`
	Email        string `json:"email" validate:"required,email"`
	AnnualIncome string `json:"annualIncome" validate:"required,numeric"`
}

func (r RegisterBorrowerRequest) ToParams() (borrower.RegisterParams, error) {
	income, err := decimal.NewFromString(r.AnnualIncome)
	if err != nil {
		return borrower.RegisterParams{}, apperrors.NewValidationError("annualIncome", "must be a number")
	}
	return borrower.RegisterParams{
		AadharID:     r.AadharID,
		Name:         r.Name,
		Email:        r.Email,
		AnnualIncome: income,
	}, nil
}

type BorrowerResponse struct {
	BorrowerID   string    `json:"borrowerId"`
	AadharID     string    `json:"aadharId"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	AnnualIncome string    `json:"annualIncome"`
	CreditScore  *int      `json:"creditScore"`
	CreatedAt    time.Time `json:"createdAt"`
}

func NewBorrowerResponse(b *borrower.Borrower) BorrowerResponse {
	return BorrowerResponse{
		BorrowerID:   b.ID.String(),
		AadharID:     b.AadharID,
		Name:         b.Name,
		Email:        b.Email,
		AnnualIncome: money.Format(b.AnnualIncome),
		CreditScore:  b.CreditScore,
		CreatedAt:    b.CreatedAt,
	}
}

type ScoreResponse struct {
	BorrowerID  string `json:"borrowerId"`
	CreditScore *int   `json:"creditScore"`
}
