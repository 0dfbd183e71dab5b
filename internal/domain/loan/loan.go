package loan

import (
	"credit-ledger/internal/pkg/apperrors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusClosed   Status = "CLOSED"
	StatusRejected Status = "REJECTED"
)

type Type string

const TypeCreditCard Type = "CREDIT_CARD"

// ParseType accepts the product code or its display name.
func ParseType(s string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CREDIT_CARD", "CREDIT CARD LOAN":
		return TypeCreditCard, nil
	}
	return "", apperrors.NewValidationError("loanType", fmt.Sprintf("unsupported loan type %q", s))
}

type BillStatus string

const (
	BillStatusGenerated     BillStatus = "GENERATED"
	BillStatusPartiallyPaid BillStatus = "PARTIALLY_PAID"
	BillStatusPaid          BillStatus = "PAID"
	BillStatusOverdue       BillStatus = "OVERDUE"
)

type PaymentStatus string

const PaymentStatusCompleted PaymentStatus = "COMPLETED"

type Loan struct {
	ID               uuid.UUID
	BorrowerID       uuid.UUID
	Type             Type
	Amount           decimal.Decimal
	AnnualRate       decimal.Decimal
	TermMonths       int
	DisbursementDate time.Time
	Status           Status
	PrincipalBalance decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Installments     []Installment
}

func (l *Loan) IsActive() bool {
	return l.Status == StatusActive
}

type Installment struct {
	ID        int64
	LoanID    uuid.UUID
	Sequence  int
	DueDate   time.Time
	AmountDue decimal.Decimal
	IsPaid    bool
	PaymentID *uuid.UUID
	PaidAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

type DailyAccrual struct {
	ID               int64
	LoanID           uuid.UUID
	AccrualDate      time.Time
	InterestAmount   decimal.Decimal
	PrincipalBalance decimal.Decimal
	CreatedAt        time.Time
}

type Bill struct {
	ID              uuid.UUID
	LoanID          uuid.UUID
	BillingDate     time.Time
	DueDate         time.Time
	PrincipalDue    decimal.Decimal
	InterestAccrued decimal.Decimal
	MinDue          decimal.Decimal
	PastDue         decimal.Decimal
	TotalDue        decimal.Decimal
	AmountPaid      decimal.Decimal
	Status          BillStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Outstanding is what remains unpaid on the bill, never negative.
func (b *Bill) Outstanding() decimal.Decimal {
	rest := b.TotalDue.Sub(b.AmountPaid)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

type Payment struct {
	ID               uuid.UUID
	LoanID           uuid.UUID
	InstallmentID    int64
	Amount           decimal.Decimal
	PrincipalPortion decimal.Decimal
	InterestPortion  decimal.Decimal
	Status           PaymentStatus
	PaidAt           time.Time
	CreatedAt        time.Time
}

// DateOf strips the clock from t and pins it to UTC midnight of the same calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func AddDays(t time.Time, days int) time.Time {
	return DateOf(t).AddDate(0, 0, days)
}

// DaysBetween counts whole calendar days from -> to.
func DaysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}
