package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoutingKeyBorrowerRegistered = "borrower.registered"
	RoutingKeyLoanOriginated     = "loan.originated"
	RoutingKeyPaymentApplied     = "loan.payment.applied"
	RoutingKeyLoanClosed         = "loan.closed"
	RoutingKeyBillGenerated      = "bill.generated"
)

// EventPublisher emits ledger events after the state change they describe has been committed.
type EventPublisher interface {
	PublishBorrowerRegistered(ctx context.Context, event BorrowerRegisteredEvent) error
	PublishLoanOriginated(ctx context.Context, event LoanOriginatedEvent) error
	PublishPaymentApplied(ctx context.Context, event PaymentAppliedEvent) error
	PublishLoanClosed(ctx context.Context, event LoanClosedEvent) error
	PublishBillGenerated(ctx context.Context, event BillGeneratedEvent) error
}

type BorrowerRegisteredEvent struct {
	BorrowerID  uuid.UUID `json:"borrowerId"`
	CreditScore *int      `json:"creditScore,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type LoanOriginatedEvent struct {
	LoanID           uuid.UUID       `json:"loanId"`
	BorrowerID       uuid.UUID       `json:"borrowerId"`
	Amount           decimal.Decimal `json:"amount"`
	AnnualRate       decimal.Decimal `json:"annualRate"`
	TermMonths       int             `json:"termMonths"`
	DisbursementDate string          `json:"disbursementDate"`
	Timestamp        time.Time       `json:"timestamp"`
}

type PaymentAppliedEvent struct {
	PaymentID        uuid.UUID       `json:"paymentId"`
	LoanID           uuid.UUID       `json:"loanId"`
	Amount           decimal.Decimal `json:"amount"`
	PrincipalPortion decimal.Decimal `json:"principalPortion"`
	InterestPortion  decimal.Decimal `json:"interestPortion"`
	PrincipalBalance decimal.Decimal `json:"principalBalance"`
	Timestamp        time.Time       `json:"timestamp"`
}

type LoanClosedEvent struct {
	LoanID     uuid.UUID `json:"loanId"`
	BorrowerID uuid.UUID `json:"borrowerId"`
	Timestamp  time.Time `json:"timestamp"`
}

type BillGeneratedEvent struct {
	BillID      uuid.UUID       `json:"billId"`
	LoanID      uuid.UUID       `json:"loanId"`
	BillingDate string          `json:"billingDate"`
	DueDate     string          `json:"dueDate"`
	MinDue      decimal.Decimal `json:"minDue"`
	TotalDue    decimal.Decimal `json:"totalDue"`
	Timestamp   time.Time       `json:"timestamp"`
}
