package loan

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository persists loans and their ledger rows. Methods suffixed InTx run inside a caller
// transaction; LockLoanInTx must be the first call of every mutating transaction.
type Repository interface {
	CreateLoan(ctx context.Context, loan *Loan, installments []Installment) error

	GetLoanByID(ctx context.Context, loanID uuid.UUID) (*Loan, error)

	GetInstallments(ctx context.Context, loanID uuid.UUID) ([]Installment, error)

	ListPayments(ctx context.Context, loanID uuid.UUID) ([]Payment, error)

	ListBills(ctx context.Context, loanID uuid.UUID) ([]Bill, error)

	GetAllActiveLoanIDs(ctx context.Context) ([]uuid.UUID, error)

	LockLoanInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (*Loan, error)

	// InsertAccrualInTx reports false when an accrual already exists for the loan and date.
	InsertAccrualInTx(ctx context.Context, tx pgx.Tx, accrual *DailyAccrual) (bool, error)

	SumAccrualsInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID, from, to time.Time) (decimal.Decimal, error)

	// FindLatestBillInTx returns nil, nil when the loan has never been billed.
	FindLatestBillInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (*Bill, error)

	// FindLatestOpenBillInTx returns nil, nil when no GENERATED or PARTIALLY_PAID bill exists.
	FindLatestOpenBillInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (*Bill, error)

	CreateBillInTx(ctx context.Context, tx pgx.Tx, bill *Bill) error

	UpdateBillPaymentInTx(ctx context.Context, tx pgx.Tx, bill *Bill) error

	FindEarliestUnpaidInstallmentInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (*Installment, error)

	CountUnpaidInstallmentsInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (int, error)

	CreatePaymentInTx(ctx context.Context, tx pgx.Tx, payment *Payment) error

	MarkInstallmentPaidInTx(ctx context.Context, tx pgx.Tx, installmentID int64, paymentID uuid.UUID, paidAt time.Time) error

	UpdatePrincipalBalanceInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID, balance decimal.Decimal) error

	UpdateLoanStatusInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID, status Status) error

	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error
}
