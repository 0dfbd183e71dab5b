package loan

import (
	"context"
	"credit-ledger/internal/domain/borrower"
	"credit-ledger/internal/event"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

type TxMock struct {
	pgx.Tx
}

func (m *MockRepository) CreateLoan(ctx context.Context, loan *Loan, installments []Installment) error {
	return m.Called(ctx, loan, installments).Error(0)
}

func (m *MockRepository) GetLoanByID(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	args := m.Called(ctx, loanID)
	l, _ := args.Get(0).(*Loan)
	return l, args.Error(1)
}

func (m *MockRepository) GetInstallments(ctx context.Context, loanID uuid.UUID) ([]Installment, error) {
	args := m.Called(ctx, loanID)
	out, _ := args.Get(0).([]Installment)
	return out, args.Error(1)
}

func (m *MockRepository) ListPayments(ctx context.Context, loanID uuid.UUID) ([]Payment, error) {
	args := m.Called(ctx, loanID)
	out, _ := args.Get(0).([]Payment)
	return out, args.Error(1)
}

func (m *MockRepository) ListBills(ctx context.Context, loanID uuid.UUID) ([]Bill, error) {
	args := m.Called(ctx, loanID)
	out, _ := args.Get(0).([]Bill)
	return out, args.Error(1)
}

func (m *MockRepository) GetAllActiveLoanIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]uuid.UUID)
	return out, args.Error(1)
}

func (m *MockRepository) LockLoanInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (*Loan, error) {
	args := m.Called(ctx, tx, loanID)
	l, _ := args.Get(0).(*Loan)
	return l, args.Error(1)
}

func (m *MockRepository) InsertAccrualInTx(ctx context.Context, tx pgx.Tx, accrual *DailyAccrual) (bool, error) {
	args := m.Called(ctx, tx, accrual)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) SumAccrualsInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, tx, loanID, from, to)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockRepository) FindLatestBillInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (*Bill, error) {
	args := m.Called(ctx, tx, loanID)
	b, _ := args.Get(0).(*Bill)
	return b, args.Error(1)
}

func (m *MockRepository) FindLatestOpenBillInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (*Bill, error) {
	args := m.Called(ctx, tx, loanID)
	b, _ := args.Get(0).(*Bill)
	return b, args.Error(1)
}

func (m *MockRepository) CreateBillInTx(ctx context.Context, tx pgx.Tx, bill *Bill) error {
	return m.Called(ctx, tx, bill).Error(0)
}

func (m *MockRepository) UpdateBillPaymentInTx(ctx context.Context, tx pgx.Tx, bill *Bill) error {
	return m.Called(ctx, tx, bill).Error(0)
}

func (m *MockRepository) FindEarliestUnpaidInstallmentInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (*Installment, error) {
	args := m.Called(ctx, tx, loanID)
	inst, _ := args.Get(0).(*Installment)
	return inst, args.Error(1)
}

func (m *MockRepository) CountUnpaidInstallmentsInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID) (int, error) {
	args := m.Called(ctx, tx, loanID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) CreatePaymentInTx(ctx context.Context, tx pgx.Tx, payment *Payment) error {
	return m.Called(ctx, tx, payment).Error(0)
}

func (m *MockRepository) MarkInstallmentPaidInTx(ctx context.Context, tx pgx.Tx, installmentID int64, paymentID uuid.UUID, paidAt time.Time) error {
	return m.Called(ctx, tx, installmentID, paymentID, paidAt).Error(0)
}

func (m *MockRepository) UpdatePrincipalBalanceInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID, balance decimal.Decimal) error {
	return m.Called(ctx, tx, loanID, balance).Error(0)
}

func (m *MockRepository) UpdateLoanStatusInTx(ctx context.Context, tx pgx.Tx, loanID uuid.UUID, status Status) error {
	return m.Called(ctx, tx, loanID, status).Error(0)
}

func (m *MockRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(pgx.Tx)
	return tx, args.Error(1)
}

func (m *MockRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	return m.Called(ctx, tx).Error(0)
}

type MockBorrowerService struct {
	mock.Mock
}

func (m *MockBorrowerService) Register(ctx context.Context, p borrower.RegisterParams) (*borrower.Borrower, error) {
	args := m.Called(ctx, p)
	b, _ := args.Get(0).(*borrower.Borrower)
	return b, args.Error(1)
}

func (m *MockBorrowerService) GetBorrower(ctx context.Context, borrowerID uuid.UUID) (*borrower.Borrower, error) {
	args := m.Called(ctx, borrowerID)
	b, _ := args.Get(0).(*borrower.Borrower)
	return b, args.Error(1)
}

func (m *MockBorrowerService) Score(ctx context.Context, borrowerID uuid.UUID) (*borrower.Borrower, error) {
	args := m.Called(ctx, borrowerID)
	b, _ := args.Get(0).(*borrower.Borrower)
	return b, args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishBorrowerRegistered(ctx context.Context, e event.BorrowerRegisteredEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockEventPublisher) PublishLoanOriginated(ctx context.Context, e event.LoanOriginatedEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockEventPublisher) PublishPaymentApplied(ctx context.Context, e event.PaymentAppliedEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockEventPublisher) PublishLoanClosed(ctx context.Context, e event.LoanClosedEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockEventPublisher) PublishBillGenerated(ctx context.Context, e event.BillGeneratedEvent) error {
	return m.Called(ctx, e).Error(0)
}
