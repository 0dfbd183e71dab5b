package borrower

import (
	"context"
	"credit-ledger/internal/event"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, b *Borrower) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, borrowerID uuid.UUID) (*Borrower, error) {
	args := m.Called(ctx, borrowerID)
	switch v := args.Get(0).(type) {
	case func() *Borrower:
		return v(), args.Error(1)
	case *Borrower:
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) ExistsByAadharOrEmail(ctx context.Context, aadharID, email string) (bool, bool, error) {
	args := m.Called(ctx, aadharID, email)
	return args.Bool(0), args.Bool(1), args.Error(2)
}

func (m *MockRepository) UpdateCreditScore(ctx context.Context, borrowerID uuid.UUID, score int) error {
	return m.Called(ctx, borrowerID, score).Error(0)
}

type MockHistorySource struct {
	mock.Mock
}

func (m *MockHistorySource) NetBalance(ctx context.Context, aadharID string) (decimal.Decimal, bool, error) {
	args := m.Called(ctx, aadharID)
	return args.Get(0).(decimal.Decimal), args.Bool(1), args.Error(2)
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
