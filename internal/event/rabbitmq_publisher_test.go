package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

func (m *mockChannel) Close() error {
	return m.Called().Error(0)
}

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestPublishPaymentApplied(t *testing.T) {
	ctx := context.Background()
	ch := new(mockChannel)
	publisher := newPublisher(func() (amqpChannel, error) { return ch, nil }, "credit-ledger", testLogger)

	evt := PaymentAppliedEvent{
		PaymentID:        uuid.New(),
		LoanID:           uuid.New(),
		Amount:           decimal.RequireFromString("225"),
		PrincipalPortion: decimal.RequireFromString("150"),
		InterestPortion:  decimal.RequireFromString("75"),
		PrincipalBalance: decimal.RequireFromString("4850"),
		Timestamp:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	ch.On("PublishWithContext", ctx, "credit-ledger", RoutingKeyPaymentApplied, false, false,
		mock.MatchedBy(func(msg amqp.Publishing) bool {
			var decoded map[string]any
			if err := json.Unmarshal(msg.Body, &decoded); err != nil {
				return false
			}
			return msg.ContentType == "application/json" &&
				msg.DeliveryMode == amqp.Persistent &&
				msg.AppId == publisherAppID &&
				decoded["amount"] == "225" &&
				decoded["loanId"] == evt.LoanID.String()
		})).Return(nil).Once()
	ch.On("Close").Return(nil).Once()

	err := publisher.PublishPaymentApplied(ctx, evt)
	require.NoError(t, err)
	ch.AssertExpectations(t)
}

func TestPublishReturnsChannelError(t *testing.T) {
	publisher := newPublisher(func() (amqpChannel, error) { return nil, errors.New("connection closed") }, "credit-ledger", testLogger)

	err := publisher.PublishLoanClosed(context.Background(), LoanClosedEvent{LoanID: uuid.New()})
	assert.ErrorContains(t, err, "failed to open channel")
}

func TestPublishReturnsBrokerError(t *testing.T) {
	ctx := context.Background()
	ch := new(mockChannel)
	publisher := newPublisher(func() (amqpChannel, error) { return ch, nil }, "credit-ledger", testLogger)

	ch.On("PublishWithContext", ctx, "credit-ledger", RoutingKeyBillGenerated, false, false, mock.Anything).
		Return(errors.New("channel/connection is not open")).Once()
	ch.On("Close").Return(nil).Once()

	err := publisher.PublishBillGenerated(ctx, BillGeneratedEvent{BillID: uuid.New()})
	assert.ErrorContains(t, err, "failed to publish message")
	ch.AssertExpectations(t)
}

func TestNewRabbitMQEventPublisherValidatesArguments(t *testing.T) {
	_, err := NewRabbitMQEventPublisher(nil, "credit-ledger", testLogger)
	assert.Error(t, err)
}

func TestLogPublisherNeverFails(t *testing.T) {
	p := NewLogPublisher(testLogger)
	ctx := context.Background()

	assert.NoError(t, p.PublishBorrowerRegistered(ctx, BorrowerRegisteredEvent{BorrowerID: uuid.New()}))
	assert.NoError(t, p.PublishLoanOriginated(ctx, LoanOriginatedEvent{LoanID: uuid.New()}))
	assert.NoError(t, p.PublishPaymentApplied(ctx, PaymentAppliedEvent{PaymentID: uuid.New()}))
	assert.NoError(t, p.PublishLoanClosed(ctx, LoanClosedEvent{LoanID: uuid.New()}))
	assert.NoError(t, p.PublishBillGenerated(ctx, BillGeneratedEvent{BillID: uuid.New()}))
}
