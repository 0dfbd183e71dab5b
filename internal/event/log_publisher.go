package event

import (
	"context"
	"log/slog"
)

// LogPublisher stands in for the broker when RabbitMQ is disabled; events are only logged.
type LogPublisher struct {
	logger *slog.Logger
}

var _ EventPublisher = (*LogPublisher)(nil)

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With("component", "LogPublisher")}
}

func (p *LogPublisher) log(ctx context.Context, routingKey string, payload any) error {
	p.logger.InfoContext(ctx, "Event emitted", slog.String("routingKey", routingKey), slog.Any("payload", payload))
	return nil
}

func (p *LogPublisher) PublishBorrowerRegistered(ctx context.Context, event BorrowerRegisteredEvent) error {
	return p.log(ctx, RoutingKeyBorrowerRegistered, event)
}

func (p *LogPublisher) PublishLoanOriginated(ctx context.Context, event LoanOriginatedEvent) error {
	return p.log(ctx, RoutingKeyLoanOriginated, event)
}

func (p *LogPublisher) PublishPaymentApplied(ctx context.Context, event PaymentAppliedEvent) error {
	return p.log(ctx, RoutingKeyPaymentApplied, event)
}

func (p *LogPublisher) PublishLoanClosed(ctx context.Context, event LoanClosedEvent) error {
	return p.log(ctx, RoutingKeyLoanClosed, event)
}

func (p *LogPublisher) PublishBillGenerated(ctx context.Context, event BillGeneratedEvent) error {
	return p.log(ctx, RoutingKeyBillGenerated, event)
}
