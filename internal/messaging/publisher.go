package messaging

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/cassiomorais/ordersaga/internal/infrastructure/observability"
	infraRedis "github.com/cassiomorais/ordersaga/internal/infrastructure/redis"
	"github.com/cassiomorais/ordersaga/pkg/retry"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// StreamPublisher is the broker append operation the publishers need.
type StreamPublisher interface {
	Publish(ctx context.Context, stream string, values map[string]any) error
}

// RequestPublisher serializes payment requests and appends them to the
// payment-request stream with the saga message metadata. Transport runs
// behind a circuit breaker with a bounded in-call retry; both serialization
// and transport problems surface as ErrMessagePublish so the caller's
// attempt accounting sees a single failure kind.
type RequestPublisher struct {
	producer StreamPublisher
	breaker  *gobreaker.CircuitBreaker[any]
	ttl      time.Duration
	timeout  time.Duration
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

func NewRequestPublisher(producer StreamPublisher, ttl, timeout time.Duration, metrics *observability.Metrics, logger zerolog.Logger) *RequestPublisher {
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "payment-request-publisher",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &RequestPublisher{
		producer: producer,
		breaker:  breaker,
		ttl:      ttl,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
	}
}

// PublishRequest sends one payment request tagged with the attempt's
// transaction id.
func (p *RequestPublisher) PublishRequest(ctx context.Context, msg PaymentRequestMessage) error {
	values, err := envelope(msg, p.ttl)
	if err != nil {
		return fmt.Errorf("%w: %v", domainErrors.ErrMessagePublish, err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err = p.breaker.Execute(func() (any, error) {
		return nil, retry.Do(publishCtx, retry.Config{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2.0,
			OnRetry: func(attempt uint, err error) {
				p.logger.Debug().
					Uint("attempt", attempt).
					Err(err).
					Str("transaction_id", msg.TransactionID.String()).
					Msg("Publish attempt failed, retrying")
			},
		}, func() error {
			return p.producer.Publish(publishCtx, infraRedis.PaymentRequestStream, values)
		})
	})
	if err != nil {
		p.metrics.MessagesPublishedTotal.WithLabelValues(infraRedis.PaymentRequestStream, "error").Inc()
		p.logger.Error().
			Err(err).
			Str("order_id", msg.OrderID.String()).
			Str("transaction_id", msg.TransactionID.String()).
			Msg("Failed to publish payment request")
		return fmt.Errorf("%w: %v", domainErrors.ErrMessagePublish, err)
	}

	p.metrics.MessagesPublishedTotal.WithLabelValues(infraRedis.PaymentRequestStream, "published").Inc()
	p.logger.Info().
		Str("event_type", eventTypePaymentRequest).
		Str("order_id", msg.OrderID.String()).
		Str("transaction_id", msg.TransactionID.String()).
		Time("timestamp", msg.Timestamp).
		Msg("Payment request published")
	return nil
}
