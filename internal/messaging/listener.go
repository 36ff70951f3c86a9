package messaging

import (
	"context"
	"errors"
	"time"

	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/cassiomorais/ordersaga/internal/domain/order"
	"github.com/cassiomorais/ordersaga/internal/domain/retry"
	"github.com/cassiomorais/ordersaga/internal/infrastructure/observability"
	infraRedis "github.com/cassiomorais/ordersaga/internal/infrastructure/redis"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// TransactionManager is the transactional boundary listeners run inside.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderLocker serializes processing per order id so a confirmation and a
// failure racing for the same record cannot lose updates.
type OrderLocker interface {
	WithLock(ctx context.Context, orderID uuid.UUID, fn func(ctx context.Context) error) error
}

// RedisOrderLocker implements OrderLocker on the shared distributed lock.
type RedisOrderLocker struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewRedisOrderLocker(client *goredis.Client, ttl time.Duration) *RedisOrderLocker {
	return &RedisOrderLocker{client: client, ttl: ttl}
}

func (l *RedisOrderLocker) WithLock(ctx context.Context, orderID uuid.UUID, fn func(ctx context.Context) error) error {
	lock := infraRedis.NewDistributedLock(l.client, "order:"+orderID.String(), l.ttl)
	if err := lock.AcquireWithRetry(ctx, 5, 200*time.Millisecond); err != nil {
		return err
	}
	defer lock.Release(ctx)
	return fn(ctx)
}

// SagaResolver applies inbound confirmation and failure messages to the
// retry history and the order. All handlers are idempotent: duplicates for
// already-terminal records and stale transaction ids are absorbed, never
// errors. Real processing failures are returned so the message is not
// acked and the broker redelivers.
type SagaResolver struct {
	retryRepo retry.Repository
	orderRepo order.Repository
	txManager TransactionManager
	locker    OrderLocker
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

func NewSagaResolver(
	retryRepo retry.Repository,
	orderRepo order.Repository,
	txManager TransactionManager,
	locker OrderLocker,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *SagaResolver {
	return &SagaResolver{
		retryRepo: retryRepo,
		orderRepo: orderRepo,
		txManager: txManager,
		locker:    locker,
		metrics:   metrics,
		logger:    logger,
	}
}

// HandleConfirmation resolves the saga successfully when the confirmation
// carries the record's current transaction id.
func (r *SagaResolver) HandleConfirmation(ctx context.Context, msg PaymentConfirmationMessage) error {
	return r.locker.WithLock(ctx, msg.OrderID, func(ctx context.Context) error {
		return r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			h, err := r.retryRepo.GetByOrderID(txCtx, msg.OrderID)
			if err != nil {
				return err
			}

			if h.Status == retry.StatusSuccessful {
				r.logger.Info().
					Str("order_id", msg.OrderID.String()).
					Str("transaction_id", msg.TransactionID.String()).
					Msg("Duplicate confirmation for successful saga, ignoring")
				return nil
			}

			if err := h.MarkSuccessful(msg.TransactionID); err != nil {
				if errors.Is(err, domainErrors.ErrStaleTransaction) || errors.Is(err, domainErrors.ErrRetryTerminal) {
					r.logger.Warn().
						Str("order_id", msg.OrderID.String()).
						Str("transaction_id", msg.TransactionID.String()).
						Str("current_transaction_id", h.CurrentTransactionID.String()).
						Str("status", string(h.Status)).
						Msg("Discarding confirmation that cannot resolve the saga")
					return nil
				}
				return err
			}

			if err := r.retryRepo.Update(txCtx, h); err != nil {
				return err
			}

			if err := r.confirmOrder(txCtx, msg.OrderID); err != nil {
				return err
			}

			r.metrics.SagaOutcomesTotal.WithLabelValues("successful").Inc()
			r.logger.Info().
				Str("order_id", msg.OrderID.String()).
				Str("transaction_id", msg.TransactionID.String()).
				Str("payment_id", msg.PaymentID.String()).
				Msg("Saga resolved successfully")
			return nil
		})
	})
}

// HandleFailure records a failed attempt. While attempts remain the record
// stays retrying for the scheduler; at the ceiling it becomes finally
// failed and the order is cancelled as compensation.
func (r *SagaResolver) HandleFailure(ctx context.Context, msg PaymentFailureMessage) error {
	return r.locker.WithLock(ctx, msg.OrderID, func(ctx context.Context) error {
		return r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			h, err := r.retryRepo.GetByOrderID(txCtx, msg.OrderID)
			if err != nil {
				return err
			}

			if h.Status == retry.StatusFinallyFailed {
				r.logger.Info().
					Str("order_id", msg.OrderID.String()).
					Str("transaction_id", msg.TransactionID.String()).
					Msg("Duplicate failure for finally-failed saga, ignoring")
				return nil
			}

			if err := h.MarkFailed(msg.TransactionID, msg.Reason); err != nil {
				if errors.Is(err, domainErrors.ErrStaleTransaction) || errors.Is(err, domainErrors.ErrRetryTerminal) {
					r.logger.Warn().
						Str("order_id", msg.OrderID.String()).
						Str("transaction_id", msg.TransactionID.String()).
						Str("current_transaction_id", h.CurrentTransactionID.String()).
						Str("status", string(h.Status)).
						Msg("Discarding failure that cannot resolve the saga")
					return nil
				}
				return err
			}

			if err := r.retryRepo.Update(txCtx, h); err != nil {
				return err
			}

			r.logger.Info().
				Str("order_id", msg.OrderID.String()).
				Str("transaction_id", msg.TransactionID.String()).
				Str("reason", msg.Reason).
				Int("attempt_count", h.AttemptCount).
				Str("status", string(h.Status)).
				Msg("Payment failure recorded")

			if h.Status == retry.StatusFinallyFailed {
				if err := r.cancelOrder(txCtx, msg.OrderID); err != nil {
					return err
				}
				r.metrics.SagaOutcomesTotal.WithLabelValues("finally_failed").Inc()
			}
			return nil
		})
	})
}

func (r *SagaResolver) confirmOrder(ctx context.Context, orderID uuid.UUID) error {
	o, err := r.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.IsTerminal() {
		return nil
	}
	if err := o.Confirm(); err != nil {
		return err
	}
	return r.orderRepo.Update(ctx, o)
}

func (r *SagaResolver) cancelOrder(ctx context.Context, orderID uuid.UUID) error {
	o, err := r.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.IsTerminal() {
		return nil
	}
	if err := o.Cancel(); err != nil {
		return err
	}
	return r.orderRepo.Update(ctx, o)
}

// StreamSource is the consumer-group surface a listener pumps.
// *infraRedis.StreamConsumer satisfies it.
type StreamSource interface {
	CreateGroup(ctx context.Context) error
	Read(ctx context.Context) ([]goredis.XStream, error)
	Ack(ctx context.Context, messageID string) error
	Pending(ctx context.Context, minIdleTime time.Duration, count int64) ([]string, error)
	Claim(ctx context.Context, minIdleTime time.Duration, messageIDs []string) ([]goredis.XMessage, error)
	Stream() string
}

const (
	recoveryInterval = 30 * time.Second
	recoveryMinIdle  = time.Minute
	recoveryBatch    = 100
)

// Listener pumps one stream consumer into a handler. A handler error
// leaves the message unacked; the periodic recovery pass reclaims such
// messages from the pending entries list and runs them again, since
// consumer-group reads only ever deliver new entries.
type Listener struct {
	consumer StreamSource
	handle   func(ctx context.Context, values map[string]any) error
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

func NewListener(
	consumer StreamSource,
	handle func(ctx context.Context, values map[string]any) error,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Listener {
	return &Listener{consumer: consumer, handle: handle, metrics: metrics, logger: logger}
}

func (l *Listener) Run(ctx context.Context) error {
	if err := l.consumer.CreateGroup(ctx); err != nil {
		return err
	}

	nextRecovery := time.Now().Add(recoveryInterval)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if time.Now().After(nextRecovery) {
			if err := l.RecoverPending(ctx); err != nil {
				l.metrics.ListenerErrors.WithLabelValues(l.consumer.Stream(), "recovery").Inc()
				l.logger.Error().Err(err).Str("stream", l.consumer.Stream()).Msg("Pending recovery pass failed")
			}
			nextRecovery = time.Now().Add(recoveryInterval)
		}

		streams, err := l.consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.metrics.ListenerErrors.WithLabelValues(l.consumer.Stream(), "read").Inc()
			l.logger.Error().Err(err).Str("stream", l.consumer.Stream()).Msg("Failed to read from stream")
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				l.process(ctx, msg)
			}
		}
	}
}

// RecoverPending claims messages that sat unacked past the idle threshold,
// whether this consumer's handler failed on them or another consumer died
// holding them, and runs them through the handler again.
func (l *Listener) RecoverPending(ctx context.Context) error {
	ids, err := l.consumer.Pending(ctx, recoveryMinIdle, recoveryBatch)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	msgs, err := l.consumer.Claim(ctx, recoveryMinIdle, ids)
	if err != nil {
		return err
	}

	l.logger.Warn().
		Int("claimed", len(msgs)).
		Str("stream", l.consumer.Stream()).
		Msg("Reprocessing messages stuck in the pending entries list")

	for _, msg := range msgs {
		l.process(ctx, msg)
	}
	return nil
}

func (l *Listener) process(ctx context.Context, msg goredis.XMessage) {
	if err := l.handle(ctx, msg.Values); err != nil {
		l.metrics.MessagesConsumedTotal.WithLabelValues(l.consumer.Stream(), "error").Inc()
		l.metrics.ListenerErrors.WithLabelValues(l.consumer.Stream(), "handler").Inc()
		l.logger.Error().
			Err(err).
			Str("stream", l.consumer.Stream()).
			Str("message_id", msg.ID).
			Msg("Message processing failed, leaving unacked for recovery")
		return
	}
	l.metrics.MessagesConsumedTotal.WithLabelValues(l.consumer.Stream(), "success").Inc()
	if err := l.consumer.Ack(ctx, msg.ID); err != nil {
		l.logger.Warn().
			Err(err).
			Str("stream", l.consumer.Stream()).
			Str("message_id", msg.ID).
			Msg("Failed to ack message, recovery will claim it")
	}
}

// ConfirmationHandler adapts SagaResolver.HandleConfirmation to stream
// entries. Malformed messages are absorbed after logging: redelivery can
// never fix them.
func ConfirmationHandler(resolver *SagaResolver, logger zerolog.Logger) func(ctx context.Context, values map[string]any) error {
	return func(ctx context.Context, values map[string]any) error {
		msg, err := decodeConfirmation(values)
		if err != nil {
			logger.Error().Err(err).Msg("Dropping malformed confirmation message")
			return nil
		}
		return resolver.HandleConfirmation(ctx, msg)
	}
}

// FailureHandler adapts SagaResolver.HandleFailure to stream entries.
func FailureHandler(resolver *SagaResolver, logger zerolog.Logger) func(ctx context.Context, values map[string]any) error {
	return func(ctx context.Context, values map[string]any) error {
		msg, err := decodeFailure(values)
		if err != nil {
			logger.Error().Err(err).Msg("Dropping malformed failure message")
			return nil
		}
		return resolver.HandleFailure(ctx, msg)
	}
}

// PaymentProcessor consumes one decoded payment request.
type PaymentProcessor interface {
	Execute(ctx context.Context, req PaymentRequestMessage) error
}

// RequestHandler adapts the payment-side processor to stream entries.
// Expired requests are dropped: the order side schedules the next attempt
// once the current one goes unanswered past its retry time.
func RequestHandler(processor PaymentProcessor, logger zerolog.Logger) func(ctx context.Context, values map[string]any) error {
	return func(ctx context.Context, values map[string]any) error {
		msg, err := decodeRequest(values, time.Now())
		if err != nil {
			if errors.Is(err, domainErrors.ErrMessageExpired) {
				logger.Warn().
					Str("order_id", msg.OrderID.String()).
					Str("transaction_id", msg.TransactionID.String()).
					Msg("Dropping expired payment request")
				return nil
			}
			logger.Error().Err(err).Msg("Dropping malformed payment request")
			return nil
		}
		return processor.Execute(ctx, msg)
	}
}
