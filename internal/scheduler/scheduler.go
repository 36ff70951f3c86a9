package scheduler

import (
	"context"
	"errors"
	"time"

	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/cassiomorais/ordersaga/internal/domain/order"
	"github.com/cassiomorais/ordersaga/internal/domain/retry"
	"github.com/cassiomorais/ordersaga/internal/infrastructure/observability"
	"github.com/cassiomorais/ordersaga/internal/messaging"
	"github.com/rs/zerolog"
)

// RequestSender publishes one payment request for an attempt.
type RequestSender interface {
	PublishRequest(ctx context.Context, msg messaging.PaymentRequestMessage) error
}

// TransactionManager is the transactional boundary a tick runs inside.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// LeaderLock coordinates ticks across scheduler replicas. Acquire reports
// false when another replica holds the lease.
type LeaderLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Config carries the tick parameters.
type Config struct {
	TickInterval time.Duration
	BatchSize    int
	Backoff      Backoff
}

// Scheduler periodically selects due retry records, starts a new attempt
// on each, and publishes the corresponding payment request. Records are
// selected oldest first so a failing order cannot starve the rest.
type Scheduler struct {
	retryRepo retry.Repository
	orderRepo order.Repository
	txManager TransactionManager
	sender    RequestSender
	lock      LeaderLock
	clock     Clock
	cfg       Config
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

func New(
	retryRepo retry.Repository,
	orderRepo order.Repository,
	txManager TransactionManager,
	sender RequestSender,
	lock LeaderLock,
	clock Clock,
	cfg Config,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{
		retryRepo: retryRepo,
		orderRepo: orderRepo,
		txManager: txManager,
		sender:    sender,
		lock:      lock,
		clock:     clock,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.leaderTick(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Scheduler tick failed")
			}
		}
	}
}

// leaderTick runs Tick only on the replica holding the leader lease.
func (s *Scheduler) leaderTick(ctx context.Context) error {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		s.logger.Debug().Msg("Another scheduler replica holds the lease, skipping tick")
		return nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to release scheduler leader lock")
		}
	}()

	return s.Tick(ctx)
}

// Tick selects up to BatchSize due records and attempts each one in its
// own transaction. A record whose attempt errors is logged and skipped, so
// one bad row never blocks the rest of the batch and never rolls back
// attempts that were already dispatched. A publish failure still counts
// the attempt and schedules the next retry, so a broker outage burns
// attempts instead of retrying forever.
func (s *Scheduler) Tick(ctx context.Context) error {
	started := s.clock.Now()
	defer func() {
		s.metrics.SchedulerTickDuration.Observe(time.Since(started).Seconds())
	}()

	now := s.clock.Now()
	var histories []*retry.History
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		histories, err = s.retryRepo.FindRetryable(txCtx, now, s.cfg.BatchSize)
		return err
	})
	if err != nil {
		return err
	}
	s.metrics.SchedulerSelected.Observe(float64(len(histories)))

	if active, err := s.retryRepo.CountActive(ctx); err == nil {
		s.metrics.ActiveSagas.Set(float64(active))
	} else {
		s.logger.Debug().Err(err).Msg("Failed to count active sagas")
	}

	if len(histories) == 0 {
		return nil
	}

	s.logger.Info().Int("selected", len(histories)).Msg("Scheduler tick selected retry records")

	for _, h := range histories {
		err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			return s.attempt(txCtx, h, now)
		})
		if err != nil {
			s.metrics.RetryAttemptsTotal.WithLabelValues("record_error").Inc()
			s.logger.Error().
				Err(err).
				Str("order_id", h.OrderID.String()).
				Msg("Retry record attempt failed, continuing with the rest of the batch")
		}
	}
	return nil
}

func (s *Scheduler) attempt(ctx context.Context, h *retry.History, now time.Time) error {
	o, err := s.orderRepo.GetByID(ctx, h.OrderID)
	if err != nil {
		return err
	}

	att, err := h.StartAttempt(now)
	if err != nil {
		// Both guards mean the record raced out from under the
		// selection query. Leave it alone.
		if errors.Is(err, domainErrors.ErrRetryTerminal) || errors.Is(err, domainErrors.ErrMaxAttemptsExceeded) {
			s.logger.Warn().
				Str("order_id", h.OrderID.String()).
				Str("status", string(h.Status)).
				Int("attempt_count", h.AttemptCount).
				Msg("Skipping record no longer eligible for retry")
			return nil
		}
		return err
	}

	h.ScheduleNext(now.Add(s.cfg.Backoff.Delay(h.AttemptCount)))
	if err := s.retryRepo.Update(ctx, h); err != nil {
		return err
	}

	msg := messaging.PaymentRequestMessage{
		TransactionID: att.TransactionID,
		OrderID:       h.OrderID,
		CustomerID:    o.CustomerID,
		AmountCents:   o.AmountCents,
		Currency:      o.Currency,
		CardNumber:    o.CardNumber,
		Timestamp:     now,
	}
	if err := s.sender.PublishRequest(ctx, msg); err != nil {
		// The attempt stays counted: the transaction id is already
		// burned and any response to it must match the persisted state.
		s.metrics.RetryAttemptsTotal.WithLabelValues("publish_error").Inc()
		s.logger.Error().
			Err(err).
			Str("order_id", h.OrderID.String()).
			Str("transaction_id", att.TransactionID.String()).
			Int("attempt_number", att.AttemptNumber).
			Msg("Payment request publish failed, attempt counted")
		return nil
	}

	s.metrics.RetryAttemptsTotal.WithLabelValues("published").Inc()
	s.logger.Info().
		Str("order_id", h.OrderID.String()).
		Str("transaction_id", att.TransactionID.String()).
		Int("attempt_number", att.AttemptNumber).
		Time("next_retry_at", now.Add(s.cfg.Backoff.Delay(h.AttemptCount))).
		Msg("Payment attempt dispatched")
	return nil
}
