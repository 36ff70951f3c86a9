// Package relay moves committed outbox entries onto the broker streams.
package relay

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/cassiomorais/ordersaga/internal/domain/event"
	"github.com/cassiomorais/ordersaga/internal/domain/outbox"
	"github.com/cassiomorais/ordersaga/internal/infrastructure/observability"
	infraRedis "github.com/cassiomorais/ordersaga/internal/infrastructure/redis"
	"github.com/cassiomorais/ordersaga/internal/messaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StreamPublisher is the broker append operation the relay needs.
type StreamPublisher interface {
	Publish(ctx context.Context, stream string, values map[string]any) error
}

// TransactionManager is the transactional boundary a poll runs inside.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Config carries the polling and retention parameters.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	Retention    time.Duration
}

// Relay polls pending outbox entries and publishes each one to the stream
// its event type maps to. Entries stay pending on publish failure and are
// picked up again on the next poll; published entries older than the
// retention window are purged.
type Relay struct {
	outboxRepo outbox.Repository
	txManager  TransactionManager
	producer   StreamPublisher
	cfg        Config
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

func New(
	outboxRepo outbox.Repository,
	txManager TransactionManager,
	producer StreamPublisher,
	cfg Config,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Relay {
	return &Relay{
		outboxRepo: outboxRepo,
		txManager:  txManager,
		producer:   producer,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

// Run polls until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := r.Poll(ctx); err != nil {
			r.logger.Error().Err(err).Msg("Outbox poll failed")
		}
	}
}

// Poll drains one batch of pending entries. The selection locks rows with
// SKIP LOCKED so concurrent relays never double-publish within a poll;
// redelivery after a crash between publish and commit is possible, which is
// why the order side resolves duplicates idempotently.
func (r *Relay) Poll(ctx context.Context) error {
	return r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		entries, err := r.outboxRepo.GetPending(txCtx, r.cfg.BatchSize)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			stream, values, err := toStreamMessage(entry)
			if err != nil {
				// A malformed entry can never publish. Mark it so it
				// stops clogging the batch.
				r.logger.Error().
					Err(err).
					Str("outbox_id", entry.ID.String()).
					Str("event_type", entry.EventType).
					Msg("Unpublishable outbox entry, marking published to drop it")
				if err := r.outboxRepo.MarkPublished(txCtx, entry.ID); err != nil {
					return err
				}
				r.metrics.OutboxPublishedTotal.WithLabelValues(entry.EventType, "dropped").Inc()
				continue
			}

			if err := r.producer.Publish(ctx, stream, values); err != nil {
				r.metrics.OutboxPublishedTotal.WithLabelValues(entry.EventType, "error").Inc()
				r.logger.Error().
					Err(err).
					Str("outbox_id", entry.ID.String()).
					Str("stream", stream).
					Msg("Failed to publish outbox entry, will retry next poll")
				continue
			}

			if err := r.outboxRepo.MarkPublished(txCtx, entry.ID); err != nil {
				return err
			}
			r.metrics.OutboxPublishedTotal.WithLabelValues(entry.EventType, "published").Inc()
			r.metrics.OutboxPendingAge.Set(time.Since(entry.CreatedAt).Seconds())
			r.logger.Info().
				Str("outbox_id", entry.ID.String()).
				Str("event_type", entry.EventType).
				Str("stream", stream).
				Msg("Outbox entry published")
		}
		return nil
	})
}

// RunCleanup purges published entries past the retention window, hourly.
func (r *Relay) RunCleanup(ctx context.Context) error {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		cutoff := time.Now().Add(-r.cfg.Retention)
		deleted, err := r.outboxRepo.DeletePublishedBefore(ctx, cutoff)
		if err != nil {
			r.logger.Error().Err(err).Msg("Outbox cleanup failed")
			continue
		}
		if deleted > 0 {
			r.logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("Purged published outbox entries")
		}
	}
}

func toStreamMessage(entry *outbox.Entry) (string, map[string]any, error) {
	switch event.Type(entry.EventType) {
	case event.TypePaymentProcessed:
		msg := messaging.PaymentConfirmationMessage{Status: "completed"}
		var err error
		if msg.OrderID, err = payloadUUID(entry.Payload, "order_id"); err != nil {
			return "", nil, err
		}
		if msg.TransactionID, err = payloadUUID(entry.Payload, "transaction_id"); err != nil {
			return "", nil, err
		}
		if msg.PaymentID, err = payloadUUID(entry.Payload, "payment_id"); err != nil {
			return "", nil, err
		}
		values, err := messaging.ConfirmationEnvelope(msg)
		if err != nil {
			return "", nil, err
		}
		return infraRedis.ConfirmationStream, values, nil

	case event.TypePaymentFailed:
		msg := messaging.PaymentFailureMessage{}
		var err error
		if msg.OrderID, err = payloadUUID(entry.Payload, "order_id"); err != nil {
			return "", nil, err
		}
		if msg.TransactionID, err = payloadUUID(entry.Payload, "transaction_id"); err != nil {
			return "", nil, err
		}
		msg.Reason, _ = entry.Payload["reason"].(string)
		values, err := messaging.FailureEnvelope(msg)
		if err != nil {
			return "", nil, err
		}
		return infraRedis.FailureStream, values, nil

	default:
		return "", nil, fmt.Errorf("%w: %s", domainErrors.ErrUnsupportedEvent, entry.EventType)
	}
}

func payloadUUID(payload map[string]any, key string) (uuid.UUID, error) {
	raw, _ := payload[key].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("payload %s: %w", key, err)
	}
	return id, nil
}
