package dispatcher

import (
	"context"
	"fmt"

	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/cassiomorais/ordersaga/internal/domain/event"
	"github.com/cassiomorais/ordersaga/internal/domain/outbox"
	"github.com/rs/zerolog"
)

const aggregateTypePayment = "Payment"

// PublishError wraps an outbox write failure. It always propagates so the
// enclosing transaction aborts and the outbox guarantee holds.
type PublishError struct {
	EventType event.Type
	Err       error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s: %v", e.EventType, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Publisher turns payment-service domain events into outbox entries. It
// must be called inside the same transaction as the aggregate's persisted
// state change so "state changed" and "event durably queued" succeed or
// fail together.
type Publisher struct {
	repo   outbox.Repository
	logger zerolog.Logger
}

func NewPublisher(repo outbox.Repository, logger zerolog.Logger) *Publisher {
	return &Publisher{repo: repo, logger: logger}
}

// Publish writes one outbox entry per event. The variant set is closed: an
// unknown event type fails before any entry of this call is written.
func (p *Publisher) Publish(ctx context.Context, events []event.Event) error {
	entries := make([]*outbox.Entry, 0, len(events))
	for _, e := range events {
		entry, err := toEntry(e)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	for _, entry := range entries {
		if err := p.repo.Insert(ctx, entry); err != nil {
			return &PublishError{EventType: event.Type(entry.EventType), Err: err}
		}
		p.logger.Debug().
			Str("event_type", entry.EventType).
			Str("aggregate_id", entry.AggregateID.String()).
			Time("created_at", entry.CreatedAt).
			Msg("Event queued in outbox")
	}
	return nil
}

func toEntry(e event.Event) (*outbox.Entry, error) {
	switch ev := e.(type) {
	case event.PaymentProcessed:
		return outbox.NewEntry(aggregateTypePayment, ev.PaymentID, string(ev.EventType()), map[string]any{
			"order_id":       ev.OrderID.String(),
			"transaction_id": ev.TransactionID.String(),
			"payment_id":     ev.PaymentID.String(),
			"amount_cents":   ev.AmountCents,
			"currency":       ev.Currency,
		}), nil
	case event.PaymentFailed:
		return outbox.NewEntry(aggregateTypePayment, ev.PaymentID, string(ev.EventType()), map[string]any{
			"order_id":       ev.OrderID.String(),
			"transaction_id": ev.TransactionID.String(),
			"payment_id":     ev.PaymentID.String(),
			"reason":         ev.Reason,
		}), nil
	default:
		return nil, &PublishError{
			EventType: e.EventType(),
			Err:       fmt.Errorf("%w: %T", domainErrors.ErrUnsupportedEvent, e),
		}
	}
}
