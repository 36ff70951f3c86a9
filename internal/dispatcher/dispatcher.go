package dispatcher

import (
	"context"
	"fmt"

	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/cassiomorais/ordersaga/internal/domain/event"
	"github.com/rs/zerolog"
)

// Handler processes one domain event variant.
type Handler func(ctx context.Context, e event.Event) error

// DispatchError wraps the handler failure that aborted a dispatch.
type DispatchError struct {
	EventType event.Type
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s: %v", e.EventType, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Dispatcher delivers aggregate events to in-process handlers, all or
// nothing per call. Durability of the triggering state change plus its
// events is the responsibility of the transaction boundary wrapping the
// call, not of the dispatcher itself.
type Dispatcher struct {
	handlers map[event.Type]Handler
	logger   zerolog.Logger
}

func New(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[event.Type]Handler),
		logger:   logger,
	}
}

// Register binds a handler to an event type, replacing any previous one.
func (d *Dispatcher) Register(t event.Type, h Handler) {
	d.handlers[t] = h
}

// Dispatch delivers every pending event of the aggregate in insertion
// order. The event list is cleared only when all handlers succeeded; on any
// failure it is left intact so a retried call redelivers all events. An
// event without a registered handler fails the dispatch rather than being
// silently dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, aggregate *event.AggregateRoot) error {
	events := aggregate.PendingEvents()
	if len(events) == 0 {
		return nil
	}

	for _, e := range events {
		h, ok := d.handlers[e.EventType()]
		if !ok {
			return &DispatchError{
				EventType: e.EventType(),
				Err:       fmt.Errorf("%w: %s", domainErrors.ErrUnsupportedEvent, e.EventType()),
			}
		}

		if err := h(ctx, e); err != nil {
			d.logger.Error().
				Err(err).
				Str("event_type", string(e.EventType())).
				Str("event_id", e.EventID().String()).
				Msg("Event handler failed")
			return &DispatchError{EventType: e.EventType(), Err: err}
		}

		d.logger.Debug().
			Str("event_type", string(e.EventType())).
			Str("event_id", e.EventID().String()).
			Time("occurred_at", e.OccurredAt()).
			Msg("Event dispatched")
	}

	aggregate.ClearEvents()
	return nil
}
