package dispatcher_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cassiomorais/ordersaga/internal/dispatcher"
	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/cassiomorais/ordersaga/internal/domain/event"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func requestedAggregate() *event.AggregateRoot {
	var root event.AggregateRoot
	root.Record(event.NewPaymentRequested(uuid.New(), "cust-1", 100, "USD"))
	return &root
}

func TestDispatch_DeliversToHandler(t *testing.T) {
	d := dispatcher.New(zerolog.Nop())

	var received []event.Event
	d.Register(event.TypePaymentRequested, func(ctx context.Context, e event.Event) error {
		received = append(received, e)
		return nil
	})

	root := requestedAggregate()
	if err := d.Dispatch(context.Background(), root); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("expected 1 delivered event, got %d", len(received))
	}
	if root.HasPendingEvents() {
		t.Error("pending events should be cleared after a successful dispatch")
	}
}

func TestDispatch_EmptyAggregateIsNoOp(t *testing.T) {
	d := dispatcher.New(zerolog.Nop())
	var root event.AggregateRoot
	if err := d.Dispatch(context.Background(), &root); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDispatch_UnregisteredEventFails(t *testing.T) {
	d := dispatcher.New(zerolog.Nop())

	err := d.Dispatch(context.Background(), requestedAggregate())
	if !errors.Is(err, domainErrors.ErrUnsupportedEvent) {
		t.Errorf("expected ErrUnsupportedEvent, got %v", err)
	}
}

func TestDispatch_HandlerErrorKeepsEventsPending(t *testing.T) {
	d := dispatcher.New(zerolog.Nop())
	handlerErr := errors.New("handler exploded")
	d.Register(event.TypePaymentRequested, func(ctx context.Context, e event.Event) error {
		return handlerErr
	})

	root := requestedAggregate()
	err := d.Dispatch(context.Background(), root)
	if !errors.Is(err, handlerErr) {
		t.Errorf("expected wrapped handler error, got %v", err)
	}

	var dispatchErr *dispatcher.DispatchError
	if !errors.As(err, &dispatchErr) {
		t.Fatalf("expected DispatchError, got %T", err)
	}
	if dispatchErr.EventType != event.TypePaymentRequested {
		t.Errorf("unexpected event type %s", dispatchErr.EventType)
	}

	// Redelivery on retry needs the events intact.
	if !root.HasPendingEvents() {
		t.Error("failed dispatch must leave pending events in place")
	}
}
