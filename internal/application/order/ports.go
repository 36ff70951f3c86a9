package order

import (
	"context"

	"github.com/cassiomorais/ordersaga/internal/domain/event"
)

// TransactionManager defines the interface for transaction management.
// This is an application-layer port, not a domain concern.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventDispatcher routes an aggregate's recorded events to their handlers
// and clears them on success.
type EventDispatcher interface {
	Dispatch(ctx context.Context, root *event.AggregateRoot) error
}
