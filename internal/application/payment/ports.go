package payment

import (
	"context"

	"github.com/cassiomorais/ordersaga/internal/domain/event"
)

// TransactionManager defines the interface for transaction management.
// This is an application-layer port, not a domain concern.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher queues domain events in the transactional outbox. It must
// run inside the same transaction as the aggregate write.
type EventPublisher interface {
	Publish(ctx context.Context, events []event.Event) error
}
