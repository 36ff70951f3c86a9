package payment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new payment (typically inside a transaction)
	Create(ctx context.Context, p *Payment) error

	// GetByTransactionID returns the payment created for the given
	// transaction id, or nil when no such payment exists
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Payment, error)

	// Update persists changes to an existing payment
	Update(ctx context.Context, p *Payment) error
}
