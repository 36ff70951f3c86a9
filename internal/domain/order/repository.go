package order

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new order
	Create(ctx context.Context, o *Order) error

	// GetByID returns the order with the given id
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// Update persists changes to an existing order
	Update(ctx context.Context, o *Order) error
}
