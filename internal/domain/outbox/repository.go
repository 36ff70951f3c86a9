package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Insert creates a new outbox entry (inside the same transaction as the
	// aggregate write, so state change and queued event commit together)
	Insert(ctx context.Context, entry *Entry) error

	// GetPending returns pending outbox entries in created_at order up to
	// the given limit
	GetPending(ctx context.Context, limit int) ([]*Entry, error)

	// MarkPublished marks an outbox entry as published
	MarkPublished(ctx context.Context, id uuid.UUID) error

	// DeletePublishedBefore removes published entries older than the cutoff
	// and returns how many rows were deleted
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
