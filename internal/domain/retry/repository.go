package retry

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Window bounds a statistics query by created_at. Zero values leave the
// corresponding side unbounded.
type Window struct {
	From time.Time
	To   time.Time
}

type Repository interface {
	// Create persists a new history (inside the same transaction as the
	// order write)
	Create(ctx context.Context, h *History) error

	// GetByOrderID returns the history for an order including its attempts
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*History, error)

	// Update persists history fields and appends any new attempts. The
	// read-modify-write must run under a per-row lock so concurrent
	// scheduler ticks and inbound listeners do not lose updates.
	Update(ctx context.Context, h *History) error

	// FindRetryable returns histories eligible for a new attempt at the
	// given instant, oldest first_attempt_at first, up to the limit
	FindRetryable(ctx context.Context, now time.Time, limit int) ([]*History, error)

	// FindStale returns non-terminal histories whose first attempt is older
	// than the cutoff. Diagnostic only; no state change.
	FindStale(ctx context.Context, cutoff time.Time, limit int) ([]*History, error)

	// CountActive returns how many histories are pending or retrying
	CountActive(ctx context.Context) (int64, error)

	// Statistics aggregates histories created inside the window
	Statistics(ctx context.Context, window Window) (Statistics, error)
}
