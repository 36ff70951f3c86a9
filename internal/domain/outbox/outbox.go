package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one saga reply staged for delivery. The payment use case writes
// entries in the same transaction as the payment row, and the relay moves
// pending entries onto the broker streams.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       map[string]any
	Status        Status
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
)

// NewEntry stages a pending entry. PublishedAt stays nil until the relay
// hands the entry to the broker.
func NewEntry(aggregateType string, aggregateID uuid.UUID, eventType string, payload map[string]any) *Entry {
	return &Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		Status:        StatusPending,
		CreatedAt:     time.Now(),
	}
}

// Pending reports whether the relay still owes this entry a publish.
func (e *Entry) Pending() bool {
	return e.Status == StatusPending
}
