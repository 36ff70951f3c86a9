package event

// AggregateRoot holds the ordered list of events recorded during the
// current operation. Embed it in aggregates that produce domain events.
//
// The list must only be cleared after every event has been handed off
// (handler call or outbox write); a failed dispatch leaves it intact so a
// retried call redelivers all events.
type AggregateRoot struct {
	pending []Event
}

// Record appends an event to the pending list in insertion order.
func (a *AggregateRoot) Record(e Event) {
	a.pending = append(a.pending, e)
}

// PendingEvents returns the recorded events in insertion order.
func (a *AggregateRoot) PendingEvents() []Event {
	return a.pending
}

// HasPendingEvents reports whether any events are waiting for dispatch.
func (a *AggregateRoot) HasPendingEvents() bool {
	return len(a.pending) > 0
}

// ClearEvents drops the pending list. Callers invoke this only after a
// fully successful hand-off.
func (a *AggregateRoot) ClearEvents() {
	a.pending = nil
}
