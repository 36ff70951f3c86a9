package retry

import (
	"time"

	"github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/google/uuid"
)

// Status represents the retry history status in the state machine
type Status string

const (
	StatusPending       Status = "pending"
	StatusRetrying      Status = "retrying"
	StatusSuccessful    Status = "successful"
	StatusFinallyFailed Status = "finally_failed"
)

// Outcome records how a single attempt resolved.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Attempt is an append-only record of one payment-request publication.
// It is audit data only; control decisions live on History.
type Attempt struct {
	AttemptNumber int
	TransactionID uuid.UUID
	AttemptedAt   time.Time
	Outcome       *Outcome
	FailureReason *string
}

// History tracks payment-request attempts for one order and is the single
// source of truth for the saga outcome. The current transaction id is the
// correlation key for inbound confirmation and failure messages; only the
// latest in-flight attempt can resolve the saga.
type History struct {
	OrderID              uuid.UUID
	CurrentTransactionID uuid.UUID
	Status               Status
	AttemptCount         int
	MaxAttempts          int
	FirstAttemptAt       *time.Time
	NextRetryAt          *time.Time
	Attempts             []Attempt
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewHistory creates a pending history, ready for its first attempt
// immediately (nil NextRetryAt).
func NewHistory(orderID uuid.UUID, maxAttempts int) (*History, error) {
	if maxAttempts <= 0 {
		return nil, errors.NewValidationError("max_attempts", "must be greater than 0")
	}
	now := time.Now()
	return &History{
		OrderID:     orderID,
		Status:      StatusPending,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsTerminal checks if the history reached a definitive outcome.
func (h *History) IsTerminal() bool {
	return h.Status == StatusSuccessful || h.Status == StatusFinallyFailed
}

// CanTransitionTo checks if the history can transition to the given status
func (h *History) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusPending:       {StatusRetrying},
		StatusRetrying:      {StatusRetrying, StatusSuccessful, StatusFinallyFailed},
		StatusSuccessful:    {}, // Terminal state
		StatusFinallyFailed: {}, // Terminal state
	}

	allowed, exists := transitions[h.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// StartAttempt begins a new publication attempt: generates a fresh
// transaction id, appends the attempt record, increments the counter and
// moves the history to retrying. The scheduler persists the history and
// publishes the request tagged with the returned attempt's transaction id.
func (h *History) StartAttempt(now time.Time) (Attempt, error) {
	if h.IsTerminal() {
		return Attempt{}, errors.ErrRetryTerminal
	}
	if h.AttemptCount >= h.MaxAttempts {
		return Attempt{}, errors.ErrMaxAttemptsExceeded
	}
	if !h.CanTransitionTo(StatusRetrying) {
		return Attempt{}, errors.NewDomainError(
			"invalid_transition",
			"cannot start attempt from "+string(h.Status),
			errors.ErrInvalidStateTransition,
		)
	}

	attempt := Attempt{
		AttemptNumber: h.AttemptCount + 1,
		TransactionID: uuid.New(),
		AttemptedAt:   now,
	}
	h.Attempts = append(h.Attempts, attempt)
	h.AttemptCount++
	h.CurrentTransactionID = attempt.TransactionID
	h.Status = StatusRetrying
	if h.FirstAttemptAt == nil {
		t := now
		h.FirstAttemptAt = &t
	}
	h.UpdatedAt = now
	return attempt, nil
}

// ScheduleNext sets the time before which the scheduler must not pick this
// history up again.
func (h *History) ScheduleNext(next time.Time) {
	h.NextRetryAt = &next
	h.UpdatedAt = time.Now()
}

// MarkSuccessful resolves the saga on a payment confirmation. A
// confirmation for an already successful history is an idempotent no-op; a
// transaction id that is not the current one is discarded as stale.
func (h *History) MarkSuccessful(transactionID uuid.UUID) error {
	if h.Status == StatusSuccessful {
		return nil
	}
	if h.IsTerminal() {
		return errors.ErrRetryTerminal
	}
	if transactionID != h.CurrentTransactionID {
		return errors.ErrStaleTransaction
	}
	if !h.CanTransitionTo(StatusSuccessful) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot mark successful from "+string(h.Status),
			errors.ErrInvalidStateTransition,
		)
	}

	h.Status = StatusSuccessful
	h.NextRetryAt = nil
	h.recordOutcome(transactionID, OutcomeSucceeded, nil)
	h.UpdatedAt = time.Now()
	return nil
}

// MarkFailed records a payment failure for the given transaction id. While
// attempts remain the history stays retrying, ready for the scheduler once
// NextRetryAt passes; at the ceiling it becomes finally failed. Duplicate
// failures for an already finally-failed history are idempotent no-ops and
// stale transaction ids are discarded.
func (h *History) MarkFailed(transactionID uuid.UUID, reason string) error {
	if h.Status == StatusFinallyFailed {
		return nil
	}
	if h.IsTerminal() {
		return errors.ErrRetryTerminal
	}
	if transactionID != h.CurrentTransactionID {
		return errors.ErrStaleTransaction
	}

	h.recordOutcome(transactionID, OutcomeFailed, &reason)

	if h.AttemptCount >= h.MaxAttempts {
		if !h.CanTransitionTo(StatusFinallyFailed) {
			return errors.NewDomainError(
				"invalid_transition",
				"cannot mark finally failed from "+string(h.Status),
				errors.ErrInvalidStateTransition,
			)
		}
		h.Status = StatusFinallyFailed
		h.NextRetryAt = nil
	}
	h.UpdatedAt = time.Now()
	return nil
}

// Eligible reports whether the scheduler may start an attempt now.
func (h *History) Eligible(now time.Time) bool {
	if h.Status != StatusPending && h.Status != StatusRetrying {
		return false
	}
	if h.AttemptCount >= h.MaxAttempts {
		return false
	}
	return h.NextRetryAt == nil || !h.NextRetryAt.After(now)
}

func (h *History) recordOutcome(transactionID uuid.UUID, outcome Outcome, reason *string) {
	for i := range h.Attempts {
		if h.Attempts[i].TransactionID == transactionID && h.Attempts[i].Outcome == nil {
			h.Attempts[i].Outcome = &outcome
			h.Attempts[i].FailureReason = reason
			return
		}
	}
}
