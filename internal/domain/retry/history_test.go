package retry_test

import (
	"errors"
	"testing"
	"time"

	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/cassiomorais/ordersaga/internal/domain/retry"
	"github.com/google/uuid"
)

func TestNewHistory(t *testing.T) {
	h, err := retry.NewHistory(uuid.New(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Status != retry.StatusPending {
		t.Errorf("expected status pending, got %s", h.Status)
	}
	if h.AttemptCount != 0 {
		t.Errorf("expected 0 attempts, got %d", h.AttemptCount)
	}
	if h.NextRetryAt != nil {
		t.Error("expected nil NextRetryAt for a fresh history")
	}
	if !h.Eligible(time.Now()) {
		t.Error("fresh history should be eligible immediately")
	}
}

func TestNewHistory_InvalidMaxAttempts(t *testing.T) {
	if _, err := retry.NewHistory(uuid.New(), 0); err == nil {
		t.Error("expected error for max attempts 0")
	}
	if _, err := retry.NewHistory(uuid.New(), -1); err == nil {
		t.Error("expected error for negative max attempts")
	}
}

func TestStartAttempt(t *testing.T) {
	h, _ := retry.NewHistory(uuid.New(), 3)
	now := time.Now()

	att, err := h.StartAttempt(now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if att.AttemptNumber != 1 {
		t.Errorf("expected attempt number 1, got %d", att.AttemptNumber)
	}
	if att.TransactionID == uuid.Nil {
		t.Error("expected a fresh transaction id")
	}
	if h.Status != retry.StatusRetrying {
		t.Errorf("expected status retrying, got %s", h.Status)
	}
	if h.CurrentTransactionID != att.TransactionID {
		t.Error("current transaction id should track the latest attempt")
	}
	if h.FirstAttemptAt == nil || !h.FirstAttemptAt.Equal(now) {
		t.Error("first attempt time should be recorded on the first attempt")
	}
}

func TestStartAttempt_RotatesTransactionID(t *testing.T) {
	h, _ := retry.NewHistory(uuid.New(), 3)
	now := time.Now()

	first, _ := h.StartAttempt(now)
	if err := h.MarkFailed(first.TransactionID, "provider down"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := h.StartAttempt(now.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.TransactionID == first.TransactionID {
		t.Error("each attempt must get its own transaction id")
	}
	if h.CurrentTransactionID != second.TransactionID {
		t.Error("current transaction id should be the second attempt's")
	}
	if h.AttemptCount != 2 {
		t.Errorf("expected 2 attempts, got %d", h.AttemptCount)
	}
	if h.FirstAttemptAt == nil || !h.FirstAttemptAt.Equal(now) {
		t.Error("first attempt time must not move on later attempts")
	}
}

func TestStartAttempt_MaxAttemptsExceeded(t *testing.T) {
	h, _ := retry.NewHistory(uuid.New(), 1)
	now := time.Now()

	att, _ := h.StartAttempt(now)
	if _, err := h.StartAttempt(now.Add(time.Minute)); !errors.Is(err, domainErrors.ErrMaxAttemptsExceeded) {
		t.Errorf("expected ErrMaxAttemptsExceeded, got %v", err)
	}

	// The history is not terminal yet; the outcome of the in-flight
	// attempt decides.
	if h.IsTerminal() {
		t.Error("history must stay non-terminal while the last attempt is in flight")
	}
	if err := h.MarkSuccessful(att.TransactionID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStartAttempt_Terminal(t *testing.T) {
	h, _ := retry.NewHistory(uuid.New(), 3)
	att, _ := h.StartAttempt(time.Now())
	h.MarkSuccessful(att.TransactionID)

	if _, err := h.StartAttempt(time.Now()); !errors.Is(err, domainErrors.ErrRetryTerminal) {
		t.Errorf("expected ErrRetryTerminal, got %v", err)
	}
}

func TestMarkSuccessful(t *testing.T) {
	h, _ := retry.NewHistory(uuid.New(), 3)
	att, _ := h.StartAttempt(time.Now())
	h.ScheduleNext(time.Now().Add(time.Minute))

	if err := h.MarkSuccessful(att.TransactionID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Status != retry.StatusSuccessful {
		t.Errorf("expected status successful, got %s", h.Status)
	}
	if h.NextRetryAt != nil {
		t.Error("NextRetryAt should be cleared on success")
	}
	if h.Attempts[0].Outcome == nil || *h.Attempts[0].Outcome != retry.OutcomeSucceeded {
		t.Error("the attempt should record a succeeded outcome")
	}
}

func TestMarkSuccessful_DuplicateIsNoOp(t *testing.T) {
	h, _ := retry.NewHistory(uuid.New(), 3)
	att, _ := h.StartAttempt(time.Now())
	h.MarkSuccessful(att.TransactionID)

	// A redelivered confirmation resolves to a no-op, even with a stale id.
	if err := h.MarkSuccessful(att.TransactionID); err != nil {
		t.Errorf("duplicate confirmation should be a no-op, got %v", err)
	}
	if err := h.MarkSuccessful(uuid.New()); err != nil {
		t.Errorf("confirmation for a successful history should be a no-op, got %v", err)
	}
}

func TestMarkSuccessful_StaleTransaction(t *testing.T) {
	h, _ := retry.NewHistory(uuid.New(), 3)
	first, _ := h.StartAttempt(time.Now())
	h.MarkFailed(first.TransactionID, "timeout")
	h.StartAttempt(time.Now().Add(time.Minute))

	// A late confirmation for the superseded attempt must be discarded.
	err := h.MarkSuccessful(first.TransactionID)
	if !errors.Is(err, domainErrors.ErrStaleTransaction) {
		t.Errorf("expected ErrStaleTransaction, got %v", err)
	}
	if h.Status != retry.StatusRetrying {
		t.Errorf("stale confirmation must not change state, got %s", h.Status)
	}
}

func TestMarkFailed_StaysRetryingWhileAttemptsRemain(t *testing.T) {
	h, _ := retry.NewHistory(uuid.New(), 3)
	att, _ := h.StartAttempt(time.Now())

	if err := h.MarkFailed(att.TransactionID, "card declined"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Status != retry.StatusRetrying {
		t.Errorf("expected status retrying, got %s", h.Status)
	}
	if h.Attempts[0].FailureReason == nil || *h.Attempts[0].FailureReason != "card declined" {
		t.Error("the attempt should record the failure reason")
	}
}

func TestMarkFailed_FinallyFailedAtCeiling(t *testing.T) {
	h, _ := retry.NewHistory(uuid.New(), 2)
	now := time.Now()

	first, _ := h.StartAttempt(now)
	h.MarkFailed(first.TransactionID, "timeout")
	second, _ := h.StartAttempt(now.Add(time.Minute))
	h.ScheduleNext(now.Add(2 * time.Minute))

	if err := h.MarkFailed(second.TransactionID, "timeout"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Status != retry.StatusFinallyFailed {
		t.Errorf("expected status finally_failed, got %s", h.Status)
	}
	if h.NextRetryAt != nil {
		t.Error("NextRetryAt should be cleared at the ceiling")
	}
}

func TestMarkFailed_DuplicateIsNoOp(t *testing.T) {
	h, _ := retry.NewHistory(uuid.New(), 1)
	att, _ := h.StartAttempt(time.Now())
	h.MarkFailed(att.TransactionID, "timeout")

	if err := h.MarkFailed(att.TransactionID, "timeout"); err != nil {
		t.Errorf("duplicate failure should be a no-op, got %v", err)
	}
}

func TestMarkFailed_StaleTransaction(t *testing.T) {
	h, _ := retry.NewHistory(uuid.New(), 3)
	first, _ := h.StartAttempt(time.Now())
	h.MarkFailed(first.TransactionID, "timeout")
	h.StartAttempt(time.Now().Add(time.Minute))

	err := h.MarkFailed(first.TransactionID, "timeout")
	if !errors.Is(err, domainErrors.ErrStaleTransaction) {
		t.Errorf("expected ErrStaleTransaction, got %v", err)
	}
}

func TestMarkFailed_AfterSuccess(t *testing.T) {
	h, _ := retry.NewHistory(uuid.New(), 3)
	att, _ := h.StartAttempt(time.Now())
	h.MarkSuccessful(att.TransactionID)

	// A late failure for a resolved saga must never un-resolve it.
	err := h.MarkFailed(att.TransactionID, "timeout")
	if !errors.Is(err, domainErrors.ErrRetryTerminal) {
		t.Errorf("expected ErrRetryTerminal, got %v", err)
	}
	if h.Status != retry.StatusSuccessful {
		t.Errorf("status must stay successful, got %s", h.Status)
	}
}

func TestEligible(t *testing.T) {
	now := time.Now()

	h, _ := retry.NewHistory(uuid.New(), 2)
	if !h.Eligible(now) {
		t.Error("pending history with no NextRetryAt should be eligible")
	}

	att, _ := h.StartAttempt(now)
	h.ScheduleNext(now.Add(time.Minute))
	if h.Eligible(now) {
		t.Error("history should not be eligible before NextRetryAt")
	}
	if !h.Eligible(now.Add(time.Minute)) {
		t.Error("history should be eligible once NextRetryAt passes")
	}

	h.MarkFailed(att.TransactionID, "timeout")
	h.StartAttempt(now.Add(time.Minute))
	if h.Eligible(now.Add(time.Hour)) {
		t.Error("history at the attempt ceiling should not be eligible")
	}
}
