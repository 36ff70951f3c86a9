package payment_test

import (
	"errors"
	"testing"

	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/cassiomorais/ordersaga/internal/domain/event"
	"github.com/cassiomorais/ordersaga/internal/domain/payment"
	"github.com/google/uuid"
)

func TestNew(t *testing.T) {
	txID := uuid.New()
	orderID := uuid.New()

	p, err := payment.New(txID, orderID, "cust-1", 2500, "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != payment.StatusProcessing {
		t.Errorf("expected status processing, got %s", p.Status)
	}
	if p.TransactionID != txID || p.OrderID != orderID {
		t.Error("payment should carry its correlation ids")
	}
	if p.HasPendingEvents() {
		t.Error("a fresh payment should not record events")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := payment.New(uuid.New(), uuid.New(), "cust-1", 0, "USD"); err == nil {
		t.Error("expected error for zero amount")
	}
	if _, err := payment.New(uuid.New(), uuid.New(), "cust-1", 100, "DOLLARS"); err == nil {
		t.Error("expected error for bad currency")
	}
}

func TestMarkCompleted(t *testing.T) {
	p, _ := payment.New(uuid.New(), uuid.New(), "cust-1", 2500, "USD")

	if err := p.MarkCompleted("stripe_txn_abc123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != payment.StatusCompleted {
		t.Errorf("expected status completed, got %s", p.Status)
	}
	if p.ProviderTransactionID == nil || *p.ProviderTransactionID != "stripe_txn_abc123" {
		t.Error("provider transaction id should be recorded")
	}
	if p.CompletedAt == nil {
		t.Error("completion time should be recorded")
	}

	events := p.PendingEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	processed, ok := events[0].(event.PaymentProcessed)
	if !ok {
		t.Fatalf("expected PaymentProcessed, got %T", events[0])
	}
	if processed.TransactionID != p.TransactionID {
		t.Error("event should carry the payment's transaction id")
	}
}

func TestMarkFailed(t *testing.T) {
	p, _ := payment.New(uuid.New(), uuid.New(), "cust-1", 2500, "USD")

	if err := p.MarkFailed("card declined"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != payment.StatusFailed {
		t.Errorf("expected status failed, got %s", p.Status)
	}
	if p.LastError == nil || *p.LastError != "card declined" {
		t.Error("failure reason should be recorded")
	}

	events := p.PendingEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	failed, ok := events[0].(event.PaymentFailed)
	if !ok {
		t.Fatalf("expected PaymentFailed, got %T", events[0])
	}
	if failed.Reason != "card declined" {
		t.Errorf("expected reason on event, got %q", failed.Reason)
	}
}

func TestTransitions_TerminalStatesAreFinal(t *testing.T) {
	p, _ := payment.New(uuid.New(), uuid.New(), "cust-1", 2500, "USD")
	p.MarkCompleted("txn")

	if err := p.MarkFailed("late failure"); !errors.Is(err, domainErrors.ErrInvalidStateTransition) {
		t.Errorf("expected ErrInvalidStateTransition, got %v", err)
	}
	if p.Status != payment.StatusCompleted {
		t.Errorf("status must stay completed, got %s", p.Status)
	}
}
