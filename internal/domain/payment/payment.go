package payment

import (
	"time"

	"github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/cassiomorais/ordersaga/internal/domain/event"
	"github.com/google/uuid"
)

// Status represents the payment status in the state machine
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Payment represents a single payment execution attempt on the payment
// service side, keyed by the transaction id of the request that created it.
type Payment struct {
	event.AggregateRoot

	ID                    uuid.UUID
	TransactionID         uuid.UUID
	OrderID               uuid.UUID
	CustomerID            string
	AmountCents           int64
	Currency              string
	Status                Status
	ProviderTransactionID *string
	LastError             *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
	CompletedAt           *time.Time
}

// New creates a payment in processing state for an inbound payment request.
func New(transactionID, orderID uuid.UUID, customerID string, amountCents int64, currency string) (*Payment, error) {
	if amountCents <= 0 {
		return nil, errors.NewValidationError("amount_cents", "must be greater than 0")
	}
	if len(currency) != 3 {
		return nil, errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}

	now := time.Now()
	return &Payment{
		ID:            uuid.New(),
		TransactionID: transactionID,
		OrderID:       orderID,
		CustomerID:    customerID,
		AmountCents:   amountCents,
		Currency:      currency,
		Status:        StatusProcessing,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// CanTransitionTo checks if the payment can transition to the given status
func (p *Payment) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusProcessing: {StatusCompleted, StatusFailed},
		StatusCompleted:  {}, // Terminal state
		StatusFailed:     {}, // Terminal state
	}

	allowed, exists := transitions[p.Status]
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

// TransitionTo transitions the payment to a new status
func (p *Payment) TransitionTo(newStatus Status) error {
	if !p.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(p.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}

	p.Status = newStatus
	p.UpdatedAt = time.Now()

	if newStatus == StatusCompleted || newStatus == StatusFailed {
		now := time.Now()
		p.CompletedAt = &now
	}
	return nil
}

// MarkCompleted transitions the payment to completed and records the
// PaymentProcessed event for the outbox.
func (p *Payment) MarkCompleted(providerTxID string) error {
	if err := p.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	p.ProviderTransactionID = &providerTxID
	p.Record(event.NewPaymentProcessed(p.ID, p.OrderID, p.TransactionID, p.AmountCents, p.Currency))
	return nil
}

// MarkFailed transitions the payment to failed and records the
// PaymentFailed event for the outbox.
func (p *Payment) MarkFailed(reason string) error {
	if err := p.TransitionTo(StatusFailed); err != nil {
		return err
	}
	p.LastError = &reason
	p.Record(event.NewPaymentFailed(p.ID, p.OrderID, p.TransactionID, reason))
	return nil
}

// IsTerminal checks if the payment is in a terminal state
func (p *Payment) IsTerminal() bool {
	return p.Status == StatusCompleted || p.Status == StatusFailed
}
