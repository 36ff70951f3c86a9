package order

import (
	"time"

	"github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/cassiomorais/ordersaga/internal/domain/event"
	"github.com/cassiomorais/ordersaga/pkg/card"
	"github.com/google/uuid"
)

// Status represents the order status in the state machine
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Order represents a customer purchase awaiting payment
type Order struct {
	event.AggregateRoot

	ID          uuid.UUID
	CustomerID  string
	AmountCents int64
	Currency    string
	CardNumber  string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New creates a pending order and records the PaymentRequested event.
func New(customerID string, amountCents int64, currency, cardNumber string) (*Order, error) {
	if customerID == "" {
		return nil, errors.NewValidationError("customer_id", "cannot be empty")
	}
	if amountCents <= 0 {
		return nil, errors.NewValidationError("amount_cents", "must be greater than 0")
	}
	if len(currency) != 3 {
		return nil, errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	if !card.ValidNumber(cardNumber) {
		return nil, errors.ErrInvalidCardNumber
	}

	now := time.Now()
	o := &Order{
		ID:          uuid.New(),
		CustomerID:  customerID,
		AmountCents: amountCents,
		Currency:    currency,
		CardNumber:  cardNumber,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	o.Record(event.NewPaymentRequested(o.ID, o.CustomerID, o.AmountCents, o.Currency))
	return o, nil
}

// CanTransitionTo checks if the order can transition to the given status
func (o *Order) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {}, // Terminal state
		StatusCancelled: {}, // Terminal state
	}

	allowed, exists := transitions[o.Status]
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

// TransitionTo transitions the order to a new status
func (o *Order) TransitionTo(newStatus Status) error {
	if !o.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(o.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}
	o.Status = newStatus
	o.UpdatedAt = time.Now()
	return nil
}

// Confirm marks the order confirmed after a successful payment.
func (o *Order) Confirm() error {
	return o.TransitionTo(StatusConfirmed)
}

// Cancel marks the order cancelled, the compensating action when the
// payment saga finally fails.
func (o *Order) Cancel() error {
	return o.TransitionTo(StatusCancelled)
}

// IsTerminal checks if the order is in a terminal state
func (o *Order) IsTerminal() bool {
	return o.Status == StatusConfirmed || o.Status == StatusCancelled
}
