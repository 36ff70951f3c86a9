package event

import (
	"time"

	"github.com/google/uuid"
)

// Type discriminates the closed set of domain event variants.
type Type string

const (
	TypePaymentRequested Type = "payment.requested"
	TypePaymentProcessed Type = "payment.processed"
	TypePaymentFailed    Type = "payment.failed"
)

// Event is an immutable fact produced by an aggregate operation.
type Event interface {
	EventID() uuid.UUID
	EventType() Type
	OccurredAt() time.Time
}

// Base carries the fields shared by every event variant.
type Base struct {
	ID   uuid.UUID
	Type Type
	At   time.Time
}

func newBase(t Type) Base {
	return Base{ID: uuid.New(), Type: t, At: time.Now()}
}

func (b Base) EventID() uuid.UUID    { return b.ID }
func (b Base) EventType() Type       { return b.Type }
func (b Base) OccurredAt() time.Time { return b.At }

// PaymentRequested is raised by the order aggregate when an order is placed
// and a payment must be executed by the payment service.
type PaymentRequested struct {
	Base
	OrderID     uuid.UUID
	CustomerID  string
	AmountCents int64
	Currency    string
}

func NewPaymentRequested(orderID uuid.UUID, customerID string, amountCents int64, currency string) PaymentRequested {
	return PaymentRequested{
		Base:        newBase(TypePaymentRequested),
		OrderID:     orderID,
		CustomerID:  customerID,
		AmountCents: amountCents,
		Currency:    currency,
	}
}

// PaymentProcessed is raised by the payment aggregate when a payment
// attempt succeeded.
type PaymentProcessed struct {
	Base
	PaymentID     uuid.UUID
	OrderID       uuid.UUID
	TransactionID uuid.UUID
	AmountCents   int64
	Currency      string
}

func NewPaymentProcessed(paymentID, orderID, transactionID uuid.UUID, amountCents int64, currency string) PaymentProcessed {
	return PaymentProcessed{
		Base:          newBase(TypePaymentProcessed),
		PaymentID:     paymentID,
		OrderID:       orderID,
		TransactionID: transactionID,
		AmountCents:   amountCents,
		Currency:      currency,
	}
}

// PaymentFailed is raised by the payment aggregate when a payment attempt
// was rejected or errored.
type PaymentFailed struct {
	Base
	PaymentID     uuid.UUID
	OrderID       uuid.UUID
	TransactionID uuid.UUID
	Reason        string
}

func NewPaymentFailed(paymentID, orderID, transactionID uuid.UUID, reason string) PaymentFailed {
	return PaymentFailed{
		Base:          newBase(TypePaymentFailed),
		PaymentID:     paymentID,
		OrderID:       orderID,
		TransactionID: transactionID,
		Reason:        reason,
	}
}
