package testutil

import (
	"time"

	"github.com/cassiomorais/ordersaga/internal/domain/order"
	"github.com/cassiomorais/ordersaga/internal/domain/payment"
	"github.com/cassiomorais/ordersaga/internal/domain/retry"
	"github.com/google/uuid"
)

// TestCardNumber passes the Luhn check and is safe for fixtures.
const TestCardNumber = "4242424242424242"

func NewTestOrder(customerID string, amountCents int64, currency string) *order.Order {
	o, err := order.New(customerID, amountCents, currency, TestCardNumber)
	if err != nil {
		panic(err)
	}
	o.ClearEvents()
	return o
}

func NewTestHistory(orderID uuid.UUID, maxAttempts int) *retry.History {
	h, err := retry.NewHistory(orderID, maxAttempts)
	if err != nil {
		panic(err)
	}
	return h
}

// NewRetryingHistory returns a history with one in-flight attempt started
// at the given instant, plus that attempt's transaction id.
func NewRetryingHistory(orderID uuid.UUID, maxAttempts int, at time.Time) (*retry.History, uuid.UUID) {
	h := NewTestHistory(orderID, maxAttempts)
	att, err := h.StartAttempt(at)
	if err != nil {
		panic(err)
	}
	return h, att.TransactionID
}

func NewTestPayment(transactionID, orderID uuid.UUID, amountCents int64, currency string) *payment.Payment {
	p, err := payment.New(transactionID, orderID, "cust-1", amountCents, currency)
	if err != nil {
		panic(err)
	}
	return p
}
