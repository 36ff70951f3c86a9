package messaging

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/google/uuid"
)

const (
	eventTypePaymentRequest      = "PaymentRequest"
	eventTypePaymentConfirmation = "PaymentConfirmation"
	eventTypePaymentFailure      = "PaymentFailure"
	sourceOrderService           = "order-service"
	sourcePaymentService         = "payment-service"
	schemaVersion                = "1.0"
	contentTypeJSON              = "application/json"
)

// PaymentRequestMessage is the outbound request from the order service to
// the payment service, tagged with the transaction id of the attempt.
type PaymentRequestMessage struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	OrderID       uuid.UUID `json:"order_id"`
	CustomerID    string    `json:"customer_id"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	CardNumber    string    `json:"card_number"`
	Timestamp     time.Time `json:"timestamp"`
}

// PaymentConfirmationMessage reports a successful payment back to the
// order service.
type PaymentConfirmationMessage struct {
	OrderID       uuid.UUID `json:"order_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	PaymentID     uuid.UUID `json:"payment_id"`
	Status        string    `json:"status"`
}

// PaymentFailureMessage reports a failed payment back to the order service.
type PaymentFailureMessage struct {
	OrderID       uuid.UUID `json:"order_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Reason        string    `json:"reason"`
}

// envelope builds the stream entry for an outbound payment request:
// serialized payload plus the message metadata headers consumers filter on.
func envelope(msg PaymentRequestMessage, ttl time.Duration) (map[string]any, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal payment request: %w", err)
	}
	now := time.Now()
	return map[string]any{
		"message_id":     uuid.New().String(),
		"correlation_id": msg.TransactionID.String(),
		"content_type":   contentTypeJSON,
		"event_type":     eventTypePaymentRequest,
		"order_id":       msg.OrderID.String(),
		"customer_id":    msg.CustomerID,
		"amount":         strconv.FormatInt(msg.AmountCents, 10),
		"currency":       msg.Currency,
		"source":         sourceOrderService,
		"version":        schemaVersion,
		"timestamp":      strconv.FormatInt(msg.Timestamp.UnixMilli(), 10),
		"expires_at":     strconv.FormatInt(now.Add(ttl).UnixMilli(), 10),
		"payload":        string(payload),
	}, nil
}

// ConfirmationEnvelope builds the stream entry for a successful payment
// reported back to the order service.
func ConfirmationEnvelope(msg PaymentConfirmationMessage) (map[string]any, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal payment confirmation: %w", err)
	}
	return map[string]any{
		"message_id":     uuid.New().String(),
		"correlation_id": msg.TransactionID.String(),
		"content_type":   contentTypeJSON,
		"event_type":     eventTypePaymentConfirmation,
		"order_id":       msg.OrderID.String(),
		"source":         sourcePaymentService,
		"version":        schemaVersion,
		"timestamp":      strconv.FormatInt(time.Now().UnixMilli(), 10),
		"payload":        string(payload),
	}, nil
}

// FailureEnvelope builds the stream entry for a failed payment reported
// back to the order service.
func FailureEnvelope(msg PaymentFailureMessage) (map[string]any, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal payment failure: %w", err)
	}
	return map[string]any{
		"message_id":     uuid.New().String(),
		"correlation_id": msg.TransactionID.String(),
		"content_type":   contentTypeJSON,
		"event_type":     eventTypePaymentFailure,
		"order_id":       msg.OrderID.String(),
		"source":         sourcePaymentService,
		"version":        schemaVersion,
		"timestamp":      strconv.FormatInt(time.Now().UnixMilli(), 10),
		"payload":        string(payload),
	}, nil
}

// decodeRequest parses a payment-request stream entry and enforces its TTL.
func decodeRequest(values map[string]any, now time.Time) (PaymentRequestMessage, error) {
	var msg PaymentRequestMessage

	raw, _ := values["payload"].(string)
	if raw == "" {
		return msg, fmt.Errorf("%w: missing payload", domainErrors.ErrInvalidInput)
	}
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return msg, fmt.Errorf("unmarshal payment request: %w", err)
	}

	if expStr, ok := values["expires_at"].(string); ok {
		expMilli, err := strconv.ParseInt(expStr, 10, 64)
		if err == nil && now.After(time.UnixMilli(expMilli)) {
			return msg, domainErrors.ErrMessageExpired
		}
	}
	return msg, nil
}

func decodeConfirmation(values map[string]any) (PaymentConfirmationMessage, error) {
	var msg PaymentConfirmationMessage
	raw, _ := values["payload"].(string)
	if raw == "" {
		return msg, fmt.Errorf("%w: missing payload", domainErrors.ErrInvalidInput)
	}
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return msg, fmt.Errorf("unmarshal payment confirmation: %w", err)
	}
	return msg, nil
}

func decodeFailure(values map[string]any) (PaymentFailureMessage, error) {
	var msg PaymentFailureMessage
	raw, _ := values["payload"].(string)
	if raw == "" {
		return msg, fmt.Errorf("%w: missing payload", domainErrors.ErrInvalidInput)
	}
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return msg, fmt.Errorf("unmarshal payment failure: %w", err)
	}
	return msg, nil
}
