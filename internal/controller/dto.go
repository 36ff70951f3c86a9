package controller

import (
	"time"

	"github.com/cassiomorais/ordersaga/internal/domain/order"
	"github.com/cassiomorais/ordersaga/internal/domain/retry"
	"github.com/google/uuid"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (string IDs, validation tags).
// Controllers convert these to use-case inputs before calling business logic.

// CreateOrderRequest holds the input for creating an order.
type CreateOrderRequest struct {
	CustomerID  string `json:"customer_id" validate:"required"`
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"required,len=3"`
	CardNumber  string `json:"card_number" validate:"required,min=12,max=23"`
}

// --- Response DTOs ---

// ErrorResponse is the error envelope for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// OrderResponse represents an order in API responses. The card number is
// never echoed back.
type OrderResponse struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AttemptResponse represents one payment attempt in API responses.
type AttemptResponse struct {
	AttemptNumber int        `json:"attempt_number"`
	TransactionID string     `json:"transaction_id"`
	AttemptedAt   time.Time  `json:"attempted_at"`
	Outcome       *string    `json:"outcome,omitempty"`
	FailureReason *string    `json:"failure_reason,omitempty"`
}

// RetryHistoryResponse represents the retry state of an order's payment.
type RetryHistoryResponse struct {
	OrderID              string            `json:"order_id"`
	CurrentTransactionID string            `json:"current_transaction_id,omitempty"`
	Status               string            `json:"status"`
	AttemptCount         int               `json:"attempt_count"`
	MaxAttempts          int               `json:"max_attempts"`
	FirstAttemptAt       *time.Time        `json:"first_attempt_at,omitempty"`
	NextRetryAt          *time.Time        `json:"next_retry_at,omitempty"`
	Attempts             []AttemptResponse `json:"attempts"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// OrderDetailResponse combines the order with its retry history.
type OrderDetailResponse struct {
	Order OrderResponse        `json:"order"`
	Retry RetryHistoryResponse `json:"retry"`
}

// StatisticsResponse reports aggregate retry outcomes over a time window.
type StatisticsResponse struct {
	Pending         int     `json:"pending"`
	Retrying        int     `json:"retrying"`
	Successful      int     `json:"successful"`
	FinallyFailed   int     `json:"finally_failed"`
	AverageAttempts float64 `json:"average_attempts"`
	MaxAttempts     int     `json:"max_attempts"`
	SuccessRate     float64 `json:"success_rate"`
	FailureRate     float64 `json:"failure_rate"`
}

// StaleRetryResponse is one stuck non-terminal retry record.
type StaleRetryResponse struct {
	OrderID              string     `json:"order_id"`
	CurrentTransactionID string     `json:"current_transaction_id,omitempty"`
	Status               string     `json:"status"`
	AttemptCount         int        `json:"attempt_count"`
	MaxAttempts          int        `json:"max_attempts"`
	NextRetryAt          *time.Time `json:"next_retry_at,omitempty"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func toOrderResponse(o *order.Order) OrderResponse {
	return OrderResponse{
		ID:          o.ID.String(),
		CustomerID:  o.CustomerID,
		AmountCents: o.AmountCents,
		Currency:    o.Currency,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func toRetryHistoryResponse(h *retry.History) RetryHistoryResponse {
	attempts := make([]AttemptResponse, 0, len(h.Attempts))
	for _, a := range h.Attempts {
		attempt := AttemptResponse{
			AttemptNumber: a.AttemptNumber,
			TransactionID: a.TransactionID.String(),
			AttemptedAt:   a.AttemptedAt,
			FailureReason: a.FailureReason,
		}
		if a.Outcome != nil {
			outcome := string(*a.Outcome)
			attempt.Outcome = &outcome
		}
		attempts = append(attempts, attempt)
	}

	resp := RetryHistoryResponse{
		OrderID:        h.OrderID.String(),
		Status:         string(h.Status),
		AttemptCount:   h.AttemptCount,
		MaxAttempts:    h.MaxAttempts,
		FirstAttemptAt: h.FirstAttemptAt,
		NextRetryAt:    h.NextRetryAt,
		Attempts:       attempts,
		CreatedAt:      h.CreatedAt,
		UpdatedAt:      h.UpdatedAt,
	}
	if h.CurrentTransactionID != uuid.Nil {
		resp.CurrentTransactionID = h.CurrentTransactionID.String()
	}
	return resp
}

func toStaleRetryResponse(h *retry.History) StaleRetryResponse {
	resp := StaleRetryResponse{
		OrderID:      h.OrderID.String(),
		Status:       string(h.Status),
		AttemptCount: h.AttemptCount,
		MaxAttempts:  h.MaxAttempts,
		NextRetryAt:  h.NextRetryAt,
		UpdatedAt:    h.UpdatedAt,
	}
	if h.CurrentTransactionID != uuid.Nil {
		resp.CurrentTransactionID = h.CurrentTransactionID.String()
	}
	return resp
}

func toStatisticsResponse(s retry.Statistics) StatisticsResponse {
	return StatisticsResponse{
		Pending:         s.Pending,
		Retrying:        s.Retrying,
		Successful:      s.Successful,
		FinallyFailed:   s.FinallyFailed,
		AverageAttempts: s.AverageAttempts,
		MaxAttempts:     s.MaxAttempts,
		SuccessRate:     s.SuccessRate,
		FailureRate:     s.FailureRate,
	}
}
