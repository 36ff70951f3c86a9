package controller

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cassiomorais/ordersaga/internal/domain/order"
	"github.com/cassiomorais/ordersaga/internal/domain/retry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToOrderResponse_NeverEchoesCardNumber(t *testing.T) {
	o, err := order.New("cust-1", 4999, "USD", "4242424242424242")
	require.NoError(t, err)

	resp := toOrderResponse(o)
	assert.Equal(t, o.ID.String(), resp.ID)
	assert.Equal(t, int64(4999), resp.AmountCents)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "4242424242424242")
}

func TestToRetryHistoryResponse_BeforeFirstAttempt(t *testing.T) {
	h, err := retry.NewHistory(uuid.New(), 5)
	require.NoError(t, err)

	resp := toRetryHistoryResponse(h)
	assert.Equal(t, string(retry.StatusPending), resp.Status)
	assert.Equal(t, 0, resp.AttemptCount)
	assert.Empty(t, resp.CurrentTransactionID)
	assert.Nil(t, resp.FirstAttemptAt)
	assert.Nil(t, resp.NextRetryAt)
	assert.Empty(t, resp.Attempts)

	// The nil transaction id must be omitted from the JSON, not
	// serialized as a zero UUID.
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "current_transaction_id")
	assert.NotContains(t, string(raw), uuid.Nil.String())
}

func TestToRetryHistoryResponse_WithAttempts(t *testing.T) {
	h, err := retry.NewHistory(uuid.New(), 5)
	require.NoError(t, err)

	attempt, err := h.StartAttempt(time.Now())
	require.NoError(t, err)
	require.NoError(t, h.MarkFailed(attempt.TransactionID, "card declined"))

	resp := toRetryHistoryResponse(h)
	assert.Equal(t, string(retry.StatusRetrying), resp.Status)
	assert.Equal(t, 1, resp.AttemptCount)
	assert.Equal(t, attempt.TransactionID.String(), resp.CurrentTransactionID)
	require.Len(t, resp.Attempts, 1)

	a := resp.Attempts[0]
	assert.Equal(t, 1, a.AttemptNumber)
	assert.Equal(t, attempt.TransactionID.String(), a.TransactionID)
	require.NotNil(t, a.Outcome)
	assert.Equal(t, string(retry.OutcomeFailed), *a.Outcome)
	require.NotNil(t, a.FailureReason)
	assert.Equal(t, "card declined", *a.FailureReason)
}

func TestToStaleRetryResponse(t *testing.T) {
	h, err := retry.NewHistory(uuid.New(), 5)
	require.NoError(t, err)
	attempt, err := h.StartAttempt(time.Now())
	require.NoError(t, err)
	h.ScheduleNext(time.Now().Add(time.Minute))

	resp := toStaleRetryResponse(h)
	assert.Equal(t, h.OrderID.String(), resp.OrderID)
	assert.Equal(t, attempt.TransactionID.String(), resp.CurrentTransactionID)
	assert.Equal(t, 1, resp.AttemptCount)
	assert.NotNil(t, resp.NextRetryAt)
}

func TestToStatisticsResponse(t *testing.T) {
	resp := toStatisticsResponse(retry.Statistics{
		Pending:         2,
		Retrying:        1,
		Successful:      5,
		FinallyFailed:   1,
		AverageAttempts: 1.5,
		MaxAttempts:     3,
		SuccessRate:     5.0 / 6.0,
		FailureRate:     1.0 / 6.0,
	})

	assert.Equal(t, 2, resp.Pending)
	assert.Equal(t, 5, resp.Successful)
	assert.InDelta(t, 0.833, resp.SuccessRate, 0.001)
	assert.InDelta(t, 0.167, resp.FailureRate, 0.001)
}
