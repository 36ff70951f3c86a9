package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		payload      any
		expectedBody string
	}{
		{
			name:         "simple map",
			status:       http.StatusOK,
			payload:      map[string]string{"message": "hello"},
			expectedBody: `{"message":"hello"}`,
		},
		{
			name:         "error response",
			status:       http.StatusBadRequest,
			payload:      ErrorResponse{Error: "bad request", Code: "invalid_input"},
			expectedBody: `{"error":"bad request","code":"invalid_input"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeJSON(w, tt.status, tt.payload)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestWriteError_ValidationError(t *testing.T) {
	w := httptest.NewRecorder()
	err := domainErrors.NewValidationError("currency", "must be a 3-letter code")

	writeError(w, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	json.NewDecoder(w.Body).Decode(&response)
	assert.Equal(t, "validation_error", response.Code)
	assert.Contains(t, response.Error, "currency")
}

func TestWriteError_DomainErrors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "order not found",
			err:            domainErrors.ErrOrderNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   "not_found",
		},
		{
			name:           "retry history not found",
			err:            domainErrors.ErrRetryNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   "not_found",
		},
		{
			name:           "payment not found",
			err:            domainErrors.ErrPaymentNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   "not_found",
		},
		{
			name:           "invalid card number",
			err:            domainErrors.ErrInvalidCardNumber,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "invalid_card_number",
		},
		{
			name:           "invalid amount",
			err:            domainErrors.ErrInvalidAmount,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "invalid_amount",
		},
		{
			name:           "invalid state transition",
			err:            domainErrors.ErrInvalidStateTransition,
			expectedStatus: http.StatusConflict,
			expectedCode:   "invalid_state_transition",
		},
		{
			name:           "retry terminal",
			err:            domainErrors.ErrRetryTerminal,
			expectedStatus: http.StatusConflict,
			expectedCode:   "retry_terminal",
		},
		{
			name:           "max attempts exceeded",
			err:            domainErrors.ErrMaxAttemptsExceeded,
			expectedStatus: http.StatusConflict,
			expectedCode:   "max_attempts_exceeded",
		},
		{
			name:           "provider unavailable",
			err:            domainErrors.ErrProviderUnavailable,
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   "provider_unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response ErrorResponse
			err := json.NewDecoder(w.Body).Decode(&response)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCode, response.Code)
		})
	}
}

func TestWriteError_WrappedSentinel(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, errors.Join(errors.New("lookup order abc"), domainErrors.ErrOrderNotFound))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWriteError_GenericDomainError(t *testing.T) {
	w := httptest.NewRecorder()
	err := domainErrors.NewDomainError("custom_error", "custom error message", nil)

	writeError(w, err)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var response ErrorResponse
	json.NewDecoder(w.Body).Decode(&response)
	assert.Equal(t, "custom_error", response.Code)
	assert.Equal(t, "custom error message", response.Error)
}

func TestWriteError_UnknownError_FallbackToInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()
	err := errors.New("unexpected error")

	writeError(w, err)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response ErrorResponse
	json.NewDecoder(w.Body).Decode(&response)
	assert.Equal(t, "internal_error", response.Code)
	// The raw error must not leak to clients.
	assert.Equal(t, "internal server error", response.Error)
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"customer_id":"cust-1","amount_cents":4999,"currency":"USD","card_number":"4242424242424242"}`
	req := httptest.NewRequest("POST", "/test", strings.NewReader(body))

	var result CreateOrderRequest
	err := decodeAndValidate(req, &result)

	require.NoError(t, err)
	assert.Equal(t, "cust-1", result.CustomerID)
	assert.Equal(t, int64(4999), result.AmountCents)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", strings.NewReader(`{invalid json}`))

	var result CreateOrderRequest
	err := decodeAndValidate(req, &result)

	assert.Error(t, err)
	var validationErr *domainErrors.ValidationError
	assert.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "body", validationErr.Field)
	assert.Contains(t, validationErr.Message, "invalid JSON")
}

func TestDecodeAndValidate_ValidationFailure_RequiredField(t *testing.T) {
	body := `{"customer_id":"","amount_cents":4999,"currency":"USD","card_number":"4242424242424242"}`
	req := httptest.NewRequest("POST", "/test", strings.NewReader(body))

	var result CreateOrderRequest
	err := decodeAndValidate(req, &result)

	assert.Error(t, err)
	var validationErr *domainErrors.ValidationError
	assert.True(t, errors.As(err, &validationErr))
	assert.Contains(t, validationErr.Message, "validation failed")
}

func TestDecodeAndValidate_ValidationFailure_CurrencyLength(t *testing.T) {
	body := `{"customer_id":"cust-1","amount_cents":4999,"currency":"US","card_number":"4242424242424242"}`
	req := httptest.NewRequest("POST", "/test", strings.NewReader(body))

	var result CreateOrderRequest
	err := decodeAndValidate(req, &result)

	assert.Error(t, err)
	var validationErr *domainErrors.ValidationError
	assert.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "Currency", validationErr.Field)
}

func TestDecodeAndValidate_EmptyBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", bytes.NewReader([]byte{}))

	var result CreateOrderRequest
	err := decodeAndValidate(req, &result)

	assert.Error(t, err)
}
