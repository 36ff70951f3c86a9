package errors

import (
	"errors"
	"fmt"
)

var (
	// Order errors
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderNotPending = errors.New("order is not pending")

	// Payment errors
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidCardNumber       = errors.New("invalid card number")
	ErrInvalidStateTransition  = errors.New("invalid state transition")
	ErrPaymentAlreadyProcessed = errors.New("payment already processed")

	// Event/dispatch errors
	ErrUnsupportedEvent = errors.New("unsupported event type")

	// Retry errors
	ErrRetryNotFound       = errors.New("retry history not found")
	ErrMaxAttemptsExceeded = errors.New("max attempts exceeded")
	ErrRetryTerminal       = errors.New("retry history is in a terminal state")
	ErrStaleTransaction    = errors.New("stale transaction id")

	// Provider errors
	ErrProviderNotFound    = errors.New("payment provider not found")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrProviderRejected    = errors.New("payment rejected by provider")

	// Messaging errors
	ErrMessagePublish = errors.New("message publish failed")
	ErrMessageExpired = errors.New("message expired")

	// Lock errors
	ErrLockAcquisitionFailed = errors.New("failed to acquire lock")
	ErrLockNotHeld           = errors.New("lock not held")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
