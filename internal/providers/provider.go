package providers

import (
	"context"
)

// ProviderResult is the normalized outcome of a provider call. TransactionID
// is the provider's own reference, distinct from the saga transaction id the
// retry machinery tracks.
type ProviderResult struct {
	TransactionID string
	Status        string // "success", "failed"
	ErrorMessage  string
}

// Provider is the acquirer-facing port used by the payment worker. A nil
// error with Status "failed" never occurs: rejections carry both a result
// and ErrProviderRejected so callers can compensate.
type Provider interface {
	// Name returns the provider name.
	Name() string
	// ProcessPayment charges the card through the provider.
	ProcessPayment(ctx context.Context, req ProcessRequest) (*ProviderResult, error)
	// RefundPayment reverses a charge through the provider.
	RefundPayment(ctx context.Context, req RefundRequest) (*ProviderResult, error)
}

type ProcessRequest struct {
	PaymentID   string
	CardNumber  string
	AmountCents int64 // in cents
	Currency    string
	Metadata    map[string]any
}

type RefundRequest struct {
	PaymentID     string
	TransactionID string
	AmountCents   int64 // in cents
	Currency      string
}
