package providers

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/google/uuid"
)

// MockProvider stands in for a real acquirer in local runs. Its failure and
// timeout rates exist to exercise the retry pipeline end to end: a rejected
// charge feeds the retry state machine, a timeout trips the circuit breaker.
type MockProvider struct {
	name        string
	failureRate float64 // 0.0 to 1.0
	latency     time.Duration
	timeoutRate float64 // 0.0 to 1.0

	mu  sync.Mutex
	rng *rand.Rand
}

type MockProviderOption func(*MockProvider)

func WithFailureRate(rate float64) MockProviderOption {
	return func(p *MockProvider) { p.failureRate = rate }
}

func WithLatency(d time.Duration) MockProviderOption {
	return func(p *MockProvider) { p.latency = d }
}

func WithTimeoutRate(rate float64) MockProviderOption {
	return func(p *MockProvider) { p.timeoutRate = rate }
}

func NewMockProvider(name string, opts ...MockProviderOption) *MockProvider {
	p := &MockProvider{
		name:    name,
		latency: 100 * time.Millisecond,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *MockProvider) Name() string { return p.name }

func (p *MockProvider) ProcessPayment(ctx context.Context, req ProcessRequest) (*ProviderResult, error) {
	if err := p.simulateLatency(ctx); err != nil {
		return nil, err
	}

	if p.roll() < p.timeoutRate {
		return nil, domainErrors.ErrProviderUnavailable
	}

	if p.roll() < p.failureRate {
		return &ProviderResult{
			Status:       "failed",
			ErrorMessage: fmt.Sprintf("%s: simulated processing failure for payment %s", p.name, req.PaymentID),
		}, domainErrors.ErrProviderRejected
	}

	return &ProviderResult{
		TransactionID: fmt.Sprintf("%s_txn_%s", p.name, uuid.New().String()[:8]),
		Status:        "success",
	}, nil
}

func (p *MockProvider) RefundPayment(ctx context.Context, req RefundRequest) (*ProviderResult, error) {
	if err := p.simulateLatency(ctx); err != nil {
		return nil, err
	}

	if p.roll() < p.failureRate {
		return &ProviderResult{
			Status:       "failed",
			ErrorMessage: fmt.Sprintf("%s: simulated refund failure", p.name),
		}, domainErrors.ErrProviderRejected
	}

	return &ProviderResult{
		TransactionID: fmt.Sprintf("%s_refund_%s", p.name, uuid.New().String()[:8]),
		Status:        "success",
	}, nil
}

func (p *MockProvider) simulateLatency(ctx context.Context) error {
	select {
	case <-time.After(p.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *MockProvider) roll() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64()
}
