package providers

import (
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/cassiomorais/ordersaga/internal/infrastructure/observability"
	"github.com/sony/gobreaker/v2"
)

// Factory holds the registered providers and one circuit breaker per
// provider. The breaker is keyed by provider name so a flapping acquirer
// does not block charges routed elsewhere.
type Factory struct {
	providers       map[string]Provider
	circuitBreakers map[string]*gobreaker.CircuitBreaker[*ProviderResult]
	metrics         *observability.Metrics
}

// NewFactory registers the given providers, or a default stripe/paypal pair
// of simulators when called with none. Passing any provider replaces the
// defaults entirely. A nil metrics leaves the breakers uninstrumented.
func NewFactory(metrics *observability.Metrics, providersList ...Provider) *Factory {
	f := &Factory{
		providers:       make(map[string]Provider),
		circuitBreakers: make(map[string]*gobreaker.CircuitBreaker[*ProviderResult]),
		metrics:         metrics,
	}

	if len(providersList) == 0 {
		f.Register(NewMockProvider("stripe",
			WithLatency(200*time.Millisecond),
			WithFailureRate(0.05),
		))
		f.Register(NewMockProvider("paypal",
			WithLatency(300*time.Millisecond),
			WithFailureRate(0.08),
		))
	} else {
		for _, p := range providersList {
			f.Register(p)
		}
	}

	return f
}

// Register adds a provider and wires a fresh breaker for it. The breaker
// opens after 10 requests with a 60% failure ratio and half-opens after 30s.
func (f *Factory) Register(p Provider) {
	f.providers[p.Name()] = p
	f.circuitBreakers[p.Name()] = gobreaker.NewCircuitBreaker[*ProviderResult](gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if f.metrics != nil {
				f.metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			}
		},
	})
	if f.metrics != nil {
		f.metrics.CircuitBreakerState.WithLabelValues(p.Name()).Set(breakerStateValue(gobreaker.StateClosed))
	}
}

func (f *Factory) Get(name string) (Provider, *gobreaker.CircuitBreaker[*ProviderResult], error) {
	p, ok := f.providers[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown provider %q: %w", name, domainErrors.ErrProviderNotFound)
	}
	breaker := f.circuitBreakers[name]
	return p, breaker, nil
}

// Execute runs fn through the named provider's breaker and counts the
// request outcome. An open breaker rejects without invoking fn.
func (f *Factory) Execute(name string, fn func() (*ProviderResult, error)) (*ProviderResult, error) {
	breaker, ok := f.circuitBreakers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q: %w", name, domainErrors.ErrProviderNotFound)
	}

	result, err := breaker.Execute(fn)
	if f.metrics != nil {
		f.metrics.CircuitBreakerRequests.WithLabelValues(name, breakerOutcome(err)).Inc()
	}
	return result, err
}

func breakerOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "rejected"
	default:
		return "error"
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
