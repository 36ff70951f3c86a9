package providers_test

import (
	"context"
	"errors"
	"testing"

	domainErrors "github.com/cassiomorais/ordersaga/internal/domain/errors"
	"github.com/cassiomorais/ordersaga/internal/infrastructure/observability"
	"github.com/cassiomorais/ordersaga/internal/providers"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProvider_Success(t *testing.T) {
	p := providers.NewMockProvider("stripe",
		providers.WithLatency(0),
		providers.WithFailureRate(0),
	)

	result, err := p.ProcessPayment(context.Background(), providers.ProcessRequest{
		PaymentID:   "pay-1",
		CardNumber:  "4242424242424242",
		AmountCents: 2500,
		Currency:    "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Contains(t, result.TransactionID, "stripe_txn_")
}

func TestMockProvider_AlwaysFails(t *testing.T) {
	p := providers.NewMockProvider("stripe",
		providers.WithLatency(0),
		providers.WithFailureRate(1.0),
	)

	result, err := p.ProcessPayment(context.Background(), providers.ProcessRequest{PaymentID: "pay-1"})
	assert.ErrorIs(t, err, domainErrors.ErrProviderRejected)
	require.NotNil(t, result)
	assert.Equal(t, "failed", result.Status)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestMockProvider_AlwaysTimesOut(t *testing.T) {
	p := providers.NewMockProvider("stripe",
		providers.WithLatency(0),
		providers.WithTimeoutRate(1.0),
	)

	_, err := p.ProcessPayment(context.Background(), providers.ProcessRequest{PaymentID: "pay-1"})
	assert.ErrorIs(t, err, domainErrors.ErrProviderUnavailable)
}

func TestMockProvider_ContextCancelled(t *testing.T) {
	p := providers.NewMockProvider("stripe")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ProcessPayment(ctx, providers.ProcessRequest{PaymentID: "pay-1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockProvider_Refund(t *testing.T) {
	p := providers.NewMockProvider("stripe",
		providers.WithLatency(0),
		providers.WithFailureRate(0),
	)

	result, err := p.RefundPayment(context.Background(), providers.RefundRequest{
		PaymentID:     "pay-1",
		TransactionID: "stripe_txn_abc",
		AmountCents:   2500,
		Currency:      "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Contains(t, result.TransactionID, "stripe_refund_")
}

func TestFactory_DefaultProviders(t *testing.T) {
	f := providers.NewFactory(nil)

	for _, name := range []string{"stripe", "paypal"} {
		p, breaker, err := f.Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name())
		assert.NotNil(t, breaker)
	}
}

func TestFactory_UnknownProvider(t *testing.T) {
	f := providers.NewFactory(nil)

	_, _, err := f.Get("adyen")
	assert.ErrorIs(t, err, domainErrors.ErrProviderNotFound)
}

func TestFactory_CustomProviderReplacesDefaults(t *testing.T) {
	f := providers.NewFactory(nil, providers.NewMockProvider("custom"))

	_, _, err := f.Get("custom")
	assert.NoError(t, err)
	_, _, err = f.Get("stripe")
	assert.Error(t, err)
}

func TestFactory_ExecuteCountsRequestOutcomes(t *testing.T) {
	metrics := observability.NewMetrics("test_factory", prometheus.NewRegistry())
	f := providers.NewFactory(metrics, providers.NewMockProvider("stripe",
		providers.WithLatency(0),
		providers.WithFailureRate(0),
	))

	result, err := f.Execute("stripe", func() (*providers.ProviderResult, error) {
		return &providers.ProviderResult{Status: "success"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)

	_, err = f.Execute("stripe", func() (*providers.ProviderResult, error) {
		return nil, domainErrors.ErrProviderUnavailable
	})
	require.Error(t, err)

	assert.Equal(t, float64(1), promtestutil.ToFloat64(metrics.CircuitBreakerRequests.WithLabelValues("stripe", "success")))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(metrics.CircuitBreakerRequests.WithLabelValues("stripe", "error")))
}

func TestFactory_ExecuteTracksBreakerState(t *testing.T) {
	metrics := observability.NewMetrics("test_factory", prometheus.NewRegistry())
	f := providers.NewFactory(metrics, providers.NewMockProvider("stripe"))

	assert.Equal(t, float64(0), promtestutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("stripe")))

	// Enough consecutive failures to trip the breaker open.
	for i := 0; i < 10; i++ {
		_, err := f.Execute("stripe", func() (*providers.ProviderResult, error) {
			return nil, domainErrors.ErrProviderUnavailable
		})
		require.Error(t, err)
	}

	assert.Equal(t, float64(2), promtestutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("stripe")))

	_, err := f.Execute("stripe", func() (*providers.ProviderResult, error) {
		return &providers.ProviderResult{Status: "success"}, nil
	})
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(metrics.CircuitBreakerRequests.WithLabelValues("stripe", "rejected")))
}
