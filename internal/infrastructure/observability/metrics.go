package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Saga metrics
	RetryAttemptsTotal *prometheus.CounterVec
	SagaOutcomesTotal  *prometheus.CounterVec
	ActiveSagas        prometheus.Gauge
	SchedulerTickDuration prometheus.Histogram
	SchedulerSelected  prometheus.Histogram

	// Outbox metrics
	OutboxPublishedTotal *prometheus.CounterVec
	OutboxPendingAge     prometheus.Gauge

	// Messaging metrics
	MessagesPublishedTotal *prometheus.CounterVec
	MessagesConsumedTotal  *prometheus.CounterVec
	ListenerErrors         *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState    *prometheus.GaugeVec
	CircuitBreakerRequests *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := prometheus.WrapRegistererWith(nil, reg)

	m := &Metrics{
		RetryAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retry_attempts_total",
				Help:      "Total number of payment request attempts by result",
			},
			[]string{"result"},
		),
		SagaOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "saga_outcomes_total",
				Help:      "Total number of sagas reaching a terminal state",
			},
			[]string{"outcome"},
		),
		ActiveSagas: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sagas",
				Help:      "Number of sagas in pending or retrying state",
			},
		),
		SchedulerTickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scheduler_tick_duration_seconds",
				Help:      "Retry scheduler tick duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
		),
		SchedulerSelected: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scheduler_selected_records",
				Help:      "Number of records selected per scheduler tick",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		OutboxPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_published_total",
				Help:      "Total number of outbox entries relayed to the broker",
			},
			[]string{"event_type", "status"},
		),
		OutboxPendingAge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "outbox_pending_age_seconds",
				Help:      "Age of the oldest pending outbox entry in seconds",
			},
		),
		MessagesPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_published_total",
				Help:      "Total number of messages published by stream and status",
			},
			[]string{"stream", "status"},
		),
		MessagesConsumedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_consumed_total",
				Help:      "Total number of messages consumed by stream and status",
			},
			[]string{"stream", "status"},
		),
		ListenerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "listener_errors_total",
				Help:      "Total number of listener processing errors",
			},
			[]string{"stream", "error_type"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		CircuitBreakerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_requests_total",
				Help:      "Total number of circuit breaker requests",
			},
			[]string{"name", "result"},
		),
	}

	// Register all collectors
	factory.MustRegister(
		m.RetryAttemptsTotal,
		m.SagaOutcomesTotal,
		m.ActiveSagas,
		m.SchedulerTickDuration,
		m.SchedulerSelected,
		m.OutboxPublishedTotal,
		m.OutboxPendingAge,
		m.MessagesPublishedTotal,
		m.MessagesConsumedTotal,
		m.ListenerErrors,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CircuitBreakerState,
		m.CircuitBreakerRequests,
	)

	return m
}
