package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the SDK's Prometheus metrics. Each client owns its own
// registry so two clients in one process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	QueriesTotal    *prometheus.CounterVec
	QueryDuration   *prometheus.HistogramVec
	CacheHitsTotal  prometheus.Counter
	CacheMissTotal  prometheus.Counter
	RetryAttempts   prometheus.Counter
	PolicyDecisions *prometheus.CounterVec
	PlanExecutions  *prometheus.CounterVec
	TransportCalls  *prometheus.CounterVec
}

// NewMetrics creates and registers the SDK metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axonflow_queries_total",
				Help: "Total queries by request type and status.",
			},
			[]string{"request_type", "status"},
		),
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "axonflow_query_duration_seconds",
				Help:    "Query execution duration in seconds by request type.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"request_type"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "axonflow_cache_hits_total",
				Help: "Total cache hits.",
			},
		),
		CacheMissTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "axonflow_cache_misses_total",
				Help: "Total cache misses.",
			},
		),
		RetryAttempts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "axonflow_retry_attempts_total",
				Help: "Total retry attempts across all operations.",
			},
		),
		PolicyDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axonflow_policy_decisions_total",
				Help: "Total policy decisions by phase and action.",
			},
			[]string{"phase", "action"},
		),
		PlanExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axonflow_plan_executions_total",
				Help: "Total plan executions by terminal status.",
			},
			[]string{"status"},
		),
		TransportCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axonflow_transport_calls_total",
				Help: "Total transport calls by method and outcome.",
			},
			[]string{"method", "outcome"},
		),
	}

	registry.MustRegister(
		m.QueriesTotal,
		m.QueryDuration,
		m.CacheHitsTotal,
		m.CacheMissTotal,
		m.RetryAttempts,
		m.PolicyDecisions,
		m.PlanExecutions,
		m.TransportCalls,
	)
	return m
}

// RecordQuery records a completed query.
func (m *Metrics) RecordQuery(requestType string, duration time.Duration, success bool) {
	status := "error"
	if success {
		status = "success"
	}
	m.QueriesTotal.WithLabelValues(requestType, status).Inc()
	m.QueryDuration.WithLabelValues(requestType).Observe(duration.Seconds())
}

// RecordPolicyDecision records a policy decision by phase and action.
func (m *Metrics) RecordPolicyDecision(phase, action string) {
	m.PolicyDecisions.WithLabelValues(phase, action).Inc()
}

// Handler returns an HTTP handler exposing this client's metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
