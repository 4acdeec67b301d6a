package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ContextsCreated    prometheus.Counter
	ContextsDeprecated prometheus.Counter
	Attachments        prometheus.Counter
	Detachments        *prometheus.CounterVec
	DelegationsStarted prometheus.Counter
	DelegationsActive  prometheus.Counter
	DelegationsStopped prometheus.Counter
	CallbackFailures   *prometheus.CounterVec
	CallbackDuration   *prometheus.HistogramVec
	RequestLatency     *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ContextsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokenctx_contexts_created_total",
			Help: "Total number of contexts registered",
		}),
		ContextsDeprecated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokenctx_contexts_deprecated_total",
			Help: "Total number of contexts deprecated",
		}),
		Attachments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokenctx_attachments_total",
			Help: "Total number of successful context attachments",
		}),
		Detachments: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tokenctx_detachments_total",
			Help: "Total number of detachments by reason",
		}, []string{"reason"}),
		DelegationsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokenctx_delegations_started_total",
			Help: "Total number of ownership delegations started",
		}),
		DelegationsActive: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokenctx_delegations_accepted_total",
			Help: "Total number of ownership delegations accepted",
		}),
		DelegationsStopped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokenctx_delegations_stopped_total",
			Help: "Total number of ownership delegations stopped",
		}),
		CallbackFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tokenctx_callback_failures_total",
			Help: "Controller callback failures by hook; best-effort hooks swallow these",
		}, []string{"hook"}),
		CallbackDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tokenctx_callback_duration_seconds",
			Help:    "Latency of controller callback invocations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"hook"}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tokenctx_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// ObserveCallback records one callback invocation.
func (m *Metrics) ObserveCallback(hook string, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.CallbackDuration.WithLabelValues(hook).Observe(d.Seconds())
	if failed {
		m.CallbackFailures.WithLabelValues(hook).Inc()
	}
}

// ObserveRequest records one HTTP request's duration by route and method.
func (m *Metrics) ObserveRequest(route, method string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestLatency.WithLabelValues(route, method).Observe(d.Seconds())
}

// IncDetachment records one detachment with its trigger reason.
func (m *Metrics) IncDetachment(reason string) {
	if m == nil {
		return
	}
	m.Detachments.WithLabelValues(reason).Inc()
}
