package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the invocation pipeline
type Metrics struct {
	registry *prometheus.Registry

	// Invocation metrics
	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec

	// Batch metrics
	BatchesTotal    *prometheus.CounterVec
	BatchItemsTotal *prometheus.CounterVec

	// Audit backend metrics
	AuditWriteFailuresTotal prometheus.Counter
}

// New creates and registers all metrics on a private registry
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		InvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolpipe_invocations_total",
				Help: "Total number of tool invocations",
			},
			[]string{"tool", "status"},
		),
		InvocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolpipe_invocation_duration_seconds",
				Help:    "Duration of tool invocations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		BatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolpipe_batches_total",
				Help: "Total number of batch invocations",
			},
			[]string{"tool", "status"},
		),
		BatchItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolpipe_batch_items_total",
				Help: "Total number of batch items executed",
			},
			[]string{"tool", "status"},
		),
		AuditWriteFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "toolpipe_audit_write_failures_total",
				Help: "Total number of audit records dropped because the backend failed",
			},
		),
	}

	registry.MustRegister(
		m.InvocationsTotal,
		m.InvocationDuration,
		m.BatchesTotal,
		m.BatchItemsTotal,
		m.AuditWriteFailuresTotal,
	)

	return m
}

// RecordInvocation records one completed invocation
func (m *Metrics) RecordInvocation(tool, status string, seconds float64) {
	if m == nil {
		return
	}
	m.InvocationsTotal.WithLabelValues(tool, status).Inc()
	m.InvocationDuration.WithLabelValues(tool).Observe(seconds)
}

// RecordBatch records one completed batch call
func (m *Metrics) RecordBatch(tool, status string) {
	if m == nil {
		return
	}
	m.BatchesTotal.WithLabelValues(tool, status).Inc()
}

// RecordBatchItem records one completed batch item
func (m *Metrics) RecordBatchItem(tool, status string) {
	if m == nil {
		return
	}
	m.BatchItemsTotal.WithLabelValues(tool, status).Inc()
}

// RecordAuditWriteFailure counts a dropped audit record
func (m *Metrics) RecordAuditWriteFailure() {
	if m == nil {
		return
	}
	m.AuditWriteFailuresTotal.Inc()
}

// Handler returns an HTTP handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
