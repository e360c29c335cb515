// Package metrics exposes Prometheus counters for uploads, analyses and flags
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "airaudit"

// Outcome labels
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics owns a private registry so tests and multiple servers never collide.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	uploads          *prometheus.CounterVec
	cleanedValues    prometheus.Counter
	analyses         *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	flaggedRows      *prometheus.CounterVec
	publishFailures  prometheus.Counter
}

// New registers every collector, plus Go runtime and process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Session uploads by outcome.",
		}, []string{"outcome"}),
		cleanedValues: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleaned_values_total",
			Help:      "Compound values blanked while the sampling pumps were idle.",
		}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyses by type and outcome.",
		}, []string{"type", "outcome"}),
		analysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Analysis latency by type.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"type"}),
		flaggedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flagged_rows_total",
			Help:      "Rows written to the audit flag column, by flag.",
		}, []string{"flag"}),
		publishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Result events that could not be published.",
		}),
	}

	m.registry.MustRegister(
		m.uploads,
		m.cleanedValues,
		m.analyses,
		m.analysisDuration,
		m.flaggedRows,
		m.publishFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the scrape endpoint
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Upload records one upload attempt and the values it cleaned
func (m *Metrics) Upload(outcome string, cleaned int) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
	if cleaned > 0 {
		m.cleanedValues.Add(float64(cleaned))
	}
}

// Analysis records one analysis run
func (m *Metrics) Analysis(typ, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(typ, outcome).Inc()
	m.analysisDuration.WithLabelValues(typ).Observe(time.Since(started).Seconds())
}

// Flagged records rows written with flag
func (m *Metrics) Flagged(flag string, rows int) {
	if m == nil || rows <= 0 {
		return
	}
	m.flaggedRows.WithLabelValues(flag).Add(float64(rows))
}

// PublishFailed records a dropped result event
func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}
