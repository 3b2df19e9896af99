// Package metrics provides Prometheus metrics for the reconciliation engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	ReconciliationsTotal *prometheus.CounterVec
	ReconcileDuration    *prometheus.HistogramVec
	CacheOpsTotal        *prometheus.CounterVec
	CacheSize            *prometheus.GaugeVec
	InconsistenciesTotal *prometheus.CounterVec
	QueriesTotal         *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		ReconciliationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_reconciliations_total",
				Help: "Total reconciliations by outcome (ok, error).",
			},
			[]string{"outcome"},
		),
		ReconcileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulse_reconcile_duration_seconds",
				Help:    "Reconciliation duration by operation (single, batch).",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CacheOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_cache_ops_total",
				Help: "Cache operations by cache name and result (hit, miss, eviction).",
			},
			[]string{"cache", "result"},
		),
		CacheSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pulse_cache_entries",
				Help: "Current number of entries per cache.",
			},
			[]string{"cache"},
		),
		InconsistenciesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_inconsistencies_total",
				Help: "Cross-source inconsistency reports by field.",
			},
			[]string{"field"},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_queries_total",
				Help: "Query engine invocations by status.",
			},
			[]string{"status"},
		),
		registry: reg,
	}

	reg.MustRegister(m.ReconciliationsTotal)
	reg.MustRegister(m.ReconcileDuration)
	reg.MustRegister(m.CacheOpsTotal)
	reg.MustRegister(m.CacheSize)
	reg.MustRegister(m.InconsistenciesTotal)
	reg.MustRegister(m.QueriesTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordReconciliation increments the reconciliation counter.
func (m *Metrics) RecordReconciliation(outcome string) {
	m.ReconciliationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveReconcileDuration records reconciliation duration.
func (m *Metrics) ObserveReconcileDuration(operation string, seconds float64) {
	m.ReconcileDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordCacheOp increments a cache hit/miss/eviction counter.
func (m *Metrics) RecordCacheOp(cache, result string) {
	m.CacheOpsTotal.WithLabelValues(cache, result).Inc()
}

// SetCacheSize sets the current entry count for a cache.
func (m *Metrics) SetCacheSize(cache string, n float64) {
	m.CacheSize.WithLabelValues(cache).Set(n)
}

// RecordInconsistency increments the inconsistency counter for a field.
func (m *Metrics) RecordInconsistency(field string) {
	m.InconsistenciesTotal.WithLabelValues(field).Inc()
}

// RecordQuery increments the query counter.
func (m *Metrics) RecordQuery(status string) {
	m.QueriesTotal.WithLabelValues(status).Inc()
}
