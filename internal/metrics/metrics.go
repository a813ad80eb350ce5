// Package metrics exposes Prometheus metrics for a component pool.
//
// Every pool owns its own registry, so several pools in one process (and
// parallel tests) never collide on metric registration.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Add outcomes.
const (
	OutcomeAdded    = "added"
	OutcomeReplaced = "replaced"
	OutcomeMerged   = "merged"
	OutcomeIgnored  = "ignored"
	OutcomeCollided = "collision"
	OutcomeInvalid  = "invalid"
)

// Metrics holds all pool metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Ingestion
	ComponentsAdded *prometheus.CounterVec
	FilesParsed     *prometheus.CounterVec
	ParseErrors     *prometheus.CounterVec

	// Pool state
	PoolSize          prometheus.Gauge
	InvalidComponents prometheus.Counter

	// Operations
	LoadDuration    *prometheus.HistogramVec
	CacheWrites     *prometheus.CounterVec
	CacheReads      *prometheus.CounterVec
	Searches        prometheus.Counter
	SearchCacheHits prometheus.Counter
}

// New creates the pool metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ComponentsAdded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metapool_components_added_total",
				Help: "Components offered to the pool, by outcome",
			},
			[]string{"outcome"},
		),
		FilesParsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metapool_files_parsed_total",
				Help: "Metadata files parsed, by format",
			},
			[]string{"format"},
		),
		ParseErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metapool_parse_errors_total",
				Help: "Metadata files that failed to parse, by format",
			},
			[]string{"format"},
		),

		PoolSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "metapool_components",
				Help: "Number of components in the pool",
			},
		),
		InvalidComponents: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "metapool_invalid_components_total",
				Help: "Components dropped while refining the pool",
			},
		),

		LoadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "metapool_operation_duration_seconds",
				Help:    "Duration of pool loads and cache refreshes",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
		CacheWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metapool_cache_writes_total",
				Help: "Cache file writes, by result",
			},
			[]string{"result"},
		),
		CacheReads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metapool_cache_reads_total",
				Help: "Cache file reads, by result",
			},
			[]string{"result"},
		),
		Searches: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "metapool_searches_total",
				Help: "Search queries served",
			},
		),
		SearchCacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "metapool_search_cache_hits_total",
				Help: "Search queries answered from the result cache",
			},
		),
	}
}

// Registry returns the registry holding the metrics, for exposition.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveAdd counts one add outcome.
func (m *Metrics) ObserveAdd(outcome string) {
	m.ComponentsAdded.WithLabelValues(outcome).Inc()
}

// ObserveDuration records how long operation took since start.
func (m *Metrics) ObserveDuration(operation string, start time.Time) {
	m.LoadDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveFile counts a parsed file, and a parse error when err is non-nil.
func (m *Metrics) ObserveFile(format string, err error) {
	m.FilesParsed.WithLabelValues(format).Inc()
	if err != nil {
		m.ParseErrors.WithLabelValues(format).Inc()
	}
}

// ObserveCache counts a cache read or write result.
func (m *Metrics) ObserveCache(write bool, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	if write {
		m.CacheWrites.WithLabelValues(result).Inc()
		return
	}
	m.CacheReads.WithLabelValues(result).Inc()
}
