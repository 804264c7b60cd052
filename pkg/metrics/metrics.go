// Package metrics defines the Prometheus metric collectors used by the query
// engine and the analytics service, and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	QueriesTotal         *prometheus.CounterVec
	QueryLatency         prometheus.Histogram
	QueryResultsCount    prometheus.Histogram
	RecordsDroppedTotal  prometheus.Counter
	ShardLookupsTotal    *prometheus.CounterVec
	ShardLookupLatency   prometheus.Histogram
	ShardLoadsTotal      *prometheus.CounterVec
	ActiveShards         prometheus.Gauge
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

// New creates all collectors and registers them with reg. A nil reg means
// the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freqsearch_queries_total",
				Help: "Total queries by outcome (ok, empty, truncated, partial, error).",
			},
			[]string{"outcome"},
		),
		QueryLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "freqsearch_query_latency_seconds",
				Help:    "End-to-end latency of one query across all shards.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		QueryResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "freqsearch_query_results_count",
				Help:    "Number of ranked results returned per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
		),
		RecordsDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "freqsearch_records_dropped_total",
				Help: "Total frequency records dropped because the aggregation buffer was full.",
			},
		),
		ShardLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freqsearch_shard_lookups_total",
				Help: "Total per-shard lookups by status (ok, failed).",
			},
			[]string{"status"},
		),
		ShardLookupLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "freqsearch_shard_lookup_latency_seconds",
				Help:    "Latency of a single shard lookup including stream drain.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),
		ShardLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freqsearch_shard_loads_total",
				Help: "Total shard index loads by status (ok, io_error, format_error, circuit_open).",
			},
			[]string{"status"},
		),
		ActiveShards: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "freqsearch_active_shards",
				Help: "Number of shards discovered for this run.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "freqsearch_cache_hits_total",
				Help: "Total answer cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "freqsearch_cache_misses_total",
				Help: "Total answer cache misses.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "freqsearch_circuit_breaker_state",
				Help: "Shard circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"shard"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
	}

	reg.MustRegister(
		m.QueriesTotal,
		m.QueryLatency,
		m.QueryResultsCount,
		m.RecordsDroppedTotal,
		m.ShardLookupsTotal,
		m.ShardLookupLatency,
		m.ShardLoadsTotal,
		m.ActiveShards,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CircuitBreakerState,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
