// Package metrics declares the Prometheus instruments exported by the aggregator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// UpstreamRequests counts upstream calls by endpoint and outcome
	// (ok, transport_error, http_error, breaker_open, rate_limited).
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igagg_upstream_requests_total",
			Help: "Upstream API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "igagg_upstream_request_duration_seconds",
			Help:    "Upstream API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	StreamItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "igagg_stream_items",
			Help:    "Items collected per stream run",
			Buckets: []float64{0, 1, 10, 50, 100, 250, 500, 1000},
		},
		[]string{"stream"},
	)

	StreamPages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igagg_stream_pages_total",
			Help: "Pages fetched per stream",
		},
		[]string{"stream"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igagg_cache_requests_total",
			Help: "Result cache lookups by cache name and result (hit, shared_hit, miss)",
		},
		[]string{"cache", "result"},
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "igagg_cache_entries",
			Help: "Entries held in the local cache layer",
		},
		[]string{"cache"},
	)

	CacheExpired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igagg_cache_expired_total",
			Help: "Expired entries swept from the local cache layer",
		},
		[]string{"cache"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "igagg_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igagg_analyses_total",
			Help: "Profile analyses by result (ok, private, empty, degraded, error)",
		},
		[]string{"result"},
	)
)

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
