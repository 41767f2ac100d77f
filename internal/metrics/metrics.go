// Package metrics provides Prometheus metrics for the quote retrieval pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchTotal counts searches by the path taken and outcome.
	SearchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "freightquote",
			Name:      "search_total",
			Help:      "Total number of search requests",
		},
		[]string{"path", "schema", "status"},
	)

	// SearchDuration measures end-to-end search duration.
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "freightquote",
			Name:      "search_duration_seconds",
			Help:      "Duration of search requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	// SearchResults observes result set sizes.
	SearchResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "freightquote",
			Name:      "search_results",
			Help:      "Distribution of result counts per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"path"},
	)

	// FallbacksTotal counts degraded paths.
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "freightquote",
			Name:      "fallbacks_total",
			Help:      "Total number of degraded-path fallbacks",
		},
		[]string{"kind"},
	)

	// ErrorsTotal counts errors by type.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "freightquote",
			Name:      "errors_total",
			Help:      "Total number of errors",
		},
		[]string{"operation", "error_type"},
	)
)

// RecordSearch records a completed search.
func RecordSearch(path, schema, status string, results int, duration float64) {
	SearchTotal.WithLabelValues(path, schema, status).Inc()
	SearchDuration.WithLabelValues(path).Observe(duration)
	SearchResults.WithLabelValues(path).Observe(float64(results))
}

// RecordFallback records a degraded path, e.g. "keyword" or "legacy_collection".
func RecordFallback(kind string) {
	FallbacksTotal.WithLabelValues(kind).Inc()
}

// RecordError records an error.
func RecordError(operation, errorType string) {
	ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}
