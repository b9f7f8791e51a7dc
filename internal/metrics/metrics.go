package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_cache_hits_total",
			Help: "Total number of cache hits per report namespace",
		},
		[]string{"namespace"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_cache_misses_total",
			Help: "Total number of cache misses per report namespace",
		},
		[]string{"namespace"},
	)

	CacheDegradations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "report_cache_degradations_total",
			Help: "Total number of requests served without the cache because the backend was unavailable",
		},
	)

	CacheCorruptEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "report_cache_corrupt_entries_total",
			Help: "Total number of cached values that failed to deserialize and were treated as misses",
		},
	)

	CacheKeysInvalidated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "report_cache_keys_invalidated_total",
			Help: "Total number of cache keys removed by prefix invalidation",
		},
	)

	// Singleflight metrics
	StampedesSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "report_stampedes_suppressed_total",
			Help: "Total number of concurrent computations collapsed into an in-flight one",
		},
	)

	// Report metrics
	ReportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "report_fetch_duration_seconds",
			Help:    "Duration of report fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"namespace", "result"}, // result: hit, miss, coalesced, uncached, degraded, error
	)

	SourceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_source_errors_total",
			Help: "Total number of aggregation source failures",
		},
		[]string{"op"},
	)
)
