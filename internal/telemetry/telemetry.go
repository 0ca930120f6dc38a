// Package telemetry holds the Prometheus collectors for the discovery service.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all collectors. They are usable before Register is called;
// registration only exposes them.
var Metrics = struct {
	APICalls           *prometheus.CounterVec
	APIErrors          *prometheus.CounterVec
	QuotaUsed          prometheus.Gauge
	QuotaLimit         prometheus.Gauge
	Discoveries        *prometheus.CounterVec
	DiscoveryDuration  prometheus.Histogram
	EnrichmentFailures *prometheus.CounterVec
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
}{
	APICalls: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytd_youtube_api_calls_total",
			Help: "Metered YouTube Data API calls issued, by endpoint.",
		},
		[]string{"endpoint"},
	),
	APIErrors: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytd_youtube_api_errors_total",
			Help: "YouTube Data API failures, by endpoint and kind.",
		},
		[]string{"endpoint", "kind"},
	),
	QuotaUsed: prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ytd_quota_used_units",
		Help: "Locally estimated quota units used today.",
	}),
	QuotaLimit: prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ytd_quota_limit_units",
		Help: "Configured daily quota limit.",
	}),
	Discoveries: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytd_discoveries_total",
			Help: "Discovery runs, by outcome.",
		},
		[]string{"outcome"},
	),
	DiscoveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ytd_discovery_duration_seconds",
		Help:    "Wall time of discovery runs.",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
	}),
	EnrichmentFailures: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytd_enrichment_failures_total",
			Help: "Swallowed per-channel enrichment failures, by stage.",
		},
		[]string{"stage"},
	),
	CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ytd_result_cache_hits_total",
		Help: "Discovery result cache hits.",
	}),
	CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ytd_result_cache_misses_total",
		Help: "Discovery result cache misses.",
	}),
}

var registerOnce sync.Once

// Register adds every collector to reg. Safe to call more than once.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			Metrics.APICalls,
			Metrics.APIErrors,
			Metrics.QuotaUsed,
			Metrics.QuotaLimit,
			Metrics.Discoveries,
			Metrics.DiscoveryDuration,
			Metrics.EnrichmentFailures,
			Metrics.CacheHits,
			Metrics.CacheMisses,
		)
	})
}

// QuotaObserver mirrors tracker usage into the quota gauges.
func QuotaObserver(used, limit int) {
	Metrics.QuotaUsed.Set(float64(used))
	Metrics.QuotaLimit.Set(float64(limit))
}
