// Package metrics exposes Prometheus instrumentation for the resolution engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResolutionsTotal counts resolve calls by the freshness of the result.
	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "channel_analysis_resolutions_total",
		Help: "Resolutions served, labeled by result freshness (cached, stored, stale, new).",
	}, []string{"freshness"})

	// QuotaUnitsConsumed counts metadata-provider cost units reserved.
	QuotaUnitsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "channel_analysis_quota_units_consumed_total",
		Help: "Metadata provider quota units reserved by the ledger.",
	})

	// QuotaExhaustedTotal counts reservations rejected by the ledger.
	QuotaExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "channel_analysis_quota_exhausted_total",
		Help: "Reservations rejected because the daily budget would be exceeded.",
	})

	// GenerationsTotal counts AI generations by outcome (ok, degraded, error).
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "channel_analysis_generations_total",
		Help: "AI analysis generations, labeled by outcome.",
	}, []string{"outcome"})

	// GenerationDuration observes end-to-end generation latency.
	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "channel_analysis_generation_duration_seconds",
		Help:    "Latency of AI analysis generation including retries.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	// BackgroundRefreshTotal counts detached stale-refresh computations.
	BackgroundRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "channel_analysis_background_refresh_total",
		Help: "Background refresh computations, labeled by outcome (ok, error).",
	}, []string{"outcome"})
)
