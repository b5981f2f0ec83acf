package digest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	digestCyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "digest_cycles_total",
			Help: "Total number of digest collection cycles",
		},
	)

	digestItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_items_total",
			Help: "Total number of items included in digests",
		},
		[]string{"provider"},
	)

	digestProviderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_provider_failures_total",
			Help: "Providers that contributed nothing to a digest, by reason",
		},
		[]string{"provider", "reason"}, // reason: no_news|error|timeout
	)

	digestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digest_collect_duration_seconds",
			Help:    "Duration of full digest collection cycles in seconds",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120},
		},
	)
)
