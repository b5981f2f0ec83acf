package provider

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for provider fetch operations.
var (
	// providerFetchTotal counts network fetches per provider and outcome.
	providerFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_fetch_total",
			Help: "Total number of provider network fetches",
		},
		[]string{"provider", "operation", "status"}, // operation: update|detail, status: success|failure
	)

	// providerFetchDuration tracks fetch latency per provider.
	providerFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_fetch_duration_seconds",
			Help:    "Duration of provider network fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider", "operation"},
	)

	// providerItemsDelivered counts items handed to the aggregator.
	providerItemsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_items_delivered_total",
			Help: "Total number of unseen items returned by GetNews",
		},
		[]string{"provider"},
	)
)

// recordFetch records one fetch attempt's outcome and duration.
func recordFetch(provider, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	providerFetchTotal.WithLabelValues(provider, operation, status).Inc()
	providerFetchDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
}
