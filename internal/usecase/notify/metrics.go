package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	broadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_broadcasts_total",
			Help: "Total number of digest broadcasts",
		},
	)

	sendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_sends_total",
			Help: "Total number of individual chat sends",
		},
		[]string{"status"}, // success|failure
	)

	sendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notify_send_duration_seconds",
			Help:    "Duration of individual chat sends in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)
)

func recordSend(d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	sendsTotal.WithLabelValues(status).Inc()
	sendDuration.Observe(d.Seconds())
}
