package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"technews-bot/internal/pkg/config"
)

// Metrics tracks scheduled job execution alongside the embedded config
// health metrics.
type Metrics struct {
	*config.ConfigMetrics

	// JobRunsTotal counts job runs by job name and outcome.
	JobRunsTotal *prometheus.CounterVec

	// JobDurationSeconds measures job execution time by job name.
	JobDurationSeconds *prometheus.HistogramVec

	// JobLastSuccessTimestamp records the last successful run per job, for
	// "digest hasn't fired since X" alerting.
	JobLastSuccessTimestamp *prometheus.GaugeVec
}

// NewMetrics registers the worker metric set.
func NewMetrics() *Metrics {
	return &Metrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		JobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_job_runs_total",
			Help: "Total number of scheduled job runs by job and status",
		}, []string{"job", "status"}),

		JobDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of scheduled job execution in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900},
		}, []string{"job"}),

		JobLastSuccessTimestamp: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "worker_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful run per job",
		}, []string{"job"}),
	}
}

// RecordJob records one complete job run.
func (m *Metrics) RecordJob(job string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.JobRunsTotal.WithLabelValues(job, status).Inc()
	m.JobDurationSeconds.WithLabelValues(job).Observe(time.Since(start).Seconds())
	if err == nil {
		m.JobLastSuccessTimestamp.WithLabelValues(job).SetToCurrentTime()
	}
}
