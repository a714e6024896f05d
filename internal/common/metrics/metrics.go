// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	InsightQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_queries_total",
			Help: "Smart-chat questions answered, by classified intent and result type",
		},
		[]string{"intent", "result_type"},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Requests refused by the per-tenant rate limiter",
		},
		[]string{"action"},
	)

	SegmentCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segment_cache_lookups_total",
			Help: "Revenue-by-segment cache lookups by outcome (hit, miss, error)",
		},
		[]string{"result"},
	)
)

// TrackJob marks a job active and returns a func that records its outcome.
// Pass an empty errorCode for success.
func TrackJob(taskType string) func(errorCode string) {
	WorkerJobsActive.WithLabelValues(taskType).Inc()
	timer := prometheus.NewTimer(WorkerJobDuration.WithLabelValues(taskType))

	return func(errorCode string) {
		timer.ObserveDuration()
		WorkerJobsActive.WithLabelValues(taskType).Dec()
		if errorCode == "" {
			WorkerJobsCompleted.WithLabelValues(taskType).Inc()
			return
		}
		WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
	}
}
