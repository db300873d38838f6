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

	FilterEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_filter_evaluations_total",
			Help: "Number of filter passes over a job list",
		},
		[]string{"task_type"},
	)

	FilterJobsIn = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_filter_jobs_in_total",
			Help: "Jobs offered to the filter engine",
		},
		[]string{"task_type"},
	)

	FilterJobsMatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_filter_jobs_matched_total",
			Help: "Jobs that satisfied every active facet",
		},
		[]string{"task_type"},
	)

	FilterStateStorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_filter_state_storage_errors_total",
			Help: "Saved filter reads or writes that failed and were swallowed",
		},
		[]string{"operation"},
	)
)

// ObserveFilterPass records one evaluation of in jobs that produced matched results.
func ObserveFilterPass(taskType string, in, matched int) {
	FilterEvaluations.WithLabelValues(taskType).Inc()
	FilterJobsIn.WithLabelValues(taskType).Add(float64(in))
	FilterJobsMatched.WithLabelValues(taskType).Add(float64(matched))
}
