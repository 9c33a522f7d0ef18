// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes used as the "outcome" label.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	OutcomeDisabled  = "disabled"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_submissions_total",
			Help: "Total number of submit attempts by outcome",
		},
		[]string{"outcome"},
	)

	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_validation_failures_total",
			Help: "Total number of rejected inputs by validation error code",
		},
		[]string{"code", "field"},
	)

	ScoringRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intake_scoring_request_duration_seconds",
			Help:    "Duration of scoring service calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	SubmissionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "intake_submissions_in_flight",
			Help: "Number of scoring calls currently awaiting a response",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "intake_active_sessions",
			Help: "Number of open form sessions",
		},
	)

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
)
