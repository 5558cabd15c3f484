// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReportJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_jobs_completed_total",
			Help: "Total number of report jobs completed",
		},
		[]string{"status"},
	)

	ReportJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_jobs_failed_total",
			Help: "Total number of report jobs failed",
		},
		[]string{"error_code"},
	)

	ReportJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "report_job_duration_seconds",
			Help:    "Duration of full report generation in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"status"},
	)

	SectionsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_sections_generated_total",
			Help: "Total number of report sections generated",
		},
		[]string{"section", "outcome"},
	)

	SectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "report_section_duration_seconds",
			Help:    "Duration of a single section generation in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"section"},
	)

	AssistantPollAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_poll_attempts",
			Help:    "Number of poll attempts before an assistant run resolved",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
		[]string{"outcome"},
	)

	AssistantRateLimits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_rate_limits_total",
			Help: "Total number of assistant rate limit responses",
		},
	)

	ReportJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "report_jobs_active",
			Help: "Number of report jobs currently being processed",
		},
	)
)
