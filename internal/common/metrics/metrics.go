// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_submissions_completed_total",
			Help: "Total number of submissions completed per flow",
		},
		[]string{"flow"},
	)

	SubmissionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_submissions_failed_total",
			Help: "Total number of submissions failed per flow and stage",
		},
		[]string{"flow", "stage"},
	)

	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "flow_submission_duration_seconds",
			Help: "Duration of submission attempts in seconds",
		},
		[]string{"flow"},
	)

	AttachmentsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_attachments_failed_total",
			Help: "Attachments that failed after the primary record was created",
		},
		[]string{"flow"},
	)

	SessionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flow_sessions_active",
			Help: "Number of open wizard sessions per flow",
		},
		[]string{"flow"},
	)
)
