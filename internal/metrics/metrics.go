// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values shared by the counters below.
const (
	ResultOK          = "ok"
	ResultInvalid     = "invalid"
	ResultDuplicate   = "duplicate"
	ResultError       = "error"
	ResultUnavailable = "unavailable"
	ResultLimited     = "rate_limited"
	ResultDenied      = "denied"
)

var (
	// Submissions counts assessment submissions by kind and result.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadercheck_submissions_total",
		Help: "Assessment submissions by kind and result",
	}, []string{"kind", "result"})

	// FeedbackRequests counts feedback generations by result.
	FeedbackRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadercheck_feedback_requests_total",
		Help: "Feedback generation requests by result",
	}, []string{"result"})

	// FeedbackDuration tracks feedback generation latency.
	FeedbackDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leadercheck_feedback_duration_seconds",
		Help:    "Feedback generation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 9), // 250ms to ~64s
	})

	// Logins counts login attempts by result.
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadercheck_logins_total",
		Help: "Login attempts by result",
	}, []string{"result"})
)
