package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	modePassword = "password"
	modeToken    = "token"

	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

var (
	attemptsCounter = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "login_attempts_total",
			Help: "Number of authentication attempts, differentiated by mode, outcome and failure reason.",
		},
		[]string{"mode", "outcome", "reason"},
	)

	attemptDuration = promauto.NewHistogramVec( //nolint:gochecknoglobals
		prometheus.HistogramOpts{
			Name:    "login_attempt_duration_seconds",
			Help:    "Duration of authentication attempts including verification and persistence.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode", "outcome"},
	)

	auditWriteFailures = promauto.NewCounter( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "login_audit_write_failures_total",
			Help: "Number of login history entries that could not be written.",
		},
	)
)

func observeAttempt(mode string, started time.Time, err error) {
	outcome, reason := outcomeSuccess, ""
	if err != nil {
		outcome, reason = outcomeFailure, Reason(err)
	}

	attemptsCounter.WithLabelValues(mode, outcome, reason).Inc()
	attemptDuration.WithLabelValues(mode, outcome).Observe(time.Since(started).Seconds())
}
