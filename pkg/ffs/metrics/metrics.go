// Package metrics provides Prometheus instrumentation for FFS sessions:
// session and round outcomes, protocol errors and round latency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all ffs metrics
	Namespace = "ffs"

	// Label names
	LabelRole      = "role"
	LabelStatus    = "status"
	LabelErrorType = "error_type"

	// Status values
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusError    = "error"
)

var (
	// SessionsTotal counts finished sessions by role and outcome.
	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_total",
			Help:      "Total number of identification sessions by role and outcome",
		},
		[]string{LabelRole, LabelStatus},
	)

	// RoundsTotal counts completed rounds by role and verdict.
	RoundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rounds_total",
			Help:      "Total number of protocol rounds by role and verdict",
		},
		[]string{LabelRole, LabelStatus},
	)

	// RoundDuration tracks wall time of one commit/challenge/response/verdict
	// exchange, transport included.
	RoundDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "round_duration_seconds",
			Help:      "Duration of protocol rounds in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{LabelRole},
	)

	// ErrorsTotal counts session failures by role and error type.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of session errors by role and error type",
		},
		[]string{LabelRole, LabelErrorType},
	)

	// ActiveSessions tracks sessions currently running by role.
	ActiveSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_sessions",
			Help:      "Number of identification sessions in progress by role",
		},
		[]string{LabelRole},
	)
)

// RecordRound records one finished round.
func RecordRound(role string, accepted bool, d time.Duration) {
	status := StatusAccepted
	if !accepted {
		status = StatusRejected
	}
	RoundsTotal.WithLabelValues(role, status).Inc()
	RoundDuration.WithLabelValues(role).Observe(d.Seconds())
}

// RecordSession records a finished session. A non-empty errorType marks it
// failed.
func RecordSession(role string, accepted bool, errorType string) {
	switch {
	case errorType != "":
		SessionsTotal.WithLabelValues(role, StatusError).Inc()
		ErrorsTotal.WithLabelValues(role, errorType).Inc()
	case accepted:
		SessionsTotal.WithLabelValues(role, StatusAccepted).Inc()
	default:
		SessionsTotal.WithLabelValues(role, StatusRejected).Inc()
	}
}

// SessionStarted increments the active gauge and returns the matching
// decrement.
func SessionStarted(role string) func() {
	g := ActiveSessions.WithLabelValues(role)
	g.Inc()
	return g.Dec
}
