package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Accepted and refused status transitions, by entity and outcome.
	TransitionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transition_count",
			Help: "Total number of attempted status transitions",
		},
		[]string{"entity", "outcome"}, // outcome: accepted, rejected
	)

	// Fan-out snapshot pushes, by topic prefix and result.
	FanoutPushCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_push_count",
			Help: "Total number of fan-out snapshot pushes",
		},
		[]string{"topic", "result"}, // result: ok, dropped
	)

	// Escalation sweep duration in seconds.
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "escalation_sweep_duration_seconds",
			Help:    "Duration of one escalation sweep run",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)

	// Phases promoted to warning per sweep run.
	SweepWarningCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "escalation_sweep_warnings_total",
			Help: "Total number of phases promoted to warning by the sweep",
		},
	)

	// Payment gateway callbacks, by gateway and result.
	PaymentCallbackCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callback_count",
			Help: "Total number of payment gateway callbacks",
		},
		[]string{"gateway", "result"}, // result: ok, bad_signature, failed, replayed
	)

	// Notification deliveries, by channel and result.
	NotificationDeliveryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_delivery_count",
			Help: "Total number of notification delivery attempts",
		},
		[]string{"channel", "result"}, // channel: push, email
	)

	// HTTP request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Queries slower than the configured threshold.
	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Total number of slow database queries",
		},
	)
)

// RecordTransition counts one transition attempt.
func RecordTransition(entity string, accepted bool) {
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	TransitionCount.WithLabelValues(entity, outcome).Inc()
}

// RecordHTTPRequestDuration records one served request.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
