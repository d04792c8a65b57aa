package retry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// retryAttemptsTotal counts retry attempts per destination.
	retryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "egress_retry_attempts_total",
			Help: "Total number of retry attempts",
		},
		[]string{"destination", "attempt"},
	)

	// retryBackoffDuration measures backoff wait times.
	retryBackoffDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "egress_retry_backoff_duration_seconds",
			Help:    "Duration of backoff waits in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"destination"},
	)
)

// RecordAttempt records a retry attempt.
func RecordAttempt(destination string, attempt int) {
	retryAttemptsTotal.WithLabelValues(destination, strconv.Itoa(attempt)).Inc()
}

// RecordBackoff records a backoff wait duration.
func RecordBackoff(destination string, seconds float64) {
	retryBackoffDuration.WithLabelValues(destination).Observe(seconds)
}
