package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "egress_calls_total",
			Help: "Total outbound calls by destination and terminal result",
		},
		[]string{"destination", "result"},
	)

	callDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "egress_call_duration_seconds",
			Help:    "Wall-clock duration of outbound calls including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"destination", "result"},
	)

	callAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "egress_call_attempts",
			Help:    "Attempts consumed per outbound call",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
		[]string{"destination"},
	)
)

// recordCall records the terminal metrics for a finished call. result is
// "success" or an ErrorKind string.
func recordCall(destination, result string, attempts int, seconds float64) {
	callsTotal.WithLabelValues(destination, result).Inc()
	callDuration.WithLabelValues(destination, result).Observe(seconds)
	callAttempts.WithLabelValues(destination).Observe(float64(attempts))
}
