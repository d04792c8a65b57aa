package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// breakerState shows the current state per destination.
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "egress_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=open, 2=half-open)",
		},
		[]string{"destination"},
	)

	// breakerGateTotal counts gate checks per destination and result.
	breakerGateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "egress_breaker_gate_total",
			Help: "Total number of gate checks through circuit breakers",
		},
		[]string{"destination", "result"},
	)

	// breakerOutcomesTotal counts recorded attempt outcomes.
	breakerOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "egress_breaker_outcomes_total",
			Help: "Total number of attempt outcomes recorded by circuit breakers",
		},
		[]string{"destination", "outcome"},
	)

	// breakerStateChangesTotal counts state transitions.
	breakerStateChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "egress_breaker_state_changes_total",
			Help: "Total number of circuit breaker state changes",
		},
		[]string{"destination", "from", "to"},
	)
)

// recordGate records one gate check.
func recordGate(destination string, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "rejected"
	}
	breakerGateTotal.WithLabelValues(destination, result).Inc()
}

// recordOutcomeMetric records one attempt outcome.
func recordOutcomeMetric(destination string, outcome Outcome) {
	breakerOutcomesTotal.WithLabelValues(destination, outcome.String()).Inc()
}

// recordStateChange records a state transition and the new state gauge.
func recordStateChange(destination string, from, to State) {
	breakerStateChangesTotal.WithLabelValues(destination, from.String(), to.String()).Inc()
	breakerState.WithLabelValues(destination).Set(float64(to))
}
