package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/vyrodovalexey/avegress/internal/observability"
)

// State represents the state of a circuit breaker.
type State int

const (
	// StateClosed indicates the circuit is closed and attempts are allowed.
	StateClosed State = iota

	// StateOpen indicates the circuit is open and attempts are rejected.
	StateOpen

	// StateHalfOpen indicates the circuit allows a single probe attempt to
	// test whether the destination has recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned by Allow when the circuit rejects the attempt.
var ErrOpen = errors.New("circuit breaker is open")

// Permit is the token granted for one allowed attempt. Every granted permit
// must be passed back exactly once via RecordOutcome.
type Permit struct {
	probe bool
}

// Probe reports whether this permit is the half-open recovery probe.
func (p *Permit) Probe() bool {
	return p.probe
}

// CircuitBreaker is a per-destination gatekeeper deciding whether to allow,
// reject, or probe an attempt. Safe for concurrent use; one instance is
// shared by all calls to the same destination.
type CircuitBreaker struct {
	name   string
	config *Config
	logger observability.Logger

	mu            sync.Mutex
	state         State
	window        *rollingWindow
	openedAt      time.Time
	lastChange    time.Time
	probeInFlight bool
}

// New creates a new circuit breaker for the given destination key.
func New(name string, config *Config, logger observability.Logger) *CircuitBreaker {
	if config == nil {
		config = DefaultConfig()
	}
	config.Validate()

	if logger == nil {
		logger = observability.NopLogger()
	}

	return &CircuitBreaker{
		name:       name,
		config:     config,
		logger:     logger,
		state:      StateClosed,
		window:     newRollingWindow(config.RollingWindow, config.RollingBuckets),
		lastChange: time.Now(),
	}
}

// Allow is the synchronous gate check. It returns a permit when the attempt
// may proceed, or ErrOpen when the circuit rejects it. It never blocks.
func (cb *CircuitBreaker) Allow() (*Permit, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()

	switch cb.state {
	case StateClosed:
		recordGate(cb.name, true)
		return &Permit{}, nil

	case StateOpen:
		if now.Sub(cb.openedAt) >= cb.config.OpenDuration {
			cb.transitionTo(StateHalfOpen, now)
			cb.probeInFlight = true
			recordGate(cb.name, true)
			return &Permit{probe: true}, nil
		}
		recordGate(cb.name, false)
		return nil, ErrOpen

	case StateHalfOpen:
		if !cb.probeInFlight {
			cb.probeInFlight = true
			recordGate(cb.name, true)
			return &Permit{probe: true}, nil
		}
		recordGate(cb.name, false)
		return nil, ErrOpen

	default:
		recordGate(cb.name, false)
		return nil, ErrOpen
	}
}

// RecordOutcome reports the result of an allowed attempt. It must be called
// exactly once per permit granted by Allow; breaker rejections are never
// recorded.
func (cb *CircuitBreaker) RecordOutcome(permit *Permit, outcome Outcome) {
	if permit == nil {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	recordOutcomeMetric(cb.name, outcome)

	if permit.probe {
		cb.probeInFlight = false
		if outcome == OutcomeSuccess {
			cb.transitionTo(StateClosed, now)
		} else {
			cb.transitionTo(StateOpen, now)
		}
		return
	}

	cb.window.record(now, outcome)

	if cb.state != StateClosed {
		// Outcome of an attempt that was in flight when the state already
		// changed; the window entry is kept but triggers no transition.
		return
	}

	counts := cb.window.counts(now)
	if counts.total() >= cb.config.MinRequests &&
		counts.errorPercent() >= cb.config.ErrorThresholdPercent {
		cb.transitionTo(StateOpen, now)
	}
}

// transitionTo moves the breaker to a new state. Caller must hold cb.mu.
func (cb *CircuitBreaker) transitionTo(newState State, now time.Time) {
	oldState := cb.state
	cb.state = newState
	cb.lastChange = now
	cb.probeInFlight = false

	if newState == StateOpen {
		cb.openedAt = now
	}
	cb.window.reset()

	recordStateChange(cb.name, oldState, newState)

	cb.logger.Info("circuit breaker state changed",
		observability.String("destination", cb.name),
		observability.String("from", oldState.String()),
		observability.String("to", newState.String()),
	)

	if cb.config.OnStateChange != nil {
		go cb.config.OnStateChange(cb.name, oldState, newState)
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Name returns the destination key the breaker guards.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Reset moves the breaker back to closed and clears the window.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.window.reset()
	cb.probeInFlight = false
	cb.lastChange = time.Now()

	cb.logger.Info("circuit breaker reset",
		observability.String("destination", cb.name),
	)
}

// Stats holds a snapshot of circuit breaker statistics.
type Stats struct {
	State           State
	Successes       int
	Failures        int
	Timeouts        int
	ErrorPercent    int
	LastStateChange time.Time
	OpenedAt        time.Time
}

// Stats returns the current statistics of the circuit breaker.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	counts := cb.window.counts(time.Now())
	return Stats{
		State:           cb.state,
		Successes:       counts.successes,
		Failures:        counts.failures,
		Timeouts:        counts.timeouts,
		ErrorPercent:    counts.errorPercent(),
		LastStateChange: cb.lastChange,
		OpenedAt:        cb.openedAt,
	}
}
