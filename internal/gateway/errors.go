package gateway

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks. Terminal call failures are always
// a *CallError wrapping one of these kinds.
var (
	// ErrNetwork indicates a connection-level failure.
	ErrNetwork = errors.New("network error")

	// ErrTimeout indicates a deadline was exceeded, attempt- or call-level.
	ErrTimeout = errors.New("timeout")

	// ErrBreakerOpen indicates the circuit breaker rejected the call
	// without attempting it.
	ErrBreakerOpen = errors.New("circuit breaker open")

	// ErrUpstreamStatus indicates a response was received but its status
	// is failure-like by policy.
	ErrUpstreamStatus = errors.New("upstream status error")

	// ErrCancelled indicates the caller cancelled the call.
	ErrCancelled = errors.New("call cancelled")
)

// ErrorKind classifies a terminal call failure.
type ErrorKind int

const (
	// KindNetwork is a connection-level failure.
	KindNetwork ErrorKind = iota

	// KindTimeout is a deadline-exceeded failure.
	KindTimeout

	// KindBreakerOpen is a rejection by an open circuit breaker.
	KindBreakerOpen

	// KindUpstreamStatus is a failure-like upstream status.
	KindUpstreamStatus

	// KindCancelled is a caller cancellation.
	KindCancelled
)

// String returns the string representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindBreakerOpen:
		return "breaker_open"
	case KindUpstreamStatus:
		return "upstream_status"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// sentinel returns the sentinel error matching the kind.
func (k ErrorKind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindTimeout:
		return ErrTimeout
	case KindBreakerOpen:
		return ErrBreakerOpen
	case KindUpstreamStatus:
		return ErrUpstreamStatus
	case KindCancelled:
		return ErrCancelled
	default:
		return nil
	}
}

// CallError is the single structured error surfaced for a failed call. It
// carries the terminal failure classification, the last upstream status
// observed (0 when none), the number of attempts consumed, and the
// destination key.
type CallError struct {
	Kind        ErrorKind
	Destination string
	Attempts    int
	Status      int
	Cause       error
}

// Error implements the error interface.
func (e *CallError) Error() string {
	msg := fmt.Sprintf("egress call to %s failed (%s) after %d attempt(s)",
		e.Destination, e.Kind, e.Attempts)
	if e.Status != 0 {
		msg += fmt.Sprintf(", last status %d", e.Status)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *CallError) Unwrap() error {
	return e.Cause
}

// Is matches the kind's sentinel.
func (e *CallError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// newCallError creates a CallError.
func newCallError(kind ErrorKind, destination string, attempts, status int, cause error) *CallError {
	return &CallError{
		Kind:        kind,
		Destination: destination,
		Attempts:    attempts,
		Status:      status,
		Cause:       cause,
	}
}
