// Package timeout provides deadline helpers for the egress gateway.
package timeout

import (
	"context"
	"time"
)

// Deadlines holds the timeout budget for one call: an optional whole-call
// deadline and a per-attempt deadline.
type Deadlines struct {
	call    time.Duration
	attempt time.Duration
}

// New creates Deadlines with the given call and attempt timeouts. A zero or
// negative value disables the corresponding deadline.
func New(call, attempt time.Duration) *Deadlines {
	return &Deadlines{
		call:    call,
		attempt: attempt,
	}
}

// CallContext returns a context bounding the whole call, all attempts and
// backoff sleeps included.
func (d *Deadlines) CallContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.call <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.call)
}

// AttemptContext returns a context bounding a single transport attempt.
func (d *Deadlines) AttemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.attempt <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.attempt)
}

// Attempt returns the per-attempt timeout.
func (d *Deadlines) Attempt() time.Duration {
	return d.attempt
}

// Call returns the whole-call timeout.
func (d *Deadlines) Call() time.Duration {
	return d.call
}

// EffectiveAttempt picks the per-attempt deadline: the request timeout,
// tightened by the breaker attempt timeout when the breaker is enabled and
// stricter.
func EffectiveAttempt(requestTimeout, breakerAttemptTimeout time.Duration, breakerEnabled bool) time.Duration {
	if breakerEnabled && breakerAttemptTimeout > 0 &&
		(requestTimeout <= 0 || breakerAttemptTimeout < requestTimeout) {
		return breakerAttemptTimeout
	}
	return requestTimeout
}
