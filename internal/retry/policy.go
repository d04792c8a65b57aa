// Package retry provides retry eligibility and exponential backoff
// computation for the egress gateway. The policy is pure: it holds only
// configuration and every result is independently computable.
package retry

import (
	"math/rand/v2"
	"time"
)

// Default retry configuration values.
const (
	// DefaultMaxAttempts is the default attempt budget, counting the first
	// attempt.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the default backoff delay before the second
	// attempt.
	DefaultBaseDelay = 250 * time.Millisecond

	// DefaultMaxDelay is the default backoff ceiling.
	DefaultMaxDelay = 1500 * time.Millisecond

	// DefaultJitterBound is the default upper bound of the random jitter
	// added to each delay.
	DefaultJitterBound = 100 * time.Millisecond
)

// Policy decides retry eligibility and computes backoff delays.
type Policy struct {
	// MaxAttempts is the attempt budget, counting the first attempt.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth of the delay.
	MaxDelay time.Duration

	// JitterBound is the exclusive upper bound of the uniform random
	// jitter added to each delay, preventing synchronized retry storms.
	JitterBound time.Duration

	// Conditions decide which failures are retryable. When empty,
	// DefaultConditions is used.
	Conditions []Condition
}

// DefaultPolicy returns a Policy with default values.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		JitterBound: DefaultJitterBound,
	}
}

// Validate normalizes the policy. The attempt budget is always at least 1
// and BaseDelay never exceeds MaxDelay.
func (p *Policy) Validate() {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.BaseDelay > p.MaxDelay {
		p.BaseDelay = p.MaxDelay
	}
	if p.JitterBound < 0 {
		p.JitterBound = DefaultJitterBound
	}
}

// IsRetryable reports whether a failed attempt with the given error and
// upstream status (0 when no response was received) may be retried.
func (p *Policy) IsRetryable(err error, statusCode int) bool {
	conditions := p.Conditions
	if len(conditions) == 0 {
		conditions = DefaultConditions()
	}
	for _, c := range conditions {
		if c.ShouldRetry(err, statusCode) {
			return true
		}
	}
	return false
}

// DelayFor computes the backoff delay before the given attempt number
// (1-indexed, attempt >= 2): min(MaxDelay, BaseDelay * 2^(attempt-2)) plus
// a uniform random jitter in [0, JitterBound).
func (p *Policy) DelayFor(attempt int) time.Duration {
	if attempt < 2 {
		return 0
	}

	delay := p.BaseDelay
	for i := 2; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.JitterBound > 0 {
		// Jitter is timing, not security.
		//nolint:gosec // G404
		delay += time.Duration(rand.Int64N(int64(p.JitterBound)))
	}

	return delay
}

// WithMaxAttempts sets the attempt budget.
func (p *Policy) WithMaxAttempts(n int) *Policy {
	p.MaxAttempts = n
	return p
}

// WithBaseDelay sets the base delay.
func (p *Policy) WithBaseDelay(d time.Duration) *Policy {
	p.BaseDelay = d
	return p
}

// WithMaxDelay sets the delay ceiling.
func (p *Policy) WithMaxDelay(d time.Duration) *Policy {
	p.MaxDelay = d
	return p
}

// WithJitterBound sets the jitter bound.
func (p *Policy) WithJitterBound(d time.Duration) *Policy {
	p.JitterBound = d
	return p
}

// WithConditions sets the retry conditions.
func (p *Policy) WithConditions(conditions ...Condition) *Policy {
	p.Conditions = conditions
	return p
}
