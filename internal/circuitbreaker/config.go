// Package circuitbreaker provides per-destination circuit breaking for the
// egress gateway. It implements an explicit state machine with a bucketed
// rolling window of attempt outcomes.
package circuitbreaker

import (
	"time"
)

// Default configuration values.
const (
	DefaultErrorThresholdPercent = 50
	DefaultMinRequests           = 5
	DefaultOpenDuration          = 10 * time.Second
	DefaultRollingWindow         = 10 * time.Second
	DefaultRollingBuckets        = 10
)

// Config holds configuration for a circuit breaker.
type Config struct {
	// ErrorThresholdPercent is the failure percentage (failures plus
	// timeouts over total samples, 0-100) at or above which the circuit
	// opens.
	ErrorThresholdPercent int

	// MinRequests is the minimum number of samples the rolling window must
	// hold before the threshold is evaluated. Prevents opening on the very
	// first failed request.
	MinRequests int

	// OpenDuration is how long the circuit stays open before the next
	// request is allowed through as a probe.
	OpenDuration time.Duration

	// RollingWindow is the time span over which outcomes are counted.
	RollingWindow time.Duration

	// RollingBuckets is the number of sub-intervals the window is split
	// into. Buckets older than the window are discarded.
	RollingBuckets int

	// OnStateChange is called when the circuit breaker state changes.
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		ErrorThresholdPercent: DefaultErrorThresholdPercent,
		MinRequests:           DefaultMinRequests,
		OpenDuration:          DefaultOpenDuration,
		RollingWindow:         DefaultRollingWindow,
		RollingBuckets:        DefaultRollingBuckets,
	}
}

// Validate normalizes the configuration, replacing out-of-range values with
// defaults.
func (c *Config) Validate() {
	if c.ErrorThresholdPercent < 0 || c.ErrorThresholdPercent > 100 {
		c.ErrorThresholdPercent = DefaultErrorThresholdPercent
	}
	if c.MinRequests < 1 {
		c.MinRequests = DefaultMinRequests
	}
	if c.OpenDuration < time.Millisecond {
		c.OpenDuration = DefaultOpenDuration
	}
	if c.RollingWindow < time.Millisecond {
		c.RollingWindow = DefaultRollingWindow
	}
	if c.RollingBuckets < 1 {
		c.RollingBuckets = DefaultRollingBuckets
	}
}

// WithErrorThresholdPercent sets the error threshold percentage.
func (c *Config) WithErrorThresholdPercent(p int) *Config {
	c.ErrorThresholdPercent = p
	return c
}

// WithMinRequests sets the minimum sample size.
func (c *Config) WithMinRequests(n int) *Config {
	c.MinRequests = n
	return c
}

// WithOpenDuration sets the open duration.
func (c *Config) WithOpenDuration(d time.Duration) *Config {
	c.OpenDuration = d
	return c
}

// WithRollingWindow sets the rolling window span.
func (c *Config) WithRollingWindow(d time.Duration) *Config {
	c.RollingWindow = d
	return c
}

// WithRollingBuckets sets the bucket count.
func (c *Config) WithRollingBuckets(n int) *Config {
	c.RollingBuckets = n
	return c
}

// WithOnStateChange sets the state change callback.
func (c *Config) WithOnStateChange(fn func(name string, from, to State)) *Config {
	c.OnStateChange = fn
	return c
}
