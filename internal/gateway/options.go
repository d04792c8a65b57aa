package gateway

import (
	"time"

	"github.com/vyrodovalexey/avegress/internal/circuitbreaker"
	"github.com/vyrodovalexey/avegress/internal/config"
	"github.com/vyrodovalexey/avegress/internal/retry"
)

// CallOptions overrides gateway defaults for a single call. Zero or nil
// fields fall back to the configured defaults, so callers only set what
// they need to change.
type CallOptions struct {
	// Timeout bounds the whole call including retries and backoff sleeps.
	Timeout time.Duration

	// Retry overrides the retry policy.
	Retry RetryOptions

	// Breaker overrides circuit breaker behavior.
	Breaker BreakerOptions
}

// RetryOptions overrides the retry policy for a single call.
type RetryOptions struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries *int

	// BaseDelay is the backoff delay before the second attempt.
	BaseDelay time.Duration

	// MaxDelay caps the exponential backoff delay before jitter.
	MaxDelay time.Duration
}

// BreakerOptions overrides circuit breaker behavior for a single call.
// Threshold and window settings only take effect the first time a
// destination's breaker is created; later calls share the existing one.
type BreakerOptions struct {
	Enabled               *bool
	AttemptTimeout        time.Duration
	ErrorThresholdPercent *int
	OpenDuration          time.Duration
	RollingWindow         time.Duration
	RollingBuckets        int
	MinRequests           int
}

// effectiveSettings is the fully resolved per-call configuration after
// merging CallOptions over the gateway defaults.
type effectiveSettings struct {
	timeout        time.Duration
	policy         retry.Policy
	breakerEnabled bool
	attemptTimeout time.Duration
	breakerConfig  circuitbreaker.Config
}

// resolve merges per-call options over the gateway's configured defaults.
// opts may be nil.
func (g *Gateway) resolve(opts *CallOptions) effectiveSettings {
	gw := g.currentConfig().Gateway

	eff := effectiveSettings{
		timeout:        gw.RequestTimeout.Duration(),
		breakerEnabled: gw.Breaker.Enabled == nil || *gw.Breaker.Enabled,
		attemptTimeout: gw.Breaker.AttemptTimeout.Duration(),
	}

	maxRetries := config.DefaultMaxRetries
	if gw.Retry.MaxRetries != nil {
		maxRetries = *gw.Retry.MaxRetries
	}
	eff.policy = retry.Policy{
		MaxAttempts: maxRetries + 1,
		BaseDelay:   gw.Retry.BaseDelay.Duration(),
		MaxDelay:    gw.Retry.MaxDelay.Duration(),
		JitterBound: retry.DefaultJitterBound,
	}

	threshold := config.DefaultErrorThresholdPercent
	if gw.Breaker.ErrorThresholdPercent != nil {
		threshold = *gw.Breaker.ErrorThresholdPercent
	}
	eff.breakerConfig = circuitbreaker.Config{
		ErrorThresholdPercent: threshold,
		MinRequests:           gw.Breaker.MinRequests,
		OpenDuration:          gw.Breaker.OpenDuration.Duration(),
		RollingWindow:         gw.Breaker.RollingWindow.Duration(),
		RollingBuckets:        gw.Breaker.RollingBuckets,
	}

	if opts == nil {
		eff.policy.Validate()
		eff.breakerConfig.Validate()
		return eff
	}

	if opts.Timeout > 0 {
		eff.timeout = opts.Timeout
	}
	if opts.Retry.MaxRetries != nil {
		eff.policy.MaxAttempts = *opts.Retry.MaxRetries + 1
	}
	if opts.Retry.BaseDelay > 0 {
		eff.policy.BaseDelay = opts.Retry.BaseDelay
	}
	if opts.Retry.MaxDelay > 0 {
		eff.policy.MaxDelay = opts.Retry.MaxDelay
	}

	if opts.Breaker.Enabled != nil {
		eff.breakerEnabled = *opts.Breaker.Enabled
	}
	if opts.Breaker.AttemptTimeout > 0 {
		eff.attemptTimeout = opts.Breaker.AttemptTimeout
	}
	if opts.Breaker.ErrorThresholdPercent != nil {
		eff.breakerConfig.ErrorThresholdPercent = *opts.Breaker.ErrorThresholdPercent
	}
	if opts.Breaker.OpenDuration > 0 {
		eff.breakerConfig.OpenDuration = opts.Breaker.OpenDuration
	}
	if opts.Breaker.RollingWindow > 0 {
		eff.breakerConfig.RollingWindow = opts.Breaker.RollingWindow
	}
	if opts.Breaker.RollingBuckets > 0 {
		eff.breakerConfig.RollingBuckets = opts.Breaker.RollingBuckets
	}
	if opts.Breaker.MinRequests > 0 {
		eff.breakerConfig.MinRequests = opts.Breaker.MinRequests
	}

	eff.policy.Validate()
	eff.breakerConfig.Validate()
	return eff
}
