package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vyrodovalexey/avegress/internal/config"
	"github.com/vyrodovalexey/avegress/internal/transport"
)

func TestGateway_ResolveDefaults(t *testing.T) {
	t.Parallel()

	g := New(config.Default(), transport.Func(nil))

	eff := g.resolve(nil)

	assert.Equal(t, config.DefaultRequestTimeout, eff.timeout)
	assert.Equal(t, config.DefaultMaxRetries+1, eff.policy.MaxAttempts)
	assert.Equal(t, config.DefaultBaseDelay, eff.policy.BaseDelay)
	assert.Equal(t, config.DefaultMaxDelay, eff.policy.MaxDelay)
	assert.True(t, eff.breakerEnabled)
	assert.Equal(t, config.DefaultAttemptTimeout, eff.attemptTimeout)
	assert.Equal(t, config.DefaultErrorThresholdPercent, eff.breakerConfig.ErrorThresholdPercent)
	assert.Equal(t, config.DefaultMinRequests, eff.breakerConfig.MinRequests)
}

func TestGateway_ResolvePerCallOverrides(t *testing.T) {
	t.Parallel()

	g := New(config.Default(), transport.Func(nil))

	eff := g.resolve(&CallOptions{
		Timeout: 9 * time.Second,
		Retry: RetryOptions{
			MaxRetries: intPtr(5),
			BaseDelay:  time.Second,
			MaxDelay:   4 * time.Second,
		},
		Breaker: BreakerOptions{
			Enabled:               boolPtr(false),
			AttemptTimeout:        2 * time.Second,
			ErrorThresholdPercent: intPtr(75),
			MinRequests:           10,
		},
	})

	assert.Equal(t, 9*time.Second, eff.timeout)
	assert.Equal(t, 6, eff.policy.MaxAttempts)
	assert.Equal(t, time.Second, eff.policy.BaseDelay)
	assert.Equal(t, 4*time.Second, eff.policy.MaxDelay)
	assert.False(t, eff.breakerEnabled)
	assert.Equal(t, 2*time.Second, eff.attemptTimeout)
	assert.Equal(t, 75, eff.breakerConfig.ErrorThresholdPercent)
	assert.Equal(t, 10, eff.breakerConfig.MinRequests)
}

func TestGateway_ResolveZeroRetriesAllowed(t *testing.T) {
	t.Parallel()

	g := New(config.Default(), transport.Func(nil))

	eff := g.resolve(&CallOptions{Retry: RetryOptions{MaxRetries: intPtr(0)}})

	assert.Equal(t, 1, eff.policy.MaxAttempts)
}

func TestGateway_ResolveNormalizesInvalid(t *testing.T) {
	t.Parallel()

	g := New(config.Default(), transport.Func(nil))

	// Base delay above the ceiling is clamped down.
	eff := g.resolve(&CallOptions{
		Retry: RetryOptions{
			BaseDelay: 10 * time.Second,
			MaxDelay:  time.Second,
		},
	})

	assert.Equal(t, time.Second, eff.policy.BaseDelay)
	assert.Equal(t, time.Second, eff.policy.MaxDelay)
}
