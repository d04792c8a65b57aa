// Package ratelimit provides optional per-destination egress rate limiting.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/avegress/internal/observability"
)

// Config holds rate limiter configuration.
type Config struct {
	// Enabled turns per-destination limiting on.
	Enabled bool

	// Rate is the sustained number of attempts per second per destination.
	Rate float64

	// Burst is the maximum burst size per destination.
	Burst int
}

// DefaultConfig returns a disabled limiter configuration.
func DefaultConfig() Config {
	return Config{
		Enabled: false,
		Rate:    100,
		Burst:   100,
	}
}

// PerDestination is a keyed token-bucket limiter: one bucket per destination
// key, created lazily. Safe for concurrent use.
type PerDestination struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
	logger   observability.Logger
}

// NewPerDestination creates a per-destination limiter.
func NewPerDestination(cfg Config, logger observability.Logger) *PerDestination {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultConfig().Rate
	}
	if cfg.Burst < 1 {
		cfg.Burst = DefaultConfig().Burst
	}

	return &PerDestination{
		rate:   rate.Limit(cfg.Rate),
		burst:  cfg.Burst,
		logger: logger,
	}
}

// Wait blocks until the destination's bucket grants a token or the context
// is done.
func (l *PerDestination) Wait(ctx context.Context, key string) error {
	return l.limiter(key).Wait(ctx)
}

// Allow reports whether the destination's bucket grants a token now.
func (l *PerDestination) Allow(key string) bool {
	return l.limiter(key).Allow()
}

// limiter returns the bucket for a destination key, creating it on first
// use.
func (l *PerDestination) limiter(key string) *rate.Limiter {
	if value, ok := l.limiters.Load(key); ok {
		return value.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(l.rate, l.burst)
	actual, loaded := l.limiters.LoadOrStore(key, limiter)
	if loaded {
		return actual.(*rate.Limiter)
	}

	l.logger.Debug("created rate limiter",
		observability.String("destination", key),
	)

	return limiter
}
