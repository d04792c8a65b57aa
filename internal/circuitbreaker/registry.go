package circuitbreaker

import (
	"sync"

	"github.com/vyrodovalexey/avegress/internal/observability"
)

// Registry owns one circuit breaker per destination key. Creation is lazy
// and race-free: exactly one breaker instance is ever created per key even
// under concurrent first use.
type Registry struct {
	breakers sync.Map
	config   *Config
	logger   observability.Logger
}

// NewRegistry creates a new circuit breaker registry with the given default
// breaker configuration.
func NewRegistry(config *Config, logger observability.Logger) *Registry {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	return &Registry{
		config: config,
		logger: logger,
	}
}

// Get returns the breaker for a destination key, or nil if none exists yet.
func (r *Registry) Get(key string) *CircuitBreaker {
	value, ok := r.breakers.Load(key)
	if !ok {
		return nil
	}
	return value.(*CircuitBreaker)
}

// GetOrCreate returns the breaker for a destination key, creating it with
// the registry default configuration on first use.
func (r *Registry) GetOrCreate(key string) *CircuitBreaker {
	return r.GetOrCreateWithConfig(key, r.config)
}

// GetOrCreateWithConfig returns the breaker for a destination key, creating
// it with the given configuration on first use. The configuration of an
// already-existing breaker is left untouched: the first call to reach a
// destination decides its breaker settings.
func (r *Registry) GetOrCreateWithConfig(key string, config *Config) *CircuitBreaker {
	if value, ok := r.breakers.Load(key); ok {
		return value.(*CircuitBreaker)
	}

	cb := New(key, config, r.logger)

	actual, loaded := r.breakers.LoadOrStore(key, cb)
	if loaded {
		return actual.(*CircuitBreaker)
	}

	r.logger.Debug("created circuit breaker",
		observability.String("destination", key),
	)

	return cb
}

// Remove removes a destination's breaker from the registry.
func (r *Registry) Remove(key string) {
	r.breakers.Delete(key)
	r.logger.Debug("removed circuit breaker",
		observability.String("destination", key),
	)
}

// ResetAll resets all circuit breakers to closed state.
func (r *Registry) ResetAll() {
	r.breakers.Range(func(key, value interface{}) bool {
		value.(*CircuitBreaker).Reset()
		return true
	})
	r.logger.Info("reset all circuit breakers")
}

// Stats returns statistics for all circuit breakers keyed by destination.
func (r *Registry) Stats() map[string]Stats {
	stats := make(map[string]Stats)
	r.breakers.Range(func(key, value interface{}) bool {
		stats[key.(string)] = value.(*CircuitBreaker).Stats()
		return true
	})
	return stats
}

// Count returns the number of circuit breakers in the registry.
func (r *Registry) Count() int {
	count := 0
	r.breakers.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}
