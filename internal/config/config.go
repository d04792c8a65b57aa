// Package config provides the process-wide default configuration for the
// egress gateway. The configuration is built once at startup from an
// optional YAML file layered under environment overrides, then passed
// explicitly into the gateway constructor; it is never read ad hoc
// mid-call.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Built-in defaults.
const (
	DefaultRequestTimeout        = 6000 * time.Millisecond
	DefaultMaxRetries            = 2
	DefaultBaseDelay             = 250 * time.Millisecond
	DefaultMaxDelay              = 1500 * time.Millisecond
	DefaultBreakerEnabled        = true
	DefaultAttemptTimeout        = 3500 * time.Millisecond
	DefaultErrorThresholdPercent = 50
	DefaultOpenDuration          = 10000 * time.Millisecond
	DefaultRollingWindow         = 10000 * time.Millisecond
	DefaultRollingBuckets        = 10
	DefaultMinRequests           = 5
	DefaultAdminAddr             = ":9901"
)

// Config is the immutable process-wide configuration.
type Config struct {
	Gateway   GatewaySettings   `yaml:"gateway"`
	RateLimit RateLimitSettings `yaml:"rateLimit"`
	Log       LogSettings       `yaml:"log"`
	Tracing   TracingSettings   `yaml:"tracing"`
	Admin     AdminSettings     `yaml:"admin"`
}

// GatewaySettings holds the per-call defaults of the gateway.
type GatewaySettings struct {
	// RequestTimeout is the default per-attempt deadline.
	RequestTimeout Duration        `yaml:"requestTimeout"`
	Retry          RetrySettings   `yaml:"retry"`
	Breaker        BreakerSettings `yaml:"breaker"`
}

// RetrySettings holds retry defaults.
type RetrySettings struct {
	// MaxRetries is the number of additional attempts after the first one.
	MaxRetries *int     `yaml:"maxRetries"`
	BaseDelay  Duration `yaml:"baseDelay"`
	MaxDelay   Duration `yaml:"maxDelay"`
}

// BreakerSettings holds circuit breaker defaults.
type BreakerSettings struct {
	Enabled               *bool    `yaml:"enabled"`
	AttemptTimeout        Duration `yaml:"attemptTimeout"`
	ErrorThresholdPercent *int     `yaml:"errorThresholdPercent"`
	OpenDuration          Duration `yaml:"openDuration"`
	RollingWindow         Duration `yaml:"rollingWindow"`
	RollingBuckets        int      `yaml:"rollingBuckets"`
	MinRequests           int      `yaml:"minRequests"`
}

// RateLimitSettings holds the optional per-destination rate limiter
// configuration.
type RateLimitSettings struct {
	Enabled bool    `yaml:"enabled"`
	Rate    float64 `yaml:"rate"`
	Burst   int     `yaml:"burst"`
}

// LogSettings holds logging configuration.
type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracingSettings holds tracing configuration.
type TracingSettings struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"serviceName"`
	OTLPEndpoint string  `yaml:"otlpEndpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// AdminSettings holds the admin server configuration.
type AdminSettings struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	maxRetries := DefaultMaxRetries
	enabled := DefaultBreakerEnabled
	threshold := DefaultErrorThresholdPercent

	return &Config{
		Gateway: GatewaySettings{
			RequestTimeout: Duration(DefaultRequestTimeout),
			Retry: RetrySettings{
				MaxRetries: &maxRetries,
				BaseDelay:  Duration(DefaultBaseDelay),
				MaxDelay:   Duration(DefaultMaxDelay),
			},
			Breaker: BreakerSettings{
				Enabled:               &enabled,
				AttemptTimeout:        Duration(DefaultAttemptTimeout),
				ErrorThresholdPercent: &threshold,
				OpenDuration:          Duration(DefaultOpenDuration),
				RollingWindow:         Duration(DefaultRollingWindow),
				RollingBuckets:        DefaultRollingBuckets,
				MinRequests:           DefaultMinRequests,
			},
		},
		RateLimit: RateLimitSettings{
			Enabled: false,
			Rate:    100,
			Burst:   100,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Tracing: TracingSettings{
			Enabled:      false,
			ServiceName:  "avegress",
			SamplingRate: 1.0,
		},
		Admin: AdminSettings{
			Enabled: true,
			Addr:    DefaultAdminAddr,
		},
	}
}

// ApplyEnv overlays environment variables onto the configuration.
func (c *Config) ApplyEnv() {
	applyEnvDuration("EGRESS_REQUEST_TIMEOUT", &c.Gateway.RequestTimeout)
	applyEnvIntPtr("EGRESS_RETRY_MAX", &c.Gateway.Retry.MaxRetries)
	applyEnvDuration("EGRESS_RETRY_BASE_DELAY", &c.Gateway.Retry.BaseDelay)
	applyEnvDuration("EGRESS_RETRY_MAX_DELAY", &c.Gateway.Retry.MaxDelay)

	applyEnvBoolPtr("EGRESS_BREAKER_ENABLED", &c.Gateway.Breaker.Enabled)
	applyEnvDuration("EGRESS_BREAKER_ATTEMPT_TIMEOUT", &c.Gateway.Breaker.AttemptTimeout)
	applyEnvIntPtr("EGRESS_BREAKER_ERROR_THRESHOLD", &c.Gateway.Breaker.ErrorThresholdPercent)
	applyEnvDuration("EGRESS_BREAKER_OPEN_DURATION", &c.Gateway.Breaker.OpenDuration)
	applyEnvDuration("EGRESS_BREAKER_ROLLING_WINDOW", &c.Gateway.Breaker.RollingWindow)
	applyEnvInt("EGRESS_BREAKER_ROLLING_BUCKETS", &c.Gateway.Breaker.RollingBuckets)
	applyEnvInt("EGRESS_BREAKER_MIN_REQUESTS", &c.Gateway.Breaker.MinRequests)

	applyEnvBool("EGRESS_RATELIMIT_ENABLED", &c.RateLimit.Enabled)
	applyEnvFloat("EGRESS_RATELIMIT_RATE", &c.RateLimit.Rate)
	applyEnvInt("EGRESS_RATELIMIT_BURST", &c.RateLimit.Burst)

	applyEnvString("EGRESS_LOG_LEVEL", &c.Log.Level)
	applyEnvString("EGRESS_LOG_FORMAT", &c.Log.Format)
	applyEnvString("EGRESS_LOG_OUTPUT", &c.Log.Output)

	applyEnvBool("EGRESS_TRACING_ENABLED", &c.Tracing.Enabled)
	applyEnvString("EGRESS_TRACING_SERVICE_NAME", &c.Tracing.ServiceName)
	applyEnvString("EGRESS_TRACING_OTLP_ENDPOINT", &c.Tracing.OTLPEndpoint)
	applyEnvFloat("EGRESS_TRACING_SAMPLING_RATE", &c.Tracing.SamplingRate)

	applyEnvBool("EGRESS_ADMIN_ENABLED", &c.Admin.Enabled)
	applyEnvString("EGRESS_ADMIN_ADDR", &c.Admin.Addr)
}

// Validate checks and normalizes the configuration. Invariants:
// baseDelay <= maxDelay, errorThresholdPercent in [0,100], at least one
// bucket, non-negative retry budget.
func (c *Config) Validate() error {
	if c.Gateway.RequestTimeout <= 0 {
		c.Gateway.RequestTimeout = Duration(DefaultRequestTimeout)
	}

	if c.Gateway.Retry.MaxRetries == nil || *c.Gateway.Retry.MaxRetries < 0 {
		maxRetries := DefaultMaxRetries
		c.Gateway.Retry.MaxRetries = &maxRetries
	}
	if c.Gateway.Retry.BaseDelay <= 0 {
		c.Gateway.Retry.BaseDelay = Duration(DefaultBaseDelay)
	}
	if c.Gateway.Retry.MaxDelay <= 0 {
		c.Gateway.Retry.MaxDelay = Duration(DefaultMaxDelay)
	}
	if c.Gateway.Retry.BaseDelay > c.Gateway.Retry.MaxDelay {
		return fmt.Errorf("retry: baseDelay %v exceeds maxDelay %v",
			c.Gateway.Retry.BaseDelay.Duration(), c.Gateway.Retry.MaxDelay.Duration())
	}

	if c.Gateway.Breaker.Enabled == nil {
		enabled := DefaultBreakerEnabled
		c.Gateway.Breaker.Enabled = &enabled
	}
	if c.Gateway.Breaker.AttemptTimeout <= 0 {
		c.Gateway.Breaker.AttemptTimeout = Duration(DefaultAttemptTimeout)
	}
	if c.Gateway.Breaker.ErrorThresholdPercent == nil {
		threshold := DefaultErrorThresholdPercent
		c.Gateway.Breaker.ErrorThresholdPercent = &threshold
	}
	if *c.Gateway.Breaker.ErrorThresholdPercent < 0 || *c.Gateway.Breaker.ErrorThresholdPercent > 100 {
		return fmt.Errorf("breaker: errorThresholdPercent %d outside [0,100]",
			*c.Gateway.Breaker.ErrorThresholdPercent)
	}
	if c.Gateway.Breaker.OpenDuration <= 0 {
		c.Gateway.Breaker.OpenDuration = Duration(DefaultOpenDuration)
	}
	if c.Gateway.Breaker.RollingWindow <= 0 {
		c.Gateway.Breaker.RollingWindow = Duration(DefaultRollingWindow)
	}
	if c.Gateway.Breaker.RollingBuckets < 1 {
		c.Gateway.Breaker.RollingBuckets = DefaultRollingBuckets
	}
	if c.Gateway.Breaker.MinRequests < 1 {
		c.Gateway.Breaker.MinRequests = DefaultMinRequests
	}

	if c.Admin.Addr == "" {
		c.Admin.Addr = DefaultAdminAddr
	}

	return nil
}

// Environment overlay helpers.

func applyEnvString(key string, dst *string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func applyEnvInt(key string, dst *int) {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			*dst = n
		}
	}
}

func applyEnvIntPtr(key string, dst **int) {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			*dst = &n
		}
	}
}

func applyEnvFloat(key string, dst *float64) {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			*dst = f
		}
	}
}

func applyEnvBool(key string, dst *bool) {
	if value := parseEnvBool(os.Getenv(key)); value != nil {
		*dst = *value
	}
}

func applyEnvBoolPtr(key string, dst **bool) {
	if value := parseEnvBool(os.Getenv(key)); value != nil {
		*dst = value
	}
}

// parseEnvBool accepts the usual boolean spellings; anything else is
// treated as unset.
func parseEnvBool(value string) *bool {
	var b bool
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		b = true
	case "false", "0", "no", "off":
		b = false
	default:
		return nil
	}
	return &b
}

// applyEnvDuration accepts a Go duration string ("250ms") or a bare
// integer, interpreted as milliseconds.
func applyEnvDuration(key string, dst *Duration) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	if d, err := time.ParseDuration(value); err == nil {
		*dst = Duration(d)
		return
	}
	if ms, err := strconv.Atoi(value); err == nil {
		*dst = Duration(time.Duration(ms) * time.Millisecond)
	}
}
