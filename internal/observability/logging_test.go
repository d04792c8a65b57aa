package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  LogConfig
		wantErr bool
	}{
		{name: "json stdout", config: LogConfig{Level: "info", Format: "json", Output: "stdout"}},
		{name: "console stderr", config: LogConfig{Level: "debug", Format: "console", Output: "stderr"}},
		{name: "warn level", config: LogConfig{Level: "warn", Format: "json"}},
		{name: "invalid level", config: LogConfig{Level: "loud", Format: "json"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			logger, err := NewLogger(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestLogger_With(t *testing.T) {
	t.Parallel()

	logger := NopLogger()

	child := logger.With(String("destination", "api.example.com"))

	assert.NotNil(t, child)
	// Must not panic.
	child.Info("hello", Int("attempt", 1))
}

func TestCallIDContext(t *testing.T) {
	t.Parallel()

	ctx := ContextWithCallID(context.Background(), "abc-123")

	assert.Equal(t, "abc-123", CallIDFromContext(ctx))
	assert.Empty(t, CallIDFromContext(context.Background()))
}

func TestLogger_WithContext(t *testing.T) {
	t.Parallel()

	logger := NopLogger()

	ctx := ContextWithCallID(context.Background(), "abc-123")
	assert.NotNil(t, logger.WithContext(ctx))
	// Without a call ID the same logger comes back.
	assert.Equal(t, logger, logger.WithContext(context.Background()))
}

func TestGlobalLogger(t *testing.T) {
	logger := NopLogger()
	SetGlobalLogger(logger)
	defer SetGlobalLogger(nil)

	assert.Equal(t, logger, GetGlobalLogger())
}

func TestGlobalLogger_DefaultWhenUnset(t *testing.T) {
	SetGlobalLogger(nil)

	assert.NotNil(t, GetGlobalLogger())
}

func TestDefaultLogConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultLogConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
}
