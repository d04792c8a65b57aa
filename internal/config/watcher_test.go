package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatcher(t *testing.T) {
	t.Parallel()

	path := writeTempConfig(t, sampleYAML)

	w, err := NewWatcher(path, func(*Config) {})
	require.NoError(t, err)
	require.NotNil(t, w)

	assert.NoError(t, w.watcher.Close())
}

func TestWatcher_ReloadOnWrite(t *testing.T) {
	t.Parallel()

	path := writeTempConfig(t, sampleYAML)

	var reloads atomic.Int32
	var lastLevel atomic.Value

	w, err := NewWatcher(path, func(cfg *Config) {
		lastLevel.Store(cfg.Log.Level)
		reloads.Add(1)
	}, WithDebounceDelay(20*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer func() { _ = w.Stop() }()

	updated := strings.ReplaceAll(sampleYAML, "warn", "debug")
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	assert.Eventually(t, func() bool {
		return reloads.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "debug", lastLevel.Load())
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	t.Parallel()

	path := writeTempConfig(t, sampleYAML)

	var reloads atomic.Int32
	w, err := NewWatcher(path, func(*Config) {
		reloads.Add(1)
	}, WithDebounceDelay(100*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer func() { _ = w.Stop() }()

	// A burst of writes inside the debounce window collapses to one
	// reload.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		return reloads.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), reloads.Load())
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "egress.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	var reloads atomic.Int32
	w, err := NewWatcher(path, func(*Config) {
		reloads.Add(1)
	}, WithDebounceDelay(20*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0o600))

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), reloads.Load())
}

func TestWatcher_ErrorCallbackOnBadReload(t *testing.T) {
	t.Parallel()

	path := writeTempConfig(t, sampleYAML)

	var errs atomic.Int32
	w, err := NewWatcher(path, func(*Config) {},
		WithDebounceDelay(20*time.Millisecond),
		WithErrorCallback(func(error) { errs.Add(1) }),
	)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(path, []byte("gateway: [broken"), 0o600))

	assert.Eventually(t, func() bool {
		return errs.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_StopIdempotent(t *testing.T) {
	t.Parallel()

	path := writeTempConfig(t, sampleYAML)

	w, err := NewWatcher(path, func(*Config) {})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
