package circuitbreaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig returns a config with small windows suitable for fast tests.
func testConfig() *Config {
	return &Config{
		ErrorThresholdPercent: 50,
		MinRequests:           4,
		OpenDuration:          50 * time.Millisecond,
		RollingWindow:         time.Second,
		RollingBuckets:        10,
	}
}

// record runs one full allow-then-record cycle and returns whether the
// attempt was allowed.
func record(t *testing.T, cb *CircuitBreaker, outcome Outcome) bool {
	t.Helper()
	permit, err := cb.Allow()
	if err != nil {
		return false
	}
	cb.RecordOutcome(permit, outcome)
	return true
}

func TestNew(t *testing.T) {
	t.Parallel()

	cb := New("test-dest", testConfig(), nil)

	assert.NotNil(t, cb)
	assert.Equal(t, "test-dest", cb.Name())
	assert.Equal(t, StateClosed, cb.State())
}

func TestNew_NilConfigUsesDefaults(t *testing.T) {
	t.Parallel()

	cb := New("test-dest", nil, nil)

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, DefaultMinRequests, cb.config.MinRequests)
}

func TestCircuitBreaker_AllowClosed(t *testing.T) {
	t.Parallel()

	cb := New("test-dest", testConfig(), nil)

	permit, err := cb.Allow()

	require.NoError(t, err)
	require.NotNil(t, permit)
	assert.False(t, permit.Probe())
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	t.Parallel()

	cb := New("test-dest", testConfig(), nil)

	// 2 successes + 2 failures = 4 samples at 50% errors.
	require.True(t, record(t, cb, OutcomeSuccess))
	require.True(t, record(t, cb, OutcomeSuccess))
	require.True(t, record(t, cb, OutcomeFailure))
	assert.Equal(t, StateClosed, cb.State())

	require.True(t, record(t, cb, OutcomeFailure))
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_StaysClosedBelowMinRequests(t *testing.T) {
	t.Parallel()

	cb := New("test-dest", testConfig(), nil)

	// 3 failures is 100% errors but below the minimum sample size of 4.
	require.True(t, record(t, cb, OutcomeFailure))
	require.True(t, record(t, cb, OutcomeFailure))
	require.True(t, record(t, cb, OutcomeFailure))

	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_TimeoutsCountAsErrors(t *testing.T) {
	t.Parallel()

	cb := New("test-dest", testConfig(), nil)

	require.True(t, record(t, cb, OutcomeSuccess))
	require.True(t, record(t, cb, OutcomeSuccess))
	require.True(t, record(t, cb, OutcomeTimeout))
	require.True(t, record(t, cb, OutcomeTimeout))

	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_OpenRejects(t *testing.T) {
	t.Parallel()

	cb := New("test-dest", testConfig(), nil)
	openBreaker(t, cb)

	permit, err := cb.Allow()

	assert.Nil(t, permit)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestCircuitBreaker_HalfOpenProbeAfterOpenDuration(t *testing.T) {
	t.Parallel()

	cb := New("test-dest", testConfig(), nil)
	openBreaker(t, cb)

	time.Sleep(60 * time.Millisecond)

	permit, err := cb.Allow()
	require.NoError(t, err)
	require.NotNil(t, permit)
	assert.True(t, permit.Probe())
	assert.Equal(t, StateHalfOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenSingleProbe(t *testing.T) {
	t.Parallel()

	cb := New("test-dest", testConfig(), nil)
	openBreaker(t, cb)

	time.Sleep(60 * time.Millisecond)

	probe, err := cb.Allow()
	require.NoError(t, err)
	require.True(t, probe.Probe())

	// While the probe is in flight every other attempt is rejected.
	second, err := cb.Allow()
	assert.Nil(t, second)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestCircuitBreaker_ProbeSuccessCloses(t *testing.T) {
	t.Parallel()

	cb := New("test-dest", testConfig(), nil)
	openBreaker(t, cb)

	time.Sleep(60 * time.Millisecond)

	probe, err := cb.Allow()
	require.NoError(t, err)

	cb.RecordOutcome(probe, OutcomeSuccess)

	assert.Equal(t, StateClosed, cb.State())

	// The window restarted empty: a single failure must not reopen.
	require.True(t, record(t, cb, OutcomeFailure))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	t.Parallel()

	cb := New("test-dest", testConfig(), nil)
	openBreaker(t, cb)

	time.Sleep(60 * time.Millisecond)

	probe, err := cb.Allow()
	require.NoError(t, err)

	cb.RecordOutcome(probe, OutcomeFailure)

	assert.Equal(t, StateOpen, cb.State())

	// The open period restarts in full.
	_, err = cb.Allow()
	assert.ErrorIs(t, err, ErrOpen)
}

func TestCircuitBreaker_ProbeTimeoutReopens(t *testing.T) {
	t.Parallel()

	cb := New("test-dest", testConfig(), nil)
	openBreaker(t, cb)

	time.Sleep(60 * time.Millisecond)

	probe, err := cb.Allow()
	require.NoError(t, err)

	cb.RecordOutcome(probe, OutcomeTimeout)

	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_RecordOutcomeNilPermit(t *testing.T) {
	t.Parallel()

	cb := New("test-dest", testConfig(), nil)

	// Must not panic or count anything.
	cb.RecordOutcome(nil, OutcomeFailure)

	stats := cb.Stats()
	assert.Equal(t, 0, stats.Failures)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	t.Parallel()

	cb := New("test-dest", testConfig(), nil)
	openBreaker(t, cb)

	cb.Reset()

	assert.Equal(t, StateClosed, cb.State())
	permit, err := cb.Allow()
	require.NoError(t, err)
	assert.False(t, permit.Probe())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	t.Parallel()

	var (
		mu          sync.Mutex
		transitions []State
	)
	cfg := testConfig().WithOnStateChange(func(name string, from, to State) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, to)
	})

	cb := New("test-dest", cfg, nil)
	openBreaker(t, cb)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(transitions) == 1 && transitions[0] == StateOpen
	}, time.Second, 10*time.Millisecond)
}

func TestCircuitBreaker_Stats(t *testing.T) {
	t.Parallel()

	cb := New("test-dest", testConfig(), nil)

	require.True(t, record(t, cb, OutcomeSuccess))
	require.True(t, record(t, cb, OutcomeFailure))
	require.True(t, record(t, cb, OutcomeTimeout))

	stats := cb.Stats()
	assert.Equal(t, StateClosed, stats.State)
	assert.Equal(t, 1, stats.Successes)
	assert.Equal(t, 1, stats.Failures)
	assert.Equal(t, 1, stats.Timeouts)
	assert.Equal(t, 66, stats.ErrorPercent)
}

func TestCircuitBreaker_ConcurrentUse(t *testing.T) {
	t.Parallel()

	cb := New("test-dest", testConfig(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			permit, err := cb.Allow()
			if err != nil {
				return
			}
			if i%2 == 0 {
				cb.RecordOutcome(permit, OutcomeSuccess)
			} else {
				cb.RecordOutcome(permit, OutcomeFailure)
			}
		}(i)
	}
	wg.Wait()

	// The breaker ends up either closed or open depending on interleaving;
	// it must never be half-open without an elapsed open period.
	assert.NotEqual(t, StateHalfOpen, cb.State())
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestOutcome_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "failure", OutcomeFailure.String())
	assert.Equal(t, "timeout", OutcomeTimeout.String())
	assert.Equal(t, "unknown", Outcome(99).String())
}

// openBreaker drives the breaker from closed to open.
func openBreaker(t *testing.T, cb *CircuitBreaker) {
	t.Helper()
	for i := 0; i < 4; i++ {
		require.True(t, record(t, cb, OutcomeFailure))
	}
	require.Equal(t, StateOpen, cb.State())
}
