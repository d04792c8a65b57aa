package circuitbreaker

import (
	"time"
)

// Outcome classifies the result of one allowed attempt.
type Outcome int

const (
	// OutcomeSuccess indicates the attempt succeeded.
	OutcomeSuccess Outcome = iota

	// OutcomeFailure indicates the attempt failed (network error or
	// failure-like upstream status).
	OutcomeFailure

	// OutcomeTimeout indicates the attempt exceeded its deadline.
	OutcomeTimeout
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// windowCounts is an aggregate over the live buckets of a window.
type windowCounts struct {
	successes int
	failures  int
	timeouts  int
}

// total returns the total number of samples.
func (c windowCounts) total() int {
	return c.successes + c.failures + c.timeouts
}

// errorPercent returns the failure percentage (failures plus timeouts over
// total), or 0 when the window is empty.
func (c windowCounts) errorPercent() int {
	total := c.total()
	if total == 0 {
		return 0
	}
	return (c.failures + c.timeouts) * 100 / total
}

// windowBucket holds outcome counts for one sub-interval of the window.
// The epoch identifies which interval the counts belong to; a bucket whose
// epoch is stale is implicitly empty.
type windowBucket struct {
	epoch     int64
	successes int
	failures  int
	timeouts  int
}

// rollingWindow is a time-sliding record of recent outcomes, bucketed into
// equal sub-intervals. Not safe for concurrent use; the breaker serializes
// access under its own lock.
type rollingWindow struct {
	bucketSpan time.Duration
	buckets    []windowBucket
}

// newRollingWindow creates a window spanning the given duration split into
// the given number of buckets.
func newRollingWindow(window time.Duration, buckets int) *rollingWindow {
	return &rollingWindow{
		bucketSpan: window / time.Duration(buckets),
		buckets:    make([]windowBucket, buckets),
	}
}

// epochAt returns the interval index for the given time.
func (w *rollingWindow) epochAt(now time.Time) int64 {
	return now.UnixNano() / int64(w.bucketSpan)
}

// record adds an outcome to the bucket covering now, evicting stale counts
// that previously occupied the bucket slot.
func (w *rollingWindow) record(now time.Time, outcome Outcome) {
	epoch := w.epochAt(now)
	b := &w.buckets[epoch%int64(len(w.buckets))]
	if b.epoch != epoch {
		*b = windowBucket{epoch: epoch}
	}
	switch outcome {
	case OutcomeSuccess:
		b.successes++
	case OutcomeFailure:
		b.failures++
	case OutcomeTimeout:
		b.timeouts++
	}
}

// counts aggregates all buckets still inside the window relative to now.
func (w *rollingWindow) counts(now time.Time) windowCounts {
	epoch := w.epochAt(now)
	oldest := epoch - int64(len(w.buckets)) + 1

	var c windowCounts
	for i := range w.buckets {
		b := &w.buckets[i]
		if b.epoch < oldest || b.epoch > epoch {
			continue
		}
		c.successes += b.successes
		c.failures += b.failures
		c.timeouts += b.timeouts
	}
	return c
}

// reset discards all recorded outcomes.
func (w *rollingWindow) reset() {
	for i := range w.buckets {
		w.buckets[i] = windowBucket{}
	}
}
