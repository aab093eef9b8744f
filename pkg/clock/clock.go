// Package clock provides the time source used by pincache.
//
// All timestamps in pincache are monotonic microsecond counts. Using an
// interface rather than time.Now directly lets tests drive staleness
// windows deterministically with a manual clock.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock supplies monotonically non-decreasing microsecond timestamps.
//
// Implementations must be safe for concurrent use. The zero point is
// implementation-defined; only differences between readings are
// meaningful.
type Clock interface {
	NowMicros() uint64
}

// SystemClock reads the real monotonic clock, measured from the moment
// the clock was created.
type SystemClock struct {
	base time.Time
}

// NewSystemClock returns a SystemClock anchored at the current time.
func NewSystemClock() *SystemClock {
	return &SystemClock{base: time.Now()}
}

// NowMicros returns microseconds elapsed since the clock was created.
// time.Since uses the runtime's monotonic reading, so the result never
// goes backwards across wall-clock adjustments.
func (c *SystemClock) NowMicros() uint64 {
	return uint64(time.Since(c.base).Microseconds())
}

// ManualClock is a test clock that only moves when told to.
type ManualClock struct {
	now atomic.Uint64
}

// NewManualClock returns a ManualClock starting at startMicros.
func NewManualClock(startMicros uint64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(startMicros)
	return c
}

// NowMicros returns the current manual reading.
func (c *ManualClock) NowMicros() uint64 {
	return c.now.Load()
}

// Advance moves the clock forward by d. Negative durations are ignored.
func (c *ManualClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.now.Add(uint64(d.Microseconds()))
}

// SetMicros jumps the clock to an absolute reading.
func (c *ManualClock) SetMicros(micros uint64) {
	c.now.Store(micros)
}
