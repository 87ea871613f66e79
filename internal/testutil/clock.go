package testutil

import (
	"sync"
	"time"
)

// Epoch is the default starting instant of a FixedClock.
var Epoch = time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)

// FixedClock provides a thread-safe deterministic wall clock for tests.
//
// Each call to Now() returns the current instant and then advances it by
// the configured step, so successive timestamps are strictly increasing and
// records sorted by time come out in the order they were written.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu    sync.Mutex
	start time.Time
	now   time.Time
	step  time.Duration
}

// NewFixedClock creates a clock starting at Epoch that advances one second
// per call to Now().
func NewFixedClock() *FixedClock {
	return NewFixedClockAt(Epoch, time.Second)
}

// NewFixedClockAt creates a clock starting at start that advances by step per
// call to Now(). A zero step freezes the clock.
func NewFixedClockAt(start time.Time, step time.Duration) *FixedClock {
	return &FixedClock{start: start, now: start, step: step}
}

// Now returns the current instant and advances the clock by one step.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Peek returns the instant the next call to Now() will return.
func (c *FixedClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Reset rewinds the clock to its starting instant.
func (c *FixedClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
