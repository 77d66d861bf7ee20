package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start of DeterministicClock: 2023-11-14T22:13:20Z.
var Epoch = time.Unix(1700000000, 0).UTC()

// DeterministicClock is a thread-safe wall clock for tests.
//
// Each call to Now returns the start time plus step times the number of
// earlier calls. A zero step yields a frozen clock. The clock can be reset
// so the same scenario replays with identical timestamps.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	ticks int64
}

// NewDeterministicClock creates a clock starting at start.
func NewDeterministicClock(start time.Time, step time.Duration) *DeterministicClock {
	return &DeterministicClock{start: start, step: step}
}

// FrozenClock returns a clock that always reports Epoch.
func FrozenClock() *DeterministicClock {
	return NewDeterministicClock(Epoch, 0)
}

// Now returns the current time and advances the clock by one step.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.ticks) * c.step)
	c.ticks++
	return t
}

// Peek returns the time the next Now call will report, without advancing.
func (c *DeterministicClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start.Add(time.Duration(c.ticks) * c.step)
}

// Reset rewinds the clock to its start.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
