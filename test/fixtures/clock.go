// Package fixtures provides test doubles for the screen, the pointer, input
// injection and time, so loops can run without a display or real delays.
package fixtures

import (
	"sync"
	"time"
)

// FakeClock is a manual clock. Sleep advances Now instead of blocking.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	slept  []time.Duration
	onWake func(now time.Time)
}

// NewFakeClock creates a clock starting at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the clock by d and runs the wake hook, if any.
func (c *FakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	hook, now := c.onWake, c.now
	c.mu.Unlock()
	if hook != nil {
		hook(now)
	}
}

// Advance moves the clock forward without recording a sleep.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Sleeps returns every duration passed to Sleep.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

// OnWake registers a hook run after every Sleep, e.g. to move the pointer
// during a stop dwell.
func (c *FakeClock) OnWake(fn func(now time.Time)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onWake = fn
}
