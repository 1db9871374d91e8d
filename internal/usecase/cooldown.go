package usecase

import "time"

// Cooldown gates actions so two of them are never closer than Duration.
// The zero value is ready immediately.
type Cooldown struct {
	Duration time.Duration

	last  time.Time
	armed bool
}

// NewCooldown creates a cooldown window of d.
func NewCooldown(d time.Duration) *Cooldown {
	return &Cooldown{Duration: d}
}

// Ready reports whether an action at now is allowed.
func (c *Cooldown) Ready(now time.Time) bool {
	if !c.armed {
		return true
	}
	return now.Sub(c.last) >= c.Duration
}

// Mark records an action at now.
func (c *Cooldown) Mark(now time.Time) {
	c.last = now
	c.armed = true
}

// Last returns the time of the last action, and false if there was none.
func (c *Cooldown) Last() (time.Time, bool) {
	return c.last, c.armed
}
