// Package clock provides the time source used for expiry comparisons.
// All instants are normalized to a fixed UTC+3 offset so that every component
// of a running instance compares expiry dates against the same wall clock.
package clock

import (
	"sync"
	"time"
)

// Zone is the fixed offset used across the service. No daylight-saving rules apply.
var Zone = time.FixedZone("UTC+3", 3*60*60)

// Clock supplies "now"
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// System returns a Clock backed by the wall clock, normalized to Zone
func System() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().In(Zone)
}

// FixedClock always returns the same instant until moved with Set or Advance.
type FixedClock struct {
	mu  sync.RWMutex
	now time.Time
}

// Fixed creates a FixedClock pinned to t
func Fixed(t time.Time) *FixedClock {
	return &FixedClock{now: t.In(Zone)}
}

// Now returns the pinned instant
func (c *FixedClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Set moves the clock to t
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.In(Zone)
	c.mu.Unlock()
}

// Advance moves the clock forward by d
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
