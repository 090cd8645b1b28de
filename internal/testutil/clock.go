package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a Clock reports.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Clock is a deterministic time source. Every call to Now advances it by
// one second from Epoch, so runs of the same test record identical
// timestamps.
//
// Safe for concurrent use.
type Clock struct {
	mu   sync.Mutex
	tick int64
}

// NewClock returns a clock whose first Now is Epoch.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the next instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Epoch.Add(time.Duration(c.tick) * time.Second)
	c.tick++
	return t
}

// Ticks returns how many instants have been handed out.
func (c *Clock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick
}

// Reset rewinds the clock to Epoch.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = 0
}
