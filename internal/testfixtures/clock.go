package testfixtures

import (
	"sync"
	"time"
)

// Clock is a manually driven time source shared by the services under test.
type Clock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewClock starts a clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start.UTC()}
}

// Now returns the clock time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// NowFunc returns Now for injection into constructors; a nil clock yields time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set jumps to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.UTC()
	c.mu.Unlock()
}

// Advance moves the clock by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// RelativeTo moves the clock to offset from the session's scheduled start.
// A negative offset lands before the start, which is how join windows and
// reminder leads are exercised.
func (c *Clock) RelativeTo(session SessionFixture, offset time.Duration) time.Time {
	at := session.StartUTC.Add(offset)
	c.Set(at)
	return at
}
