// Package timeutil provides a testable abstraction over time operations.
package timeutil

import (
	"sync"
	"time"
)

// Clock provides an abstraction over time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the duration since t.
	Since(t time.Time) time.Duration

	// Sleep pauses for the specified duration.
	Sleep(d time.Duration)
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Since returns the time elapsed since t. The monotonic reading carried by
// time.Now is used, so wall clock steps do not affect it.
func (RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// Sleep pauses the current goroutine for at least the duration d.
func (RealClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// TickSource converts a Clock into a 32-bit millisecond tick counter with an
// arbitrary epoch. The counter wraps at 2^32 ms (about 49.7 days); callers
// must compute elapsed time by unsigned subtraction.
type TickSource struct {
	clock  Clock
	epoch  time.Time
	offset uint32
}

// NewTickSource starts a tick counter at zero on the given clock.
func NewTickSource(c Clock) *TickSource {
	return NewTickSourceAt(c, 0)
}

// NewTickSourceAt starts a tick counter at the given value. Useful to place
// the counter close to its wraparound point.
func NewTickSourceAt(c Clock, start uint32) *TickSource {
	return &TickSource{clock: c, epoch: c.Now(), offset: start}
}

// Ticks returns the current millisecond tick count.
func (t *TickSource) Ticks() uint32 {
	ms := uint64(t.clock.Since(t.epoch) / time.Millisecond)
	return uint32(ms) + t.offset
}

// MockClock is a manually controlled clock for testing. Sleep advances the
// virtual time instead of blocking.
type MockClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	onSleep func(d time.Duration)
}

// NewMockClock creates a new MockClock set to the given time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mocked current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set sets the mock clock to a specific time.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the mock clock forward by the given duration.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Since returns the duration since t.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Sleep records the sleep duration and advances the clock by it.
func (c *MockClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	hook := c.onSleep
	c.mu.Unlock()

	if hook != nil {
		hook(d)
	}
}

// OnSleep installs a callback run after every Sleep, outside the clock lock.
func (c *MockClock) OnSleep(f func(d time.Duration)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSleep = f
}

// Sleeps returns all recorded sleep durations.
func (c *MockClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]time.Duration, len(c.sleeps))
	copy(result, c.sleeps)
	return result
}
