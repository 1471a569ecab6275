// Package testutil provides deterministic fixtures for peerflow tests.
package testutil

import (
	"fmt"
	"sync"
	"time"
)

// FixedClock is a thread-safe wall-clock source that advances by a fixed
// step on every call, so timestamps (and therefore serialized state blobs)
// are reproducible across test runs.
type FixedClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewFixedClock starts at a fixed epoch with a one-second step.
func NewFixedClock() *FixedClock {
	return &FixedClock{
		now:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		step: time.Second,
	}
}

// Now returns the current instant and advances the clock by one step.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// TokenSequence returns a submission-token generator yielding tok-1,
// tok-2, … for reproducible task records.
func TokenSequence() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("tok-%d", n)
	}
}
