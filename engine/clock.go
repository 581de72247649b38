package engine

import "time"

// Clock paces the engine loop: a lazy, finite, forward-only sequence of
// timestamps, consumed once. An empty clock is valid and yields zero ticks.
type Clock interface {
	// Next returns the next timestamp, false when the clock is exhausted.
	Next() (time.Time, bool)
}

// SliceClock ticks through an explicit list of timestamps.
type SliceClock struct {
	ts  []time.Time
	idx int
}

func NewSliceClock(ts ...time.Time) *SliceClock {
	return &SliceClock{ts: ts}
}

func (c *SliceClock) Next() (time.Time, bool) {
	if c.idx >= len(c.ts) {
		return time.Time{}, false
	}
	t := c.ts[c.idx]
	c.idx++
	return t, true
}

// Unbounded returns a clock that never exhausts: the loop runs until the
// data source does. This is the default when no clock is supplied.
func Unbounded() Clock { return unbounded{} }

type unbounded struct{}

func (unbounded) Next() (time.Time, bool) { return time.Time{}, true }
