package engine

import "sync/atomic"

// LogicalClock stamps Achieved events with monotonic seq numbers.
// Tests substitute a resettable implementation.
type LogicalClock interface {
	Next() int64
	Current() int64
}

// Clock is a monotonic logical clock stamping Achieved events.
//
// All ordering uses strictly increasing seq numbers from this clock, never
// wall-clock timestamps, so replaying an event sequence reproduces an
// identical achieved log.
//
// Thread-safety: atomic operations, though the engine's single-writer
// design means only the Run goroutine typically calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next() returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number, used
// to resume after the highest seq already in the achieved log.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
