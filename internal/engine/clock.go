package engine

import "sync/atomic"

// Clock is a monotonic logical clock stamping commit cycles.
//
// Cycle records are ordered by seq, not wall-clock time: two cycles can
// complete within the same millisecond, and history replay relies on a
// strict order.
//
// Thread-safety: safe for concurrent use (atomic operations), although
// the single-flight gate means only one cycle stamps at a time.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
// Each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
