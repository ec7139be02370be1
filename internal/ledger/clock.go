package ledger

import "sync/atomic"

// Clock is the monotonic logical clock that stamps events.
//
// Every committed event takes the next value; rejected operations take none,
// so sequence numbers in the event log are contiguous from 1.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start. Used when restoring a
// ledger from a journal so numbering resumes after the last stored event.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out (0 if none).
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
