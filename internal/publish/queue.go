package publish

import (
	"sync"

	"github.com/roach88/tokenledger/internal/event"
)

// backlog holds committed events waiting for delivery, oldest first.
//
// push never blocks: the ledger publishes while holding its own lock.
// Consumers wait on ready(), which carries at most one pending wakeup and
// is closed by shutdown.
type backlog struct {
	mu     sync.Mutex
	events []event.Event
	head   int // index of the oldest undelivered event
	closed bool
	wake   chan struct{}
}

func newBacklog() *backlog {
	return &backlog{
		events: make([]event.Event, 0, 64),
		wake:   make(chan struct{}, 1),
	}
}

// push appends e. It reports false once the backlog is shut down.
func (b *backlog) push(e event.Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}
	b.events = append(b.events, e)

	select {
	case b.wake <- struct{}{}:
	default:
	}
	return true
}

// pop removes the oldest event. It reports false when nothing is pending.
func (b *backlog) pop() (event.Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.head == len(b.events) {
		return event.Event{}, false
	}
	e := b.events[b.head]
	b.events[b.head] = event.Event{}
	b.head++

	// Reuse the array once it is fully delivered, and compact when the
	// delivered prefix dominates.
	switch {
	case b.head == len(b.events):
		b.events = b.events[:0]
		b.head = 0
	case b.head >= 64 && b.head*2 >= len(b.events):
		n := copy(b.events, b.events[b.head:])
		clear(b.events[n:])
		b.events = b.events[:n]
		b.head = 0
	}
	return e, true
}

// ready fires after a push and stays closed after shutdown.
func (b *backlog) ready() <-chan struct{} {
	return b.wake
}

func (b *backlog) pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events) - b.head
}

// drained reports whether the backlog is shut down with nothing pending.
func (b *backlog) drained() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed && b.head == len(b.events)
}

// shutdown refuses further pushes. Pending events can still be popped.
func (b *backlog) shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.wake)
}
