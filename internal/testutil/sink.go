package testutil

import (
	"sync"

	"github.com/roach88/tokenledger/internal/event"
)

// RecordingSink collects published events. Safe for concurrent use.
type RecordingSink struct {
	mu     sync.Mutex
	events []event.Event
}

// Publish records e.
func (s *RecordingSink) Publish(e event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// Events returns a copy of everything recorded so far.
func (s *RecordingSink) Events() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Event, len(s.events))
	copy(out, s.events)
	return out
}
