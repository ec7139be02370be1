package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/tokenledger/internal/ledger"
)

// ErrJournalDown is returned by FlakyJournal when it is failing.
var ErrJournalDown = errors.New("journal unavailable")

// FlakyJournal records committed changes and fails while Down is set.
type FlakyJournal struct {
	mu      sync.Mutex
	down    bool
	changes []ledger.Change
}

// SetDown toggles failure mode.
func (j *FlakyJournal) SetDown(down bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.down = down
}

// Commit implements ledger.Journal.
func (j *FlakyJournal) Commit(ctx context.Context, c *ledger.Change) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.down {
		return ErrJournalDown
	}
	j.changes = append(j.changes, *c)
	return nil
}

// Changes returns a copy of every accepted change.
func (j *FlakyJournal) Changes() []ledger.Change {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]ledger.Change, len(j.changes))
	copy(out, j.changes)
	return out
}
