package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/holiman/uint256"

	"github.com/roach88/tokenledger/internal/account"
	"github.com/roach88/tokenledger/internal/event"
	"github.com/roach88/tokenledger/internal/ledger"
)

// Discrepancy is one divergence found by Replay.
type Discrepancy struct {
	// Seq is the event that exposed the problem (0 for state comparisons).
	Seq int64 `json:"seq"`

	// Kind categorizes the problem.
	Kind string `json:"kind"`

	// Detail is a human-readable description.
	Detail string `json:"detail"`
}

// Discrepancy kinds.
const (
	DiscrepancySeqGap     = "seq_gap"
	DiscrepancyIDMismatch = "id_mismatch"
	DiscrepancyMint       = "mint"
	DiscrepancyUnderflow  = "underflow"
	DiscrepancyOverflow   = "overflow"
	DiscrepancySupply     = "supply_mismatch"
	DiscrepancyBalance    = "balance_mismatch"
)

// ReplayReport summarizes a replay of the event log.
type ReplayReport struct {
	Events        int           `json:"events"`
	LastSeq       int64         `json:"last_seq"`
	Transfers     int           `json:"transfers"`
	Approvals     int           `json:"approvals"`
	TotalSupply   string        `json:"total_supply"`
	Accounts      int           `json:"accounts"`
	Discrepancies []Discrepancy `json:"discrepancies"`
}

// OK reports whether replay found no discrepancies.
func (r *ReplayReport) OK() bool {
	return len(r.Discrepancies) == 0
}

func (r *ReplayReport) add(seq int64, kind, format string, args ...any) {
	r.Discrepancies = append(r.Discrepancies, Discrepancy{
		Seq:    seq,
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
	})
}

// Replay re-derives balances and total supply from the event log and
// compares them with the materialized tables. It also checks that seq runs
// contiguously from 1, that the log opens with exactly one mint, and that
// every stored event ID matches its recomputed content hash.
//
// Allowances are not checked: a Transfer event does not record which
// spender's allowance a transferFrom consumed.
//
// Discrepancies are reported, never repaired.
func (s *Store) Replay(ctx context.Context) (*ReplayReport, error) {
	var snap *ledger.Snapshot
	var events []event.Event
	err := s.readTx(ctx, func(q querier) error {
		var err error
		if snap, err = s.load(ctx, q); err != nil {
			return err
		}
		events, err = s.events(ctx, q, EventFilter{})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	report := &ReplayReport{Events: len(events), Discrepancies: []Discrepancy{}}
	derived := make(map[account.Address]uint256.Int)
	supply := new(uint256.Int)

	for i, e := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.LastSeq = e.Seq

		if want := int64(i + 1); e.Seq != want {
			report.add(e.Seq, DiscrepancySeqGap, "expected seq %d, found %d", want, e.Seq)
		}
		if err := e.Verify(); err != nil {
			report.add(e.Seq, DiscrepancyIDMismatch, "%v", err)
		}

		switch e.Kind {
		case event.KindApproval:
			report.Approvals++
			continue
		case event.KindTransfer:
			report.Transfers++
		}

		if e.IsMint() {
			if i != 0 {
				report.add(e.Seq, DiscrepancyMint, "mint after initialization")
			}
			if _, overflow := supply.AddOverflow(supply, &e.Value); overflow {
				report.add(e.Seq, DiscrepancyOverflow, "total supply overflows 256 bits")
			}
		} else {
			if i == 0 {
				report.add(e.Seq, DiscrepancyMint, "log does not open with a mint")
			}
			from := derived[e.From]
			if _, underflow := from.SubOverflow(&from, &e.Value); underflow {
				report.add(e.Seq, DiscrepancyUnderflow, "balance of %s goes negative", e.From)
			}
			setDerived(derived, e.From, &from)
		}

		to := derived[e.To]
		if _, overflow := to.AddOverflow(&to, &e.Value); overflow {
			report.add(e.Seq, DiscrepancyOverflow, "balance of %s overflows 256 bits", e.To)
		}
		setDerived(derived, e.To, &to)
	}

	report.TotalSupply = snap.TotalSupply.Dec()
	if !supply.Eq(&snap.TotalSupply) {
		report.add(0, DiscrepancySupply, "events mint %s, stored total supply is %s", supply.Dec(), snap.TotalSupply.Dec())
	}

	accounts := make([]account.Address, 0, len(derived)+len(snap.Balances))
	for a := range derived {
		accounts = append(accounts, a)
	}
	for a := range snap.Balances {
		if _, ok := derived[a]; !ok {
			accounts = append(accounts, a)
		}
	}
	slices.SortFunc(accounts, account.Compare)
	report.Accounts = len(accounts)

	for _, a := range accounts {
		want := derived[a]
		got := snap.Balances[a]
		if !want.Eq(&got) {
			report.add(0, DiscrepancyBalance, "%s: events give %s, stored balance is %s", a, want.Dec(), got.Dec())
		}
	}

	return report, nil
}

func setDerived(m map[account.Address]uint256.Int, a account.Address, v *uint256.Int) {
	if v.IsZero() {
		delete(m, a)
		return
	}
	m[a] = *v
}
