package ledger

import (
	"context"
	"slices"

	"github.com/holiman/uint256"

	"github.com/roach88/tokenledger/internal/account"
	"github.com/roach88/tokenledger/internal/event"
)

// Metadata describes the asset. Scale is the number of fractional digits
// the smallest unit represents; the ledger never uses it in arithmetic.
type Metadata struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Scale  uint8  `json:"scale"`
}

func (m Metadata) validate() error {
	if m.Name == "" || m.Symbol == "" {
		return ErrInvalidMetadata
	}
	return nil
}

// Info is the read-only token description returned by TokenInfo.
type Info struct {
	Metadata
	TotalSupply uint256.Int `json:"-"`
}

// AllowanceKey identifies one (owner, spender) allowance.
type AllowanceKey struct {
	Owner   account.Address
	Spender account.Address
}

// BalanceEntry is the new absolute balance of one account.
type BalanceEntry struct {
	Account account.Address
	Amount  uint256.Int
}

// AllowanceEntry is the new absolute allowance for one (owner, spender).
type AllowanceEntry struct {
	Owner   account.Address
	Spender account.Address
	Amount  uint256.Int
}

// Change is everything one committed operation writes.
//
// Balances and Allowances hold absolute values, not deltas, so a journal can
// apply them with plain upserts. A zero amount means the entry is removed.
// Metadata and TotalSupply are set only by initialization.
type Change struct {
	Metadata    *Metadata
	TotalSupply *uint256.Int
	Balances    []BalanceEntry
	Allowances  []AllowanceEntry
	Event       event.Event
}

// Journal durably records committed changes. Commit must apply the whole
// Change or nothing; the ledger mutates memory only after Commit succeeds.
type Journal interface {
	Commit(ctx context.Context, c *Change) error
}

// EventSink receives every committed event in order. Publish must not block
// on delivery; the ledger calls it while holding its lock.
type EventSink interface {
	Publish(e event.Event)
}

// Snapshot is a full copy of ledger state at one sequence number.
type Snapshot struct {
	Metadata    Metadata
	TotalSupply uint256.Int
	Balances    map[account.Address]uint256.Int
	Allowances  map[AllowanceKey]uint256.Int
	Seq         int64
}

// Accounts returns every account with a nonzero balance in address order.
func (s *Snapshot) Accounts() []account.Address {
	out := make([]account.Address, 0, len(s.Balances))
	for a := range s.Balances {
		out = append(out, a)
	}
	slices.SortFunc(out, account.Compare)
	return out
}

// Sum adds every balance with overflow checking.
func (s *Snapshot) Sum() (*uint256.Int, error) {
	sum := new(uint256.Int)
	for _, bal := range s.Balances {
		if _, overflow := sum.AddOverflow(sum, &bal); overflow {
			return nil, arithmeticOverflow("sum of balances")
		}
	}
	return sum, nil
}
