package event

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/roach88/tokenledger/internal/account"
)

// Kind distinguishes event records.
type Kind string

const (
	// KindTransfer records value moving between accounts (including the
	// initial mint from the null account).
	KindTransfer Kind = "Transfer"

	// KindApproval records an allowance being set.
	KindApproval Kind = "Approval"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindTransfer || k == KindApproval
}

// Event is one emitted ledger record.
//
// For Approval events From holds the owner and To holds the spender; use
// Owner and Spender for readability.
type Event struct {
	ID    string
	Seq   int64
	TxID  string
	Kind  Kind
	From  account.Address
	To    account.Address
	Value uint256.Int
}

// NewTransfer builds a Transfer event and stamps its ID.
func NewTransfer(seq int64, txID string, from, to account.Address, value *uint256.Int) Event {
	return stamp(Event{Seq: seq, TxID: txID, Kind: KindTransfer, From: from, To: to, Value: *value})
}

// NewApproval builds an Approval event and stamps its ID.
func NewApproval(seq int64, txID string, owner, spender account.Address, value *uint256.Int) Event {
	return stamp(Event{Seq: seq, TxID: txID, Kind: KindApproval, From: owner, To: spender, Value: *value})
}

func stamp(e Event) Event {
	e.ID = MustID(e)
	return e
}

// Owner returns the owner of an Approval event.
func (e Event) Owner() account.Address { return e.From }

// Spender returns the spender of an Approval event.
func (e Event) Spender() account.Address { return e.To }

// IsMint reports whether e is the supply-creating Transfer from the null account.
func (e Event) IsMint() bool {
	return e.Kind == KindTransfer && e.From.IsZero()
}

// Verify recomputes the content-addressed ID and compares it to e.ID.
func (e Event) Verify() error {
	want, err := ID(e)
	if err != nil {
		return err
	}
	if want != e.ID {
		return fmt.Errorf("event seq %d: id mismatch: stored %s, computed %s", e.Seq, e.ID, want)
	}
	return nil
}

func (e Event) String() string {
	return fmt.Sprintf("#%d %s(%s, %s, %s)", e.Seq, e.Kind, e.From, e.To, e.Value.Dec())
}

// wireEvent is the JSON shape shared by sinks and CLI output.
// Value is a base-10 string so 256-bit amounts survive any JSON consumer.
type wireEvent struct {
	ID    string          `json:"id"`
	Seq   int64           `json:"seq"`
	TxID  string          `json:"tx_id"`
	Kind  Kind            `json:"kind"`
	From  account.Address `json:"from"`
	To    account.Address `json:"to"`
	Value string          `json:"value"`
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEvent{
		ID:    e.ID,
		Seq:   e.Seq,
		TxID:  e.TxID,
		Kind:  e.Kind,
		From:  e.From,
		To:    e.To,
		Value: e.Value.Dec(),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Kind.Valid() {
		return fmt.Errorf("unknown event kind %q", w.Kind)
	}
	v, err := uint256.FromDecimal(w.Value)
	if err != nil {
		return fmt.Errorf("event value %q: %w", w.Value, err)
	}
	*e = Event{
		ID:    w.ID,
		Seq:   w.Seq,
		TxID:  w.TxID,
		Kind:  w.Kind,
		From:  w.From,
		To:    w.To,
		Value: *v,
	}
	return nil
}
