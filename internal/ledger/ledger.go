package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/holiman/uint256"

	"github.com/roach88/tokenledger/internal/account"
	"github.com/roach88/tokenledger/internal/event"
)

// Ledger is a single fungible asset ledger instance.
//
// All methods are safe for concurrent use; the instance mutex serializes
// them so each operation observes and leaves a consistent state.
type Ledger struct {
	mu sync.Mutex

	meta        Metadata
	totalSupply uint256.Int
	balances    map[account.Address]uint256.Int
	allowances  map[AllowanceKey]uint256.Int
	events      []event.Event

	clock   *Clock
	txIDs   TxIDGenerator
	journal Journal
	sink    EventSink
	logger  *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithJournal persists every change through j before it is applied.
func WithJournal(j Journal) Option {
	return func(l *Ledger) {
		l.journal = j
	}
}

// WithSink publishes every committed event to s.
func WithSink(s EventSink) Option {
	return func(l *Ledger) {
		l.sink = s
	}
}

// WithTxIDGenerator overrides the transaction ID source (default UUIDv7).
func WithTxIDGenerator(g TxIDGenerator) Option {
	return func(l *Ledger) {
		l.txIDs = g
	}
}

// WithLogger sets the logger used for operation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func newLedger(opts []Option) *Ledger {
	l := &Ledger{
		balances:   make(map[account.Address]uint256.Int),
		allowances: make(map[AllowanceKey]uint256.Int),
		clock:      NewClock(),
		txIDs:      UUIDv7Generator{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// New initializes a ledger: it records the metadata, mints initialSupply to
// creator, and emits Transfer(null, creator, initialSupply) as event 1.
//
// Initialization runs exactly once per instance; there is no way to
// re-initialize a constructed Ledger.
func New(ctx context.Context, meta Metadata, initialSupply *uint256.Int, creator account.Address, opts ...Option) (*Ledger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := meta.validate(); err != nil {
		return nil, err
	}
	if creator.IsZero() {
		return nil, ErrZeroAddressRecipient
	}

	l := newLedger(opts)
	l.mu.Lock()
	defer l.mu.Unlock()

	supply := initialSupply.Clone()
	change := &Change{
		Metadata:    &meta,
		TotalSupply: supply,
		Balances:    []BalanceEntry{{Account: creator, Amount: *supply}},
		Event:       event.NewTransfer(l.nextSeq(), l.txIDs.Generate(), account.Zero, creator, supply),
	}
	if err := l.commit(ctx, "initialize", change); err != nil {
		return nil, err
	}
	return l, nil
}

// Restore rebuilds a ledger from persisted state without emitting events.
// The snapshot must carry valid metadata and satisfy conservation.
func Restore(snap *Snapshot, opts ...Option) (*Ledger, error) {
	if err := snap.Metadata.validate(); err != nil {
		return nil, err
	}
	sum, err := snap.Sum()
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	if !sum.Eq(&snap.TotalSupply) {
		return nil, fmt.Errorf("restore: balances sum to %s, total supply is %s", sum.Dec(), snap.TotalSupply.Dec())
	}

	l := newLedger(opts)
	l.meta = snap.Metadata
	l.totalSupply = snap.TotalSupply
	l.clock = NewClockAt(snap.Seq)
	for a, bal := range snap.Balances {
		if !bal.IsZero() {
			l.balances[a] = bal
		}
	}
	for k, amt := range snap.Allowances {
		if !amt.IsZero() {
			l.allowances[k] = amt
		}
	}
	return l, nil
}

// Transfer moves value from caller to to.
//
// Checks, in order: to is not the null account (ZeroAddressRecipient), and
// caller's balance covers value (InsufficientBalance). A self-transfer is
// validated the same way and still emits an event.
func (l *Ledger) Transfer(ctx context.Context, caller, to account.Address, value *uint256.Int) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if to.IsZero() {
		return l.reject("transfer", ErrZeroAddressRecipient)
	}
	balances, err := l.move(caller, to, value)
	if err != nil {
		return l.reject("transfer", err)
	}

	change := &Change{
		Balances: balances,
		Event:    event.NewTransfer(l.nextSeq(), l.txIDs.Generate(), caller, to, value),
	}
	if err := l.commit(ctx, "transfer", change); err != nil {
		return event.Event{}, err
	}
	return change.Event, nil
}

// Approve sets the amount spender may move out of caller's balance.
//
// The new value replaces any existing allowance; it is not added to it.
// Zero revokes. No zero-first step is required before changing a nonzero
// allowance, which leaves the usual approve/transferFrom ordering race to
// callers; IncreaseAllowance and DecreaseAllowance avoid it.
func (l *Ledger) Approve(ctx context.Context, caller, spender account.Address, value *uint256.Int) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if spender.IsZero() {
		return l.reject("approve", ErrZeroAddressSpender)
	}
	return l.setAllowance(ctx, "approve", caller, spender, value.Clone())
}

// TransferFrom lets caller move value from from to to using the allowance
// from granted caller.
//
// Checks, in order: to is not the null account (ZeroAddressRecipient),
// from's balance covers value (InsufficientBalance), and the allowance
// covers value (InsufficientAllowance). On success the allowance is reduced
// by value.
func (l *Ledger) TransferFrom(ctx context.Context, caller, from, to account.Address, value *uint256.Int) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if to.IsZero() {
		return l.reject("transferFrom", ErrZeroAddressRecipient)
	}
	balances, err := l.move(from, to, value)
	if err != nil {
		return l.reject("transferFrom", err)
	}

	key := AllowanceKey{Owner: from, Spender: caller}
	current := l.allowances[key]
	if current.Lt(value) {
		return l.reject("transferFrom", insufficientAllowance(from, &current, value))
	}
	remaining, underflow := new(uint256.Int).SubOverflow(&current, value)
	if underflow {
		return l.reject("transferFrom", arithmeticOverflow("allowance decrement"))
	}

	change := &Change{
		Balances:   balances,
		Allowances: []AllowanceEntry{{Owner: from, Spender: caller, Amount: *remaining}},
		Event:      event.NewTransfer(l.nextSeq(), l.txIDs.Generate(), from, to, value),
	}
	if err := l.commit(ctx, "transferFrom", change); err != nil {
		return event.Event{}, err
	}
	return change.Event, nil
}

// IncreaseAllowance adds delta to the allowance caller granted spender and
// emits Approval with the resulting absolute value.
func (l *Ledger) IncreaseAllowance(ctx context.Context, caller, spender account.Address, delta *uint256.Int) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if spender.IsZero() {
		return l.reject("increaseAllowance", ErrZeroAddressSpender)
	}
	current := l.allowances[AllowanceKey{Owner: caller, Spender: spender}]
	next, overflow := new(uint256.Int).AddOverflow(&current, delta)
	if overflow {
		return l.reject("increaseAllowance", arithmeticOverflow("allowance"))
	}
	return l.setAllowance(ctx, "increaseAllowance", caller, spender, next)
}

// DecreaseAllowance subtracts delta from the allowance caller granted
// spender. Decreasing below zero is rejected with InsufficientAllowance.
func (l *Ledger) DecreaseAllowance(ctx context.Context, caller, spender account.Address, delta *uint256.Int) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if spender.IsZero() {
		return l.reject("decreaseAllowance", ErrZeroAddressSpender)
	}
	current := l.allowances[AllowanceKey{Owner: caller, Spender: spender}]
	if current.Lt(delta) {
		return l.reject("decreaseAllowance", insufficientAllowance(caller, &current, delta))
	}
	next, underflow := new(uint256.Int).SubOverflow(&current, delta)
	if underflow {
		return l.reject("decreaseAllowance", arithmeticOverflow("allowance decrement"))
	}
	return l.setAllowance(ctx, "decreaseAllowance", caller, spender, next)
}

// setAllowance commits an absolute allowance and its Approval event.
// Caller must hold l.mu.
func (l *Ledger) setAllowance(ctx context.Context, op string, owner, spender account.Address, value *uint256.Int) (event.Event, error) {
	change := &Change{
		Allowances: []AllowanceEntry{{Owner: owner, Spender: spender, Amount: *value}},
		Event:      event.NewApproval(l.nextSeq(), l.txIDs.Generate(), owner, spender, value),
	}
	if err := l.commit(ctx, op, change); err != nil {
		return event.Event{}, err
	}
	return change.Event, nil
}

// move computes the new balances for moving value from one account to
// another without touching state. For a self-transfer the single entry
// carries the unchanged balance.
func (l *Ledger) move(from, to account.Address, value *uint256.Int) ([]BalanceEntry, error) {
	fromBal := l.balances[from]
	if fromBal.Lt(value) {
		return nil, insufficientBalance(from, &fromBal, value)
	}
	newFrom, underflow := new(uint256.Int).SubOverflow(&fromBal, value)
	if underflow {
		return nil, arithmeticOverflow("balance debit")
	}
	if from == to {
		return []BalanceEntry{{Account: from, Amount: fromBal}}, nil
	}

	toBal := l.balances[to]
	newTo, overflow := new(uint256.Int).AddOverflow(&toBal, value)
	if overflow {
		return nil, arithmeticOverflow("balance credit")
	}
	return []BalanceEntry{
		{Account: from, Amount: *newFrom},
		{Account: to, Amount: *newTo},
	}, nil
}

// nextSeq returns the sequence number the next committed event will take.
// The clock only advances in commit, so rejected operations leave no gap.
func (l *Ledger) nextSeq() int64 {
	return l.clock.Current() + 1
}

// commit journals c, then applies it to memory, appends the event, and
// publishes it. Caller must hold l.mu.
func (l *Ledger) commit(ctx context.Context, op string, c *Change) error {
	if l.journal != nil {
		if err := l.journal.Commit(ctx, c); err != nil {
			l.logger.Error("journal commit failed", "op", op, "seq", c.Event.Seq, "error", err)
			return fmt.Errorf("%s: commit: %w", op, err)
		}
	}

	if c.Metadata != nil {
		l.meta = *c.Metadata
	}
	if c.TotalSupply != nil {
		l.totalSupply = *c.TotalSupply
	}
	for _, b := range c.Balances {
		if b.Amount.IsZero() {
			delete(l.balances, b.Account)
		} else {
			l.balances[b.Account] = b.Amount
		}
	}
	for _, a := range c.Allowances {
		key := AllowanceKey{Owner: a.Owner, Spender: a.Spender}
		if a.Amount.IsZero() {
			delete(l.allowances, key)
		} else {
			l.allowances[key] = a.Amount
		}
	}
	l.clock.Next()
	l.events = append(l.events, c.Event)

	if l.sink != nil {
		l.sink.Publish(c.Event)
	}
	l.logger.Debug("committed",
		"op", op,
		"seq", c.Event.Seq,
		"tx_id", c.Event.TxID,
		"kind", c.Event.Kind,
		"from", c.Event.From.String(),
		"to", c.Event.To.String(),
		"value", c.Event.Value.Dec(),
	)
	return nil
}

// reject logs a rejected operation and returns err unchanged.
func (l *Ledger) reject(op string, err error) (event.Event, error) {
	l.logger.Debug("rejected", "op", op, "code", CodeOf(err), "error", err)
	return event.Event{}, err
}

// BalanceOf returns the balance of a (zero if absent).
func (l *Ledger) BalanceOf(a account.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balances[a]
	return &bal
}

// AllowanceOf returns the remaining amount spender may move from owner.
func (l *Ledger) AllowanceOf(owner, spender account.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	amt := l.allowances[AllowanceKey{Owner: owner, Spender: spender}]
	return &amt
}

// TokenInfo returns metadata and total supply.
func (l *Ledger) TokenInfo() Info {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Info{Metadata: l.meta, TotalSupply: l.totalSupply}
}

// TotalSupply returns the fixed total supply.
func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalSupply.Clone()
}

// Seq returns the sequence number of the last committed event.
func (l *Ledger) Seq() int64 {
	return l.clock.Current()
}

// Events returns a copy of the events committed by this instance, in order.
// A restored ledger's log starts empty; history lives in the journal.
func (l *Ledger) Events() []event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]event.Event, len(l.events))
	copy(out, l.events)
	return out
}

// Snapshot returns a deep copy of the current state.
func (l *Ledger) Snapshot() *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap := &Snapshot{
		Metadata:    l.meta,
		TotalSupply: l.totalSupply,
		Balances:    make(map[account.Address]uint256.Int, len(l.balances)),
		Allowances:  make(map[AllowanceKey]uint256.Int, len(l.allowances)),
		Seq:         l.clock.Current(),
	}
	for a, bal := range l.balances {
		snap.Balances[a] = bal
	}
	for k, amt := range l.allowances {
		snap.Allowances[k] = amt
	}
	return snap
}

// VerifyConservation checks that balances sum to the total supply.
func (l *Ledger) VerifyConservation() error {
	snap := l.Snapshot()
	sum, err := snap.Sum()
	if err != nil {
		return err
	}
	if !sum.Eq(&snap.TotalSupply) {
		return fmt.Errorf("conservation violated: balances sum to %s, total supply is %s", sum.Dec(), snap.TotalSupply.Dec())
	}
	return nil
}
