package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/roach88/tokenledger/internal/account"
	"github.com/roach88/tokenledger/internal/event"
	"github.com/roach88/tokenledger/internal/ledger"
)

// ErrNotInitialized is returned by Load when the store holds no ledger.
var ErrNotInitialized = errors.New("ledger not initialized")

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// readTx runs fn inside one read-only transaction so every query it makes
// sees the same committed state.
func (s *Store) readTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback() // Read-only; nothing to commit

	return fn(tx)
}

// Load reads the materialized state into a snapshot suitable for
// ledger.Restore. Seq is the highest stored event seq. Every table is read
// from one consistent view of the journal.
func (s *Store) Load(ctx context.Context) (*ledger.Snapshot, error) {
	var snap *ledger.Snapshot
	err := s.readTx(ctx, func(q querier) error {
		var err error
		snap, err = s.load(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) load(ctx context.Context, q querier) (*ledger.Snapshot, error) {
	snap := &ledger.Snapshot{
		Balances:   make(map[account.Address]uint256.Int),
		Allowances: make(map[ledger.AllowanceKey]uint256.Int),
	}

	var scale int
	var supply string
	err := q.QueryRowContext(ctx, `
		SELECT name, symbol, scale, total_supply FROM metadata WHERE id = 1
	`).Scan(&snap.Metadata.Name, &snap.Metadata.Symbol, &scale, &supply)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	snap.Metadata.Scale = uint8(scale)
	total, err := parseAmount(supply)
	if err != nil {
		return nil, fmt.Errorf("load metadata: total supply: %w", err)
	}
	snap.TotalSupply = *total

	if err := loadBalances(ctx, q, snap); err != nil {
		return nil, err
	}
	if err := loadAllowances(ctx, q, snap); err != nil {
		return nil, err
	}

	if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events`).Scan(&snap.Seq); err != nil {
		return nil, fmt.Errorf("load seq: %w", err)
	}

	return snap, nil
}

func loadBalances(ctx context.Context, q querier, snap *ledger.Snapshot) error {
	rows, err := q.QueryContext(ctx, `SELECT account, amount FROM balances`)
	if err != nil {
		return fmt.Errorf("query balances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var acct, amount string
		if err := rows.Scan(&acct, &amount); err != nil {
			return fmt.Errorf("scan balance: %w", err)
		}
		a, err := account.ParseAddress(acct)
		if err != nil {
			return fmt.Errorf("scan balance: %w", err)
		}
		v, err := parseAmount(amount)
		if err != nil {
			return fmt.Errorf("scan balance %s: %w", acct, err)
		}
		snap.Balances[a] = *v
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate balances: %w", err)
	}
	return nil
}

func loadAllowances(ctx context.Context, q querier, snap *ledger.Snapshot) error {
	rows, err := q.QueryContext(ctx, `SELECT owner, spender, amount FROM allowances`)
	if err != nil {
		return fmt.Errorf("query allowances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var owner, spender, amount string
		if err := rows.Scan(&owner, &spender, &amount); err != nil {
			return fmt.Errorf("scan allowance: %w", err)
		}
		o, err := account.ParseAddress(owner)
		if err != nil {
			return fmt.Errorf("scan allowance: %w", err)
		}
		sp, err := account.ParseAddress(spender)
		if err != nil {
			return fmt.Errorf("scan allowance: %w", err)
		}
		v, err := parseAmount(amount)
		if err != nil {
			return fmt.Errorf("scan allowance %s/%s: %w", owner, spender, err)
		}
		snap.Allowances[ledger.AllowanceKey{Owner: o, Spender: sp}] = *v
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate allowances: %w", err)
	}
	return nil
}

// Balance returns the stored balance of a (zero if absent).
func (s *Store) Balance(ctx context.Context, a account.Address) (*uint256.Int, error) {
	var amount string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT amount FROM balances WHERE account = ?
	`), a.String()).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}
	return parseAmount(amount)
}

// Allowance returns the stored allowance owner granted spender (zero if absent).
func (s *Store) Allowance(ctx context.Context, owner, spender account.Address) (*uint256.Int, error) {
	var amount string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT amount FROM allowances WHERE owner = ? AND spender = ?
	`), owner.String(), spender.String()).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read allowance: %w", err)
	}
	return parseAmount(amount)
}

// EventFilter narrows an Events query. Zero values match everything.
type EventFilter struct {
	// Account matches events where it appears as from or to.
	Account *account.Address

	// Kind restricts to one event kind.
	Kind event.Kind

	// AfterSeq returns only events with seq > AfterSeq.
	AfterSeq int64

	// Limit caps the number of events returned (0 = no limit).
	Limit int
}

// Events returns stored events matching f, ordered by seq ascending.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) Events(ctx context.Context, f EventFilter) ([]event.Event, error) {
	return s.events(ctx, s.db, f)
}

func (s *Store) events(ctx context.Context, q querier, f EventFilter) ([]event.Event, error) {
	var where []string
	var args []any
	if f.Account != nil {
		where = append(where, "(from_account = ? OR to_account = ?)")
		args = append(args, f.Account.String(), f.Account.String())
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.AfterSeq > 0 {
		where = append(where, "seq > ?")
		args = append(args, f.AfterSeq)
	}

	query := `SELECT seq, id, tx_id, kind, from_account, to_account, value FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := q.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []event.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// scanEvent scans an event row from sql.Rows.
func scanEvent(rows *sql.Rows) (event.Event, error) {
	var e event.Event
	var kind, from, to, value string
	if err := rows.Scan(&e.Seq, &e.ID, &e.TxID, &kind, &from, &to, &value); err != nil {
		return event.Event{}, fmt.Errorf("scan event: %w", err)
	}

	e.Kind = event.Kind(kind)
	if !e.Kind.Valid() {
		return event.Event{}, fmt.Errorf("scan event %d: unknown kind %q", e.Seq, kind)
	}
	var err error
	if e.From, err = account.ParseAddress(from); err != nil {
		return event.Event{}, fmt.Errorf("scan event %d: from: %w", e.Seq, err)
	}
	if e.To, err = account.ParseAddress(to); err != nil {
		return event.Event{}, fmt.Errorf("scan event %d: to: %w", e.Seq, err)
	}
	v, err := parseAmount(value)
	if err != nil {
		return event.Event{}, fmt.Errorf("scan event %d: value: %w", e.Seq, err)
	}
	e.Value = *v
	return e, nil
}

func parseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}
