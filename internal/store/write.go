package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tokenledger/internal/ledger"
)

// ErrAlreadyInitialized is returned when an initialization change is
// committed to a store that already holds ledger metadata.
var ErrAlreadyInitialized = errors.New("ledger already initialized")

// ErrStaleJournal is returned when a change does not follow the last stored
// event: another writer committed after the ledger was loaded. Reload and
// retry.
var ErrStaleJournal = errors.New("journal advanced past loaded state")

// Commit persists one ledger change in a single transaction: metadata (on
// initialization), the new absolute value of every touched balance and
// allowance, and the event row. Either all of it is written or none.
// The event must carry the seq directly after the last stored one, or
// Commit fails with ErrStaleJournal.
//
// Commit implements ledger.Journal.
func (s *Store) Commit(ctx context.Context, c *ledger.Change) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if c.Metadata != nil {
		if err := s.writeMetadata(ctx, tx, c); err != nil {
			return err
		}
	}

	for _, b := range c.Balances {
		if err := s.writeBalance(ctx, tx, b); err != nil {
			return err
		}
	}

	for _, a := range c.Allowances {
		if err := s.writeAllowance(ctx, tx, a); err != nil {
			return err
		}
	}

	e := c.Event
	var last int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events`).Scan(&last); err != nil {
		return fmt.Errorf("commit: read last seq: %w", err)
	}
	if e.Seq != last+1 {
		return fmt.Errorf("commit: event %d after stored seq %d: %w", e.Seq, last, ErrStaleJournal)
	}

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO events
		(seq, id, tx_id, kind, from_account, to_account, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`),
		e.Seq,
		e.ID,
		e.TxID,
		string(e.Kind),
		e.From.String(),
		e.To.String(),
		e.Value.Dec(),
	)
	if err != nil {
		return fmt.Errorf("commit: insert event %d: %w", e.Seq, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// writeMetadata inserts the single metadata row. A second initialization
// conflicts on the fixed id and is reported as ErrAlreadyInitialized.
func (s *Store) writeMetadata(ctx context.Context, tx *sql.Tx, c *ledger.Change) error {
	if c.TotalSupply == nil {
		return fmt.Errorf("commit: metadata without total supply")
	}
	m := c.Metadata
	result, err := tx.ExecContext(ctx, s.rebind(`
		INSERT INTO metadata (id, name, symbol, scale, total_supply)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`),
		m.Name,
		m.Symbol,
		int(m.Scale),
		c.TotalSupply.Dec(),
	)
	if err != nil {
		return fmt.Errorf("commit: insert metadata: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("commit: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("commit: %w", ErrAlreadyInitialized)
	}
	return nil
}

// writeBalance upserts a balance, or deletes the row when it reaches zero.
func (s *Store) writeBalance(ctx context.Context, tx *sql.Tx, b ledger.BalanceEntry) error {
	var err error
	if b.Amount.IsZero() {
		_, err = tx.ExecContext(ctx, s.rebind(`DELETE FROM balances WHERE account = ?`), b.Account.String())
	} else {
		_, err = tx.ExecContext(ctx, s.rebind(`
			INSERT INTO balances (account, amount) VALUES (?, ?)
			ON CONFLICT (account) DO UPDATE SET amount = excluded.amount
		`), b.Account.String(), b.Amount.Dec())
	}
	if err != nil {
		return fmt.Errorf("commit: write balance %s: %w", b.Account, err)
	}
	return nil
}

// writeAllowance upserts an allowance, or deletes the row when it reaches zero.
func (s *Store) writeAllowance(ctx context.Context, tx *sql.Tx, a ledger.AllowanceEntry) error {
	var err error
	if a.Amount.IsZero() {
		_, err = tx.ExecContext(ctx, s.rebind(`
			DELETE FROM allowances WHERE owner = ? AND spender = ?
		`), a.Owner.String(), a.Spender.String())
	} else {
		_, err = tx.ExecContext(ctx, s.rebind(`
			INSERT INTO allowances (owner, spender, amount) VALUES (?, ?, ?)
			ON CONFLICT (owner, spender) DO UPDATE SET amount = excluded.amount
		`), a.Owner.String(), a.Spender.String(), a.Amount.Dec())
	}
	if err != nil {
		return fmt.Errorf("commit: write allowance %s/%s: %w", a.Owner, a.Spender, err)
	}
	return nil
}
