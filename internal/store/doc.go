// Package store provides the durable journal for a token ledger.
//
// A Store persists each committed ledger operation in one SQL transaction
// and implements ledger.Journal. It keeps two views of the same history:
//
//   - Materialized state: metadata (one row), balances, and allowances,
//     holding current absolute values. Absent rows mean zero.
//   - Event log: every emitted event, keyed by seq.
//
// Load rebuilds a ledger.Snapshot from the materialized state so a ledger
// can resume across process restarts. Replay re-derives balances and supply
// from the event log alone and reports any divergence.
//
// # Ordering
//
// All event queries use ORDER BY seq ASC. Seq comes from the ledger's
// logical clock, never from wall time.
//
// # Drivers
//
// SQLite (github.com/mattn/go-sqlite3) is the default:
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - single connection: SQLite allows one writer
//
// PostgreSQL (github.com/lib/pq) shares the same schema. Queries are written
// with ? placeholders and rebound to $n for postgres.
package store
