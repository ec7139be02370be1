// Package ledger implements a fixed-supply fungible asset ledger.
//
// A Ledger owns four pieces of state: token metadata, the total supply, the
// balance of every account, and the allowance every owner has granted every
// spender. Supply is created once, when the ledger is constructed, and is
// conserved by every later operation:
//
//	sum(balances) == totalSupply
//
// holds at every observable point.
//
// # Operations
//
//   - New: initialize metadata and mint the whole supply to a creator
//   - Transfer: move value from the caller to another account
//   - Approve: set (not add to) the amount a spender may move for the caller
//   - TransferFrom: a spender moves value out of an owner's balance,
//     consuming the owner's allowance
//   - IncreaseAllowance / DecreaseAllowance: adjust an allowance by a delta
//
// The caller identity is an explicit argument. The ledger trusts it as given;
// authentication is the host's job.
//
// # Atomicity
//
// Every operation is all-or-nothing. Validation and checked arithmetic run
// first, producing a Change. The Change is handed to the Journal (if any);
// only when the journal accepts it is in-memory state updated, the event
// appended to the log, and the event published to the EventSink. A rejected
// or failed operation leaves balances, allowances, and the event log exactly
// as they were.
//
// # Concurrency
//
// Methods hold the instance mutex for their full duration, so operations are
// applied one at a time in a total order. Sequence numbers come from a
// logical clock and never from wall time.
package ledger
