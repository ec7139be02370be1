// Package event defines the records a ledger emits.
//
// Two kinds exist: Transfer(from, to, value) and Approval(owner, spender,
// value). Records are append-only and observational; the ledger never reads
// them back to make decisions.
//
// Every record carries a content-addressed ID computed over RFC 8785
// canonical JSON of its fields with SHA-256 and a domain prefix, so the same
// event always hashes to the same ID regardless of where it is stored or
// which sink delivers it.
package event
