// Package account defines the identity type for ledger participants.
//
// An Address is an opaque 20-byte value issued by whatever system hosts the
// ledger. The all-zero Address is the null sentinel: it marks the source of
// newly minted supply and is never a valid transfer destination or approval
// target.
package account
