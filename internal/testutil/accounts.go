package testutil

import (
	"encoding/binary"

	"github.com/holiman/uint256"

	"github.com/roach88/tokenledger/internal/account"
)

// Addr returns a deterministic nonzero address whose low bytes encode n.
// Addr(1) is 0x0000000000000000000000000000000000000001.
func Addr(n uint64) account.Address {
	if n == 0 {
		panic("testutil.Addr: 0 is the null account; use account.Zero")
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return account.BytesToAddress(b[:])
}

// U returns n as a *uint256.Int.
func U(n uint64) *uint256.Int {
	return uint256.NewInt(n)
}

// Dec parses a base-10 amount, panicking on malformed input.
func Dec(s string) *uint256.Int {
	return uint256.MustFromDecimal(s)
}

// Max returns 2^256 - 1.
func Max() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}
