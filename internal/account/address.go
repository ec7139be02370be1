package account

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// Length is the byte width of an Address.
const Length = 20

// Address identifies a ledger participant.
type Address [Length]byte

// Zero is the null account sentinel.
var Zero Address

// ParseAddress decodes a 0x-prefixed, 40 hex digit string.
// Upper and lower case digits are both accepted.
func ParseAddress(s string) (Address, error) {
	var a Address
	if len(s) < 2 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return a, fmt.Errorf("parse address %q: missing 0x prefix", s)
	}
	trimmed := s[2:]
	if len(trimmed) != Length*2 {
		return a, fmt.Errorf("parse address %q: want %d hex digits, got %d", s, Length*2, len(trimmed))
	}
	if _, err := hex.Decode(a[:], []byte(trimmed)); err != nil {
		return a, fmt.Errorf("parse address %q: %w", s, err)
	}
	return a, nil
}

// MustParseAddress is like ParseAddress but panics on error.
// Use only in tests or with constant inputs.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// BytesToAddress copies b into an Address. Inputs longer than Length keep
// their trailing bytes; shorter inputs are left-padded with zeros.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > Length {
		b = b[len(b)-Length:]
	}
	copy(a[Length-len(b):], b)
	return a
}

// IsZero reports whether a is the null account.
func (a Address) IsZero() bool {
	return a == Zero
}

// String returns the lowercase 0x-prefixed hex form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Bytes returns a copy of the underlying bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, Length)
	copy(b, a[:])
	return b
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Compare orders addresses bytewise. Used to produce deterministic output
// when iterating account maps.
func Compare(a, b Address) int {
	return bytes.Compare(a[:], b[:])
}
