package cli

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/roach88/tokenledger/internal/account"
)

// parseAccount parses a 0x-prefixed account flag or argument.
func parseAccount(name, s string) (account.Address, error) {
	if s == "" {
		return account.Address{}, fmt.Errorf("%s is required", name)
	}
	a, err := account.ParseAddress(s)
	if err != nil {
		return account.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	return a, nil
}

// parseAmount parses a base-10 amount in smallest units.
func parseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", s, err)
	}
	return v, nil
}
