package ledger

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/roach88/tokenledger/internal/account"
)

// Code identifies why an operation was rejected.
type Code string

const (
	// CodeInvalidMetadata indicates an empty name or symbol at initialization.
	CodeInvalidMetadata Code = "INVALID_METADATA"

	// CodeZeroAddressRecipient indicates the null account was used as a
	// transfer destination.
	CodeZeroAddressRecipient Code = "ZERO_ADDRESS_RECIPIENT"

	// CodeZeroAddressSpender indicates the null account was used as an
	// approval target.
	CodeZeroAddressSpender Code = "ZERO_ADDRESS_SPENDER"

	// CodeInsufficientBalance indicates the source balance is below the amount.
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"

	// CodeInsufficientAllowance indicates the remaining allowance is below the amount.
	CodeInsufficientAllowance Code = "INSUFFICIENT_ALLOWANCE"

	// CodeArithmeticOverflow indicates a checked 256-bit operation wrapped.
	CodeArithmeticOverflow Code = "ARITHMETIC_OVERFLOW"
)

// Error is a rejected ledger operation. A rejection never changes state.
type Error struct {
	Code    Code
	Message string

	// Account is the account whose balance or allowance was insufficient.
	Account account.Address

	// Have and Want are set for insufficient balance/allowance errors.
	Have *uint256.Int
	Want *uint256.Int
}

func (e *Error) Error() string {
	if e.Have != nil && e.Want != nil {
		return fmt.Sprintf("%s: %s (account=%s, have=%s, want=%s)",
			e.Code, e.Message, e.Account, e.Have.Dec(), e.Want.Dec())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so
// errors.Is(err, ErrInsufficientBalance) works for detailed errors.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinel errors for errors.Is comparisons.
var (
	ErrInvalidMetadata       = &Error{Code: CodeInvalidMetadata, Message: "name and symbol must be non-empty"}
	ErrZeroAddressRecipient  = &Error{Code: CodeZeroAddressRecipient, Message: "recipient is the null account"}
	ErrZeroAddressSpender    = &Error{Code: CodeZeroAddressSpender, Message: "spender is the null account"}
	ErrInsufficientBalance   = &Error{Code: CodeInsufficientBalance, Message: "insufficient balance"}
	ErrInsufficientAllowance = &Error{Code: CodeInsufficientAllowance, Message: "insufficient allowance"}
	ErrArithmeticOverflow    = &Error{Code: CodeArithmeticOverflow, Message: "256-bit arithmetic overflow"}
)

// CodeOf returns the rejection code carried by err, or "" if err is not a
// ledger rejection.
func CodeOf(err error) Code {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsRejection reports whether err is a ledger rejection rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	return CodeOf(err) != ""
}

func insufficientBalance(acct account.Address, have, want *uint256.Int) *Error {
	return &Error{
		Code:    CodeInsufficientBalance,
		Message: "insufficient balance",
		Account: acct,
		Have:    have.Clone(),
		Want:    want.Clone(),
	}
}

func insufficientAllowance(owner account.Address, have, want *uint256.Int) *Error {
	return &Error{
		Code:    CodeInsufficientAllowance,
		Message: "insufficient allowance",
		Account: owner,
		Have:    have.Clone(),
		Want:    want.Clone(),
	}
}

func arithmeticOverflow(what string) *Error {
	return &Error{
		Code:    CodeArithmeticOverflow,
		Message: what + " overflows 256 bits",
	}
}
