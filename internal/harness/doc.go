// Package harness runs ledger scenarios as executable contract tests.
//
// A scenario names a genesis, a set of account aliases, and a sequence of
// ledger operations with their expected outcomes, then asserts on the final
// state. Each run uses a fresh in-memory SQLite journal, sequential tx IDs,
// and an in-memory event sink, so traces are reproducible and can be
// compared against golden files.
//
// # Scenario Format
//
//	name: allowance_flow
//	description: "Spender draws down an allowance"
//	genesis:
//	  name: Test Token
//	  symbol: TST
//	  supply: "1000000"
//	  creator: deployer
//	accounts:
//	  deployer: "0x0000000000000000000000000000000000000001"
//	  x: "0x0000000000000000000000000000000000000002"
//	flow:
//	  - op: transfer
//	    caller: deployer
//	    to: x
//	    value: "300"
//	  - op: transfer
//	    caller: x
//	    to: "null"
//	    value: "1"
//	    expect:
//	      error: ZERO_ADDRESS_RECIPIENT
//	assertions:
//	  - type: balance
//	    account: x
//	    expect: "300"
//	  - type: conservation
//
// Account references are aliases from accounts, literal 0x addresses, or
// the keyword "null" for the null account.
//
// # Operations
//
//   - transfer: caller, to, value
//   - approve: caller, spender, value
//   - transferFrom: caller, from, to, value
//   - increaseAllowance / decreaseAllowance: caller, spender, value
//
// # Assertion Types
//
//   - balance: account has exactly expect
//   - allowance: owner granted spender exactly expect
//   - total_supply: total supply is expect
//   - event_count: the event log holds count events (including the mint)
//   - event: some event matches kind/from/to/value (subset match)
//   - conservation: balances sum to the total supply
//   - replay: the journal's event log replays without discrepancies
package harness
