package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/roach88/tokenledger/internal/event"
	"github.com/roach88/tokenledger/internal/ledger"
	"github.com/roach88/tokenledger/internal/store"
)

// AssertionContext provides what assertions evaluate against.
type AssertionContext struct {
	Ctx      context.Context
	Scenario *Scenario
	Ledger   *ledger.Ledger
	Store    *store.Store
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, te := range e.Trace {
		if te.Event != nil {
			fmt.Fprintf(&buf, "  [%d] %s by %s: %s\n", te.Step, te.Op, te.Caller, te.Event)
		} else {
			fmt.Fprintf(&buf, "  [%d] %s by %s: %s\n", te.Step, te.Op, te.Caller, te.Outcome)
		}
	}

	return buf.String()
}

// assertAmount compares a state amount with the expected decimal string.
func assertAmount(kind, subject string, got *uint256.Int, want string, trace []TraceEvent) error {
	w, err := uint256.FromDecimal(want)
	if err != nil {
		return fmt.Errorf("%s: invalid expect %q: %w", kind, want, err)
	}
	if got.Eq(w) {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%s = %s", subject, want),
		Actual:   fmt.Sprintf("%s = %s", subject, got.Dec()),
		Trace:    trace,
	}
}

// assertEvent checks that some event in the log matches every set field of
// the assertion.
func assertEvent(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	s := actx.Scenario
	for _, e := range actx.Ledger.Events() {
		if a.Kind != "" && string(e.Kind) != a.Kind {
			continue
		}
		if a.From != "" {
			from, err := s.resolve(a.From)
			if err != nil || from != e.From {
				continue
			}
		}
		if a.To != "" {
			to, err := s.resolve(a.To)
			if err != nil || to != e.To {
				continue
			}
		}
		if a.Value != "" && e.Value.Dec() != normalizeAmount(a.Value) {
			continue
		}
		return nil
	}

	return &AssertionError{
		Type:     AssertEvent,
		Expected: fmt.Sprintf("event kind=%q from=%q to=%q value=%q", a.Kind, a.From, a.To, a.Value),
		Actual:   "not found in event log",
		Trace:    trace,
	}
}

// normalizeAmount strips leading zeros so "060" matches "60".
func normalizeAmount(s string) string {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return s
	}
	return v.Dec()
}

// assertReplay replays the journal and fails on any discrepancy.
func assertReplay(actx *AssertionContext, trace []TraceEvent) error {
	report, err := actx.Store.Replay(actx.Ctx)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if report.OK() {
		return nil
	}
	details := make([]string, len(report.Discrepancies))
	for i, d := range report.Discrepancies {
		details[i] = fmt.Sprintf("%s: %s", d.Kind, d.Detail)
	}
	return &AssertionError{
		Type:     AssertReplay,
		Expected: "no discrepancies",
		Actual:   strings.Join(details, "; "),
		Trace:    trace,
	}
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	s := actx.Scenario
	l := actx.Ledger

	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertBalance:
			acct, rerr := s.resolve(a.Account)
			if rerr != nil {
				err = rerr
				break
			}
			err = assertAmount(a.Type, "balance("+a.Account+")", l.BalanceOf(acct), a.Expect, result.Trace)

		case AssertAllowance:
			owner, rerr := s.resolve(a.Owner)
			if rerr != nil {
				err = rerr
				break
			}
			spender, rerr := s.resolve(a.Spender)
			if rerr != nil {
				err = rerr
				break
			}
			subject := fmt.Sprintf("allowance(%s, %s)", a.Owner, a.Spender)
			err = assertAmount(a.Type, subject, l.AllowanceOf(owner, spender), a.Expect, result.Trace)

		case AssertTotalSupply:
			err = assertAmount(a.Type, "totalSupply", l.TotalSupply(), a.Expect, result.Trace)

		case AssertEventCount:
			if n := len(l.Events()); n != a.Count {
				err = &AssertionError{
					Type:     a.Type,
					Expected: fmt.Sprintf("%d events", a.Count),
					Actual:   fmt.Sprintf("%d events", n),
					Trace:    result.Trace,
				}
			}

		case AssertEvent:
			err = assertEvent(actx, result.Trace, a)

		case AssertConservation:
			if cerr := l.VerifyConservation(); cerr != nil {
				err = &AssertionError{
					Type:     a.Type,
					Expected: "sum(balances) == totalSupply",
					Actual:   cerr.Error(),
					Trace:    result.Trace,
				}
			}

		case AssertReplay:
			err = assertReplay(actx, result.Trace)

		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}

		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	return errs
}

// eventSummary renders e with scenario aliases for readable traces.
func eventSummary(s *Scenario, e *event.Event) map[string]any {
	return map[string]any{
		"seq":   e.Seq,
		"tx_id": e.TxID,
		"kind":  string(e.Kind),
		"from":  s.alias(e.From),
		"to":    s.alias(e.To),
		"value": e.Value.Dec(),
	}
}
