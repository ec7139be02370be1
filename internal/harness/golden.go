package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tokenledger/internal/event"
)

// TraceSnapshot captures the trace of one scenario execution.
// Event IDs are omitted: they are covered by replay, and leaving them out
// keeps golden files reviewable by hand.
type TraceSnapshot struct {
	ScenarioName string
	Scenario     *Scenario
	Trace        []TraceEvent
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, te := range s.Trace {
		entry := map[string]any{
			"step":    te.Step,
			"op":      te.Op,
			"caller":  te.Caller,
			"outcome": te.Outcome,
		}
		if te.Event != nil {
			entry["event"] = eventSummary(s.Scenario, te.Event)
		}
		traceList[i] = entry
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
}

// MarshalTrace renders a result's trace as canonical JSON.
func MarshalTrace(scenario *Scenario, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		Scenario:     scenario,
		Trace:        result.Trace,
	}
	return event.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against its golden file.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return nil
}
