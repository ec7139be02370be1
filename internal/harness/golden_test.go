package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunWithGolden_Scenarios runs every scenario under testdata/scenarios
// and compares its trace with testdata/golden/<name>.golden.
//
// Regenerate with:
//
//	go test ./internal/harness -run TestRunWithGolden_Scenarios -update
func TestRunWithGolden_Scenarios(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name, "scenario name must match its file name")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRunWithGolden_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/allowance_flow.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalTrace(scenario, first)
	require.NoError(t, err)
	b, err := MarshalTrace(scenario, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	// Event IDs are content-derived, so they match across runs too.
	for i := range first.Trace {
		if first.Trace[i].Event == nil {
			continue
		}
		assert.Equal(t, first.Trace[i].Event.ID, second.Trace[i].Event.ID)
	}
}
