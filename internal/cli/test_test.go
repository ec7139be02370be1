package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyScenario copies a harness scenario into dir.
func copyScenario(t *testing.T, dir, name string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), data, 0644))
}

func TestTestCommand_AssertionsOnly(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "allowance_flow")
	copyScenario(t, dir, "rejections")

	out, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ allowance_flow")
	assert.Contains(t, out, "✓ rejections")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
}

func TestTestCommand_GoldenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "allowance_flow")

	out, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "golden updated")

	// The CLI writes the same bytes the harness golden tests check in.
	written, err := os.ReadFile(filepath.Join(dir, "golden", "allowance_flow.golden"))
	require.NoError(t, err)
	checkedIn, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "golden", "allowance_flow.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(checkedIn), string(written))

	_, err = execute(t, "test", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "allowance_flow.golden"), []byte("{}"), 0644))
	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommand_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(`
name: wrong
description: "expects the wrong balance"
genesis:
  name: T
  symbol: T
  supply: "10"
  creator: a
accounts:
  a: "0x0000000000000000000000000000000000000001"
flow:
  - op: transfer
    caller: a
    to: a
    value: "10"
assertions:
  - type: balance
    account: a
    expect: "11"
`), 0644))

	out, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "wrong", resp.Data.Scenarios[0].Name)
	require.Len(t, resp.Data.Scenarios[0].Errors, 1)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "balance(a) = 11")
}

func TestTestCommand_Filter(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "allowance_flow")
	copyScenario(t, dir, "rejections")

	out, err := execute(t, "test", dir, "--filter", "rej*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ rejections")
	assert.NotContains(t, out, "allowance_flow")
	assert.Contains(t, out, "1 total")
}

func TestTestCommand_MissingDir(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommand_Empty(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}
