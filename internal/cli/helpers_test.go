package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tokenledger/internal/ledger"
)

const (
	deployer = "0x0000000000000000000000000000000000000001"
	alice    = "0x0000000000000000000000000000000000000002"
	bob      = "0x0000000000000000000000000000000000000003"
	carol    = "0x0000000000000000000000000000000000000004"
	nullAcct = "0x0000000000000000000000000000000000000000"
)

// jsonResponse mirrors CLIResponse with Data left raw for typed decoding.
type jsonResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

// execute runs the CLI with args and returns stdout and the command error.
// No .env file is loaded and tx IDs are sequential per invocation.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	opts := &RootOptions{TxIDs: ledger.NewSequentialGenerator("tx")}
	cmd := newRootCommand(opts)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), err
}

// executeJSON runs the CLI with --format json and decodes the envelope.
func executeJSON(t *testing.T, args ...string) (jsonResponse, error) {
	t.Helper()
	out, err := execute(t, append(args, "--format", "json")...)
	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp, err
}

// decodeData unmarshals the response payload into v.
func decodeData(t *testing.T, resp jsonResponse, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

// tempDB returns a fresh SQLite path.
func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "ledger.db")
}

// initLedger initializes db with supply minted to deployer.
func initLedger(t *testing.T, db, supply string) {
	t.Helper()
	_, err := execute(t, "init", "--db", db,
		"--name", "Test Token", "--symbol", "TST", "--scale", "6",
		"--supply", supply, "--creator", deployer)
	require.NoError(t, err)
}
