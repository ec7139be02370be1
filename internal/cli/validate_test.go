package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGenesis(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.cue")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidate_Valid(t *testing.T) {
	path := writeGenesis(t, `
name:    "Example Token"
symbol:  "EXT"
scale:   6
supply:  1000000
creator: "`+alice+`"
`)

	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "Example Token (EXT), supply 1000000 to "+alice)

	resp, err := executeJSON(t, "validate", path)
	require.NoError(t, err)
	var result ValidationResult
	decodeData(t, resp, &result)
	assert.True(t, result.Valid)
	assert.Equal(t, "EXT", result.Symbol)
	assert.Equal(t, uint8(6), result.Scale)
	assert.Equal(t, "1000000", result.Supply)
}

func TestValidate_Invalid(t *testing.T) {
	path := writeGenesis(t, `
name:    "Example Token"
symbol:  "EXT"
supply:  "1000"
creator: "0x1234"
`)

	out, err := execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "creator")

	resp, err := executeJSON(t, "validate", path)
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidGenesis, resp.Error.Code)

	raw, err := json.Marshal(resp.Error.Details)
	require.NoError(t, err)
	var details ValidationResult
	require.NoError(t, json.Unmarshal(raw, &details))
	assert.False(t, details.Valid)
	require.Len(t, details.Errors, 1)
	assert.Contains(t, details.Errors[0].Field+": "+details.Errors[0].Message, "creator")
}

func TestValidate_MissingFile(t *testing.T) {
	resp, err := executeJSON(t, "validate", filepath.Join(t.TempDir(), "missing.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}
