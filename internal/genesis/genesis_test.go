package genesis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tokenledger/internal/ledger"
)

func TestLoad_Example(t *testing.T) {
	doc, err := Load(filepath.Join("testdata", "example.cue"))
	require.NoError(t, err)

	assert.Equal(t, "Example Token", doc.Name)
	assert.Equal(t, "EXT", doc.Symbol)
	assert.Equal(t, uint8(6), doc.Scale)
	assert.Equal(t, "1000000", doc.Supply.Dec())
	assert.Equal(t, "0x00000000000000000000000000000000000000a1", doc.Creator.String())
	assert.Equal(t, ledger.Metadata{Name: "Example Token", Symbol: "EXT", Scale: 6}, doc.Metadata())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read genesis")
}

func TestParse_JSON(t *testing.T) {
	src := `{"name": "Json Token", "symbol": "JSN", "supply": 42, "creator": "0x00000000000000000000000000000000000000B2"}`
	doc, err := Parse("genesis.json", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "Json Token", doc.Name)
	assert.Equal(t, uint8(18), doc.Scale, "scale defaults to 18")
	assert.Equal(t, "42", doc.Supply.Dec(), "integer supply accepted")
	assert.Equal(t, "0x00000000000000000000000000000000000000b2", doc.Creator.String())
}

func TestParse_MaxSupply(t *testing.T) {
	maxSupply := "115792089237316195423570985008687907853269984665640564039457584007913129639935"
	src := `name: "Big", symbol: "BIG", supply: "` + maxSupply + `", creator: "0x0000000000000000000000000000000000000001"`
	doc, err := Parse("big.cue", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, maxSupply, doc.Supply.Dec())
}

func TestParse_Invalid(t *testing.T) {
	const creator = `creator: "0x0000000000000000000000000000000000000001"`

	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "missing name",
			src:     `symbol: "X", supply: "1", ` + creator,
			wantErr: "name",
		},
		{
			name:    "empty symbol",
			src:     `name: "X", symbol: "", supply: "1", ` + creator,
			wantErr: "symbol",
		},
		{
			name:    "scale out of range",
			src:     `name: "X", symbol: "X", scale: 256, supply: "1", ` + creator,
			wantErr: "scale",
		},
		{
			name:    "negative supply",
			src:     `name: "X", symbol: "X", supply: -1, ` + creator,
			wantErr: "supply",
		},
		{
			name:    "non-decimal supply",
			src:     `name: "X", symbol: "X", supply: "1e6", ` + creator,
			wantErr: "supply",
		},
		{
			name:    "supply beyond 256 bits",
			src:     `name: "X", symbol: "X", supply: "115792089237316195423570985008687907853269984665640564039457584007913129639936", ` + creator,
			wantErr: "supply",
		},
		{
			name:    "short creator",
			src:     `name: "X", symbol: "X", supply: "1", creator: "0x01"`,
			wantErr: "creator",
		},
		{
			name:    "null creator",
			src:     `name: "X", symbol: "X", supply: "1", creator: "0x0000000000000000000000000000000000000000"`,
			wantErr: "null account",
		},
		{
			name:    "unknown field",
			src:     `name: "X", symbol: "X", supply: "1", mintable: true, ` + creator,
			wantErr: "mintable",
		},
		{
			name:    "syntax error",
			src:     `name: "X" symbol: `,
			wantErr: "genesis.cue",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("genesis.cue", []byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_ErrorPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte("name: \"X\"\nsymbol: \"X\"\nsupply: \"1\"\ncreator: \"0x01\"\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.True(t, gerr.Pos.IsValid())
	assert.Contains(t, err.Error(), "creator")
}
