// Package genesis loads and validates genesis documents.
//
// A genesis document fixes everything ledger initialization needs: name,
// symbol, scale, supply, and creator. Documents are CUE (JSON is valid CUE)
// and are checked against an embedded #Genesis schema before use:
//
//	name:    "Example Token"
//	symbol:  "EXT"
//	scale:   6
//	supply:  "1000000000000"
//	creator: "0x00000000000000000000000000000000000000a1"
package genesis

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/holiman/uint256"

	"github.com/roach88/tokenledger/internal/account"
	"github.com/roach88/tokenledger/internal/ledger"
)

//go:embed schema.cue
var schemaCUE string

// Document is a validated genesis document.
type Document struct {
	Name    string
	Symbol  string
	Scale   uint8
	Supply  *uint256.Int
	Creator account.Address
}

// Metadata returns the ledger metadata described by d.
func (d *Document) Metadata() ledger.Metadata {
	return ledger.Metadata{Name: d.Name, Symbol: d.Symbol, Scale: d.Scale}
}

// Error is a genesis validation failure, with a source position when CUE
// provides one.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and validates the genesis document at path.
func Load(path string) (*Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis: %w", err)
	}
	return Parse(path, src)
}

// Parse validates src against the #Genesis schema and decodes it.
// filename is used only in error positions.
func Parse(filename string, src []byte) (*Document, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("genesis/schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile genesis schema: %w", err)
	}

	data := ctx.CompileBytes(src, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return nil, formatCUEError(err, filename)
	}

	v := schema.LookupPath(cue.ParsePath("#Genesis")).Unify(data)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err, filename)
	}

	var raw struct {
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
		Scale   int    `json:"scale"`
		Creator string `json:"creator"`
	}
	if err := v.Decode(&raw); err != nil {
		return nil, formatCUEError(err, filename)
	}

	doc := &Document{
		Name:   raw.Name,
		Symbol: raw.Symbol,
		Scale:  uint8(raw.Scale),
	}

	supplyVal := v.LookupPath(cue.ParsePath("supply"))
	supply, err := decodeSupply(supplyVal)
	if err != nil {
		return nil, &Error{Field: "supply", Message: err.Error(), Pos: supplyVal.Pos()}
	}
	doc.Supply = supply

	creatorVal := v.LookupPath(cue.ParsePath("creator"))
	doc.Creator, err = account.ParseAddress(raw.Creator)
	if err != nil {
		return nil, &Error{Field: "creator", Message: err.Error(), Pos: creatorVal.Pos()}
	}
	if doc.Creator.IsZero() {
		return nil, &Error{Field: "creator", Message: "creator must not be the null account", Pos: creatorVal.Pos()}
	}

	return doc, nil
}

// decodeSupply accepts a decimal string or a CUE integer.
func decodeSupply(v cue.Value) (*uint256.Int, error) {
	switch v.IncompleteKind() {
	case cue.IntKind:
		b, err := v.Int(nil)
		if err != nil {
			return nil, err
		}
		z, overflow := uint256.FromBig(b)
		if overflow {
			return nil, fmt.Errorf("%s exceeds 256 bits", b)
		}
		return z, nil
	default:
		s, err := v.String()
		if err != nil {
			return nil, err
		}
		z, err := uint256.FromDecimal(s)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, err)
		}
		return z, nil
	}
}

// formatCUEError extracts position info from CUE errors, preferring a
// position inside the genesis document over one inside the schema.
func formatCUEError(err error, filename string) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		pos := positions[0]
		for _, p := range positions {
			if p.Filename() == filename {
				pos = p
				break
			}
		}
		return &Error{
			Field:   fieldOf(firstErr),
			Message: firstErr.Error(),
			Pos:     pos,
		}
	}

	return err
}

// fieldOf returns the dotted path a CUE error refers to, or "genesis".
func fieldOf(err errors.Error) string {
	path := err.Path()
	if len(path) == 0 {
		return "genesis"
	}
	out := path[0]
	for _, p := range path[1:] {
		out += "." + p
	}
	return out
}
