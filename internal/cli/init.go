package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tokenledger/internal/event"
	"github.com/roach88/tokenledger/internal/genesis"
	"github.com/roach88/tokenledger/internal/ledger"
	"github.com/roach88/tokenledger/internal/store"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Genesis string

	Name    string
	Symbol  string
	Scale   uint8
	Supply  string
	Creator string
}

// InitResult is the output of a successful init.
type InitResult struct {
	Name        string      `json:"name"`
	Symbol      string      `json:"symbol"`
	Scale       uint8       `json:"scale"`
	TotalSupply string      `json:"total_supply"`
	Creator     string      `json:"creator"`
	Event       event.Event `json:"event"`
}

func (r InitResult) String() string {
	return fmt.Sprintf("Initialized %s (%s), scale %d\nMinted %s to %s\n%s",
		r.Name, r.Symbol, r.Scale, r.TotalSupply, r.Creator, r.Event)
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the ledger and mint the supply",
		Long: `Initialize the ledger: record the token metadata and mint the entire
supply to the creator, emitting Transfer(null, creator, supply).

The parameters come from a genesis document (--genesis) or from flags.
Either way they are validated against the genesis schema. A journal can
be initialized only once.

Examples:
  tokenledger init --db ./ledger.db --genesis genesis.cue
  tokenledger init --db ./ledger.db --name "Example Token" --symbol EXT \
    --scale 6 --supply 1000000000000 --creator 0x00000000000000000000000000000000000000a1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Genesis, "genesis", "", "genesis document (CUE or JSON)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "token name")
	cmd.Flags().StringVar(&opts.Symbol, "symbol", "", "token symbol")
	cmd.Flags().Uint8Var(&opts.Scale, "scale", 18, "fractional digits of the display unit")
	cmd.Flags().StringVar(&opts.Supply, "supply", "", "total supply in smallest units")
	cmd.Flags().StringVar(&opts.Creator, "creator", "", "account receiving the supply")
	cmd.MarkFlagsMutuallyExclusive("genesis", "name")
	cmd.MarkFlagsMutuallyExclusive("genesis", "supply")
	cmd.MarkFlagsMutuallyExclusive("genesis", "creator")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)

	doc, err := opts.document()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidGenesis, "invalid genesis", err)
	}

	s, err := newSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			opts.Logger().Error("error closing session", "error", closeErr)
		}
	}()

	if _, err := s.store.Load(ctx); err == nil {
		return formatter.Fail(ExitCommandError, ErrCodeAlreadyInitialized, "ledger already initialized", nil)
	} else if !errors.Is(err, store.ErrNotInitialized) {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to read journal", err)
	}

	l, err := ledger.New(ctx, doc.Metadata(), doc.Supply, doc.Creator, s.ledgerOptions()...)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyInitialized) {
			return formatter.Fail(ExitCommandError, ErrCodeAlreadyInitialized, "ledger already initialized", nil)
		}
		return formatter.Rejection("init", err)
	}
	s.ledger = l

	return formatter.Success(InitResult{
		Name:        doc.Name,
		Symbol:      doc.Symbol,
		Scale:       doc.Scale,
		TotalSupply: doc.Supply.Dec(),
		Creator:     doc.Creator.String(),
		Event:       l.Events()[0],
	})
}

// document loads the genesis file, or assembles one from flags. Flag values
// go through the same schema as files.
func (opts *InitOptions) document() (*genesis.Document, error) {
	if opts.Genesis != "" {
		return genesis.Load(opts.Genesis)
	}

	src, err := json.Marshal(map[string]any{
		"name":    opts.Name,
		"symbol":  opts.Symbol,
		"scale":   opts.Scale,
		"supply":  opts.Supply,
		"creator": opts.Creator,
	})
	if err != nil {
		return nil, err
	}
	return genesis.Parse("flags", src)
}
