package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/roach88/tokenledger/internal/account"
	"github.com/roach88/tokenledger/internal/event"
	"github.com/roach88/tokenledger/internal/ledger"
	"github.com/roach88/tokenledger/internal/store"
)

// OperationOptions holds flags for the mutating commands.
type OperationOptions struct {
	*RootOptions
	Caller  string
	From    string
	To      string
	Spender string
}

// operation describes one mutating command. Its flags are the accounts
// named in parties, besides --caller which every operation takes.
type operation struct {
	use     string
	short   string
	example string
	parties []string
	apply   func(ctx context.Context, l *ledger.Ledger, caller account.Address, acct map[string]account.Address, value *uint256.Int) (event.Event, error)
}

var operations = []operation{
	{
		use:     "transfer",
		short:   "Move value from the caller to another account",
		example: "tokenledger transfer --caller 0x..01 --to 0x..02 300",
		parties: []string{"to"},
		apply: func(ctx context.Context, l *ledger.Ledger, caller account.Address, acct map[string]account.Address, value *uint256.Int) (event.Event, error) {
			return l.Transfer(ctx, caller, acct["to"], value)
		},
	},
	{
		use:     "approve",
		short:   "Set the amount a spender may move from the caller",
		example: "tokenledger approve --caller 0x..02 --spender 0x..03 100",
		parties: []string{"spender"},
		apply: func(ctx context.Context, l *ledger.Ledger, caller account.Address, acct map[string]account.Address, value *uint256.Int) (event.Event, error) {
			return l.Approve(ctx, caller, acct["spender"], value)
		},
	},
	{
		use:     "transfer-from",
		short:   "Move value out of another account using an allowance",
		example: "tokenledger transfer-from --caller 0x..03 --from 0x..02 --to 0x..04 60",
		parties: []string{"from", "to"},
		apply: func(ctx context.Context, l *ledger.Ledger, caller account.Address, acct map[string]account.Address, value *uint256.Int) (event.Event, error) {
			return l.TransferFrom(ctx, caller, acct["from"], acct["to"], value)
		},
	},
	{
		use:     "increase-allowance",
		short:   "Add to the amount a spender may move from the caller",
		example: "tokenledger increase-allowance --caller 0x..02 --spender 0x..03 25",
		parties: []string{"spender"},
		apply: func(ctx context.Context, l *ledger.Ledger, caller account.Address, acct map[string]account.Address, value *uint256.Int) (event.Event, error) {
			return l.IncreaseAllowance(ctx, caller, acct["spender"], value)
		},
	},
	{
		use:     "decrease-allowance",
		short:   "Subtract from the amount a spender may move from the caller",
		example: "tokenledger decrease-allowance --caller 0x..02 --spender 0x..03 25",
		parties: []string{"spender"},
		apply: func(ctx context.Context, l *ledger.Ledger, caller account.Address, acct map[string]account.Address, value *uint256.Int) (event.Event, error) {
			return l.DecreaseAllowance(ctx, caller, acct["spender"], value)
		},
	},
}

// newOperationCommand builds the command for op.
func newOperationCommand(rootOpts *RootOptions, op operation) *cobra.Command {
	opts := &OperationOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   op.use + " <value>",
		Short: op.short,
		Long: op.short + `.

The caller is the account on whose authority the operation runs. Values
are base-10 integers in smallest units. On success the emitted event is
printed; a rejection prints its code and exits 1 without changing state.

Example:
  ` + op.example,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(opts, op, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Caller, "caller", "", "account performing the operation (required)")
	_ = cmd.MarkFlagRequired("caller")
	for _, p := range op.parties {
		cmd.Flags().StringVar(opts.flag(p), p, "", p+" account (required)")
		_ = cmd.MarkFlagRequired(p)
	}

	return cmd
}

func (opts *OperationOptions) flag(name string) *string {
	switch name {
	case "from":
		return &opts.From
	case "to":
		return &opts.To
	case "spender":
		return &opts.Spender
	}
	panic(fmt.Sprintf("cli: unknown operation party %q", name))
}

func runOperation(opts *OperationOptions, op operation, rawValue string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)

	caller, err := parseAccount("caller", opts.Caller)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidArgument, "invalid argument", err)
	}
	acct := make(map[string]account.Address, len(op.parties))
	for _, p := range op.parties {
		a, err := parseAccount(p, *opts.flag(p))
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeInvalidArgument, "invalid argument", err)
		}
		acct[p] = a
	}
	value, err := parseAmount(rawValue)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidArgument, "invalid argument", err)
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

	if err := s.restore(ctx); err != nil {
		if errors.Is(err, store.ErrNotInitialized) {
			return formatter.Fail(ExitCommandError, ErrCodeNotInitialized, "ledger not initialized (run tokenledger init)", nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to restore ledger", err)
	}

	e, err := op.apply(ctx, s.ledger, caller, acct, value)
	if err != nil {
		return formatter.Rejection(op.use, err)
	}
	formatter.VerboseLog("committed %s as seq %d (tx %s)", op.use, e.Seq, e.TxID)
	return formatter.Success(e)
}
