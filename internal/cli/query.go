package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tokenledger/internal/event"
	"github.com/roach88/tokenledger/internal/store"
)

// BalanceResult is the output of the balance command.
type BalanceResult struct {
	Account string `json:"account"`
	Balance string `json:"balance"`
}

func (r BalanceResult) String() string { return r.Balance }

// AllowanceResult is the output of the allowance command.
type AllowanceResult struct {
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Allowance string `json:"allowance"`
}

func (r AllowanceResult) String() string { return r.Allowance }

// InfoResult is the output of the info command.
type InfoResult struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Scale       uint8  `json:"scale"`
	TotalSupply string `json:"total_supply"`
	Holders     int    `json:"holders"`
	Seq         int64  `json:"seq"`
}

func (r InfoResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name:         %s\n", r.Name)
	fmt.Fprintf(&b, "Symbol:       %s\n", r.Symbol)
	fmt.Fprintf(&b, "Scale:        %d\n", r.Scale)
	fmt.Fprintf(&b, "Total supply: %s\n", r.TotalSupply)
	fmt.Fprintf(&b, "Holders:      %d\n", r.Holders)
	fmt.Fprintf(&b, "Last seq:     %d", r.Seq)
	return b.String()
}

// withStore opens the journal for a read-only command and closes it after fn.
func withStore(opts *RootOptions, fn func(st *store.Store) error) error {
	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			opts.Logger().Error("error closing database", "error", closeErr)
		}
	}()
	return fn(st)
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account>",
		Short: "Show an account's balance",
		Long: `Show an account's balance in smallest units. Accounts that never
received value have balance 0.

Example:
  tokenledger balance --db ./ledger.db 0x0000000000000000000000000000000000000002`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			a, err := parseAccount("account", args[0])
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeInvalidArgument, "invalid argument", err)
			}
			return withStore(rootOpts, func(st *store.Store) error {
				bal, err := st.Balance(cmd.Context(), a)
				if err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to read balance", err)
				}
				return formatter.Success(BalanceResult{Account: a.String(), Balance: bal.Dec()})
			})
		},
	}
}

// NewAllowanceCommand creates the allowance command.
func NewAllowanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "allowance <owner> <spender>",
		Short: "Show how much a spender may move from an owner",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			owner, err := parseAccount("owner", args[0])
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeInvalidArgument, "invalid argument", err)
			}
			spender, err := parseAccount("spender", args[1])
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeInvalidArgument, "invalid argument", err)
			}
			return withStore(rootOpts, func(st *store.Store) error {
				amt, err := st.Allowance(cmd.Context(), owner, spender)
				if err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to read allowance", err)
				}
				return formatter.Success(AllowanceResult{
					Owner:     owner.String(),
					Spender:   spender.String(),
					Allowance: amt.Dec(),
				})
			})
		},
	}
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show token metadata and total supply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			return withStore(rootOpts, func(st *store.Store) error {
				snap, err := st.Load(cmd.Context())
				if errors.Is(err, store.ErrNotInitialized) {
					return formatter.Fail(ExitCommandError, ErrCodeNotInitialized, "ledger not initialized (run tokenledger init)", nil)
				}
				if err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to load ledger", err)
				}
				return formatter.Success(InfoResult{
					Name:        snap.Metadata.Name,
					Symbol:      snap.Metadata.Symbol,
					Scale:       snap.Metadata.Scale,
					TotalSupply: snap.TotalSupply.Dec(),
					Holders:     len(snap.Balances),
					Seq:         snap.Seq,
				})
			})
		},
	}
}

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	Account string
	Kind    string
	After   int64
	Limit   int
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List journaled events",
		Long: `List journaled events in sequence order.

Examples:
  tokenledger events --db ./ledger.db
  tokenledger events --db ./ledger.db --account 0x0000000000000000000000000000000000000002
  tokenledger events --db ./ledger.db --kind Approval --after 10 --limit 5 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Account, "account", "", "only events where the account is from or to")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only events of this kind (Transfer|Approval)")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "only events with seq greater than this")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of events (0 = all)")

	return cmd
}

func runEvents(opts *EventsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	filter := store.EventFilter{AfterSeq: opts.After, Limit: opts.Limit}
	if opts.Account != "" {
		a, err := parseAccount("account", opts.Account)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeInvalidArgument, "invalid argument", err)
		}
		filter.Account = &a
	}
	if opts.Kind != "" {
		filter.Kind = event.Kind(opts.Kind)
		if !filter.Kind.Valid() {
			return formatter.Fail(ExitCommandError, ErrCodeInvalidArgument, "invalid argument",
				fmt.Errorf("kind %q: must be Transfer or Approval", opts.Kind))
		}
	}

	return withStore(opts.RootOptions, func(st *store.Store) error {
		events, err := st.Events(cmd.Context(), filter)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to query events", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(events)
		}

		w := formatter.Writer
		if len(events) == 0 {
			fmt.Fprintln(w, "No events found.")
			return nil
		}
		for _, e := range events {
			fmt.Fprintf(w, "%s  tx=%s  id=%s\n", e, e.TxID, e.ID)
		}
		return nil
	})
}
