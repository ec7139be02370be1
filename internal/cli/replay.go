package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tokenledger/internal/store"
)

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the event log and verify the journal",
		Long: `Replay the event log from the first event and verify the journal.

Balances and total supply are re-derived from events alone and compared
with the stored tables. Sequence numbers must be contiguous from 1, the
first event must be the only mint, and every event ID must match its
content. Discrepancies are reported, never repaired.

Exit codes:
  0 - Journal is consistent
  1 - Discrepancies found
  2 - Command error (database not found, etc.)

Examples:
  tokenledger replay --db ./ledger.db
  tokenledger replay --db ./ledger.db --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}

	return cmd
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
	return withStore(opts, func(st *store.Store) error {
		report, err := st.Replay(cmd.Context())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to replay journal", err)
		}

		if opts.Format == "json" {
			return outputReplayJSON(cmd, report)
		}
		return outputReplayText(cmd, report, opts.Verbose)
	})
}

// outputReplayJSON outputs the replay report as JSON.
func outputReplayJSON(cmd *cobra.Command, report *store.ReplayReport) error {
	response := CLIResponse{
		Status: "ok",
		Data:   report,
	}

	if !report.OK() {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeReplayMismatch,
			Message: fmt.Sprintf("replay found %d discrepancy(ies)", len(report.Discrepancies)),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !report.OK() {
		return NewExitError(ExitFailure, "replay verification failed")
	}
	return nil
}

// outputReplayText outputs the replay report as text.
func outputReplayText(cmd *cobra.Command, report *store.ReplayReport, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d event(s), last seq %d\n", report.Events, report.LastSeq)
	if verbose {
		fmt.Fprintf(w, "  Transfers: %d\n", report.Transfers)
		fmt.Fprintf(w, "  Approvals: %d\n", report.Approvals)
		fmt.Fprintf(w, "  Total supply: %s\n", report.TotalSupply)
		fmt.Fprintf(w, "  Accounts: %d\n", report.Accounts)
	}
	fmt.Fprintln(w)

	if !report.OK() {
		for _, d := range report.Discrepancies {
			if d.Seq > 0 {
				fmt.Fprintf(w, "✗ [%s] seq %d: %s\n", d.Kind, d.Seq, d.Detail)
			} else {
				fmt.Fprintf(w, "✗ [%s] %s\n", d.Kind, d.Detail)
			}
		}
		return NewExitError(ExitFailure, "replay verification failed")
	}

	fmt.Fprintln(w, "✓ Journal consistent with event log")
	return nil
}
