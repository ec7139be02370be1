package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tokenledger/internal/config"
	"github.com/roach88/tokenledger/internal/ledger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string // SQLite path or postgres DSN; overrides TOKENLEDGER_DB
	Driver   string // "sqlite3" | "postgres"; overrides TOKENLEDGER_DB_DRIVER

	// Config is loaded before any subcommand runs.
	Config config.Config

	// DotEnv lists .env files preloaded into the environment.
	DotEnv []string

	// TxIDs overrides the transaction ID generator (for testing).
	// If nil, the ledger default (UUIDv7) is used.
	TxIDs ledger.TxIDGenerator

	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tokenledger CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{DotEnv: []string{".env"}})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokenledger",
		Short: "tokenledger - fungible token ledger",
		Long: `A single-asset fungible token ledger with a durable journal.

Balances and allowances are 256-bit unsigned integers. Every committed
operation is journaled atomically and emits a Transfer or Approval event.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "database path or DSN (default $TOKENLEDGER_DB)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "database driver: sqlite3|postgres (default $TOKENLEDGER_DB_DRIVER)")

	// Add subcommands
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	for _, op := range operations {
		cmd.AddCommand(newOperationCommand(opts, op))
	}
	cmd.AddCommand(NewBalanceCommand(opts))
	cmd.AddCommand(NewAllowanceCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// prepare validates global flags, loads configuration, and installs the
// process logger. Flags win over configuration.
func (opts *RootOptions) prepare(cmd *cobra.Command) error {
	if !isValidFormat(opts.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
	}

	cfg, err := config.Parse(opts.DotEnv...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if opts.Database != "" {
		cfg.DB = opts.Database
	}
	if opts.Driver != "" {
		cfg.DBDriver = opts.Driver
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	opts.Config = cfg

	opts.logger = newLogger(cmd.ErrOrStderr(), cfg, opts.Verbose)
	slog.SetDefault(opts.logger)
	return nil
}

// Logger returns the configured logger, or the default before prepare runs.
func (opts *RootOptions) Logger() *slog.Logger {
	if opts.logger == nil {
		return slog.Default()
	}
	return opts.logger
}

// newLogger builds the stderr logger: Debug with --verbose, otherwise the
// configured level.
func newLogger(w io.Writer, cfg config.Config, verbose bool) *slog.Logger {
	level, err := cfg.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
