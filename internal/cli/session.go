package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tokenledger/internal/ledger"
	"github.com/roach88/tokenledger/internal/publish"
	"github.com/roach88/tokenledger/internal/store"
)

// session is one command's view of the ledger: the journal, the event
// dispatcher and its sinks, and (once restored or initialized) the ledger.
type session struct {
	opts       *RootOptions
	store      *store.Store
	dispatcher *publish.Dispatcher
	done       chan error
	ledger     *ledger.Ledger
}

// openStore opens the configured journal.
func openStore(opts *RootOptions) (*store.Store, error) {
	cfg := opts.Config
	if cfg.DB == "" {
		return nil, NewExitError(ExitCommandError, "no database configured: set --db or TOKENLEDGER_DB")
	}
	st, err := store.OpenDriver(cfg.DBDriver, cfg.DB)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// newSession opens the journal and starts a dispatcher over the configured
// sinks. Close must be called to flush pending events.
func newSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	st, err := openStore(opts)
	if err != nil {
		return nil, err
	}

	sinks, err := buildSinks(opts, cmd)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to configure event sinks", err)
	}

	s := &session{
		opts:       opts,
		store:      st,
		dispatcher: publish.NewDispatcher(sinks, publish.WithLogger(opts.Logger())),
		done:       make(chan error, 1),
	}
	go func() { s.done <- s.dispatcher.Run(context.Background()) }()
	return s, nil
}

// buildSinks returns the sinks named by the configuration. "-" as the event
// log writes JSON lines to the command's stdout.
func buildSinks(opts *RootOptions, cmd *cobra.Command) ([]publish.Sink, error) {
	cfg := opts.Config
	var sinks []publish.Sink

	switch cfg.EventLog {
	case "":
	case "-":
		sinks = append(sinks, publish.NewWriterSink(cmd.OutOrStdout()))
	default:
		fs, err := publish.OpenFileSink(cfg.EventLog)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fs)
	}

	if cfg.KafkaEnabled() {
		opts.Logger().Debug("publishing events to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
		sinks = append(sinks, publish.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic))
	}
	return sinks, nil
}

func (s *session) ledgerOptions() []ledger.Option {
	opts := []ledger.Option{
		ledger.WithJournal(s.store),
		ledger.WithSink(s.dispatcher),
		ledger.WithLogger(s.opts.Logger()),
	}
	if s.opts.TxIDs != nil {
		opts = append(opts, ledger.WithTxIDGenerator(s.opts.TxIDs))
	}
	return opts
}

// restore rebuilds the ledger from the journal.
func (s *session) restore(ctx context.Context) error {
	snap, err := s.store.Load(ctx)
	if errors.Is(err, store.ErrNotInitialized) {
		return err
	}
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	l, err := ledger.Restore(snap, s.ledgerOptions()...)
	if err != nil {
		return err
	}
	s.ledger = l
	s.opts.Logger().Debug("ledger restored", "seq", snap.Seq, "accounts", len(snap.Balances))
	return nil
}

// Close drains the dispatcher, closes the sinks, and closes the journal.
func (s *session) Close() error {
	s.dispatcher.Close()
	runErr := <-s.done
	return errors.Join(runErr, s.dispatcher.CloseSinks(), s.store.Close())
}
