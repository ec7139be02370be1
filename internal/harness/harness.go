package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/holiman/uint256"

	"github.com/roach88/tokenledger/internal/event"
	"github.com/roach88/tokenledger/internal/ledger"
	"github.com/roach88/tokenledger/internal/publish"
	"github.com/roach88/tokenledger/internal/store"
)

// Harness executes one scenario against a fresh ledger.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	ledger   *ledger.Ledger
	logger   *slog.Logger
}

// Option configures a run.
type Option func(*Harness)

// WithLogger routes ledger and dispatcher diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with sequential tx IDs
// ("tx-1", "tx-2", ...), so identical scenarios produce identical traces.
//
// Execution flow:
//  1. Open an in-memory journal and start an event dispatcher
//  2. Initialize the ledger from the scenario genesis
//  3. Execute setup steps (each must succeed)
//  4. Execute flow steps, checking expect clauses
//  5. Check published events match the event log
//  6. Evaluate assertions
//
// A returned error means the scenario could not run at all; expectation
// and assertion failures are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		scenario: scenario,
		store:    st,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(h)
	}

	ctx := context.Background()

	mem := &publish.MemorySink{}
	dispatcher := publish.NewDispatcher([]publish.Sink{mem}, publish.WithLogger(h.logger))
	done := make(chan error, 1)
	go func() { done <- dispatcher.Run(ctx) }()
	stopDispatcher := func() error {
		dispatcher.Close()
		return <-done
	}

	result := NewResult()
	if err := h.initialize(ctx, dispatcher, result); err != nil {
		stopDispatcher()
		return nil, err
	}

	for i, step := range scenario.Setup {
		if _, err := h.execute(ctx, step); err != nil {
			stopDispatcher()
			return nil, fmt.Errorf("failed to execute setup[%d]: %w", i, err)
		}
	}

	if err := h.executeFlow(ctx, result); err != nil {
		stopDispatcher()
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	if err := stopDispatcher(); err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}
	if published := mem.Events(); !reflect.DeepEqual(published, h.ledger.Events()) {
		result.AddError(fmt.Sprintf("published %d events, event log holds %d", len(published), len(h.ledger.Events())))
	}

	actx := &AssertionContext{
		Ctx:      ctx,
		Scenario: scenario,
		Ledger:   h.ledger,
		Store:    st,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// initialize creates the ledger and records the mint as trace step 0.
func (h *Harness) initialize(ctx context.Context, sink ledger.EventSink, result *Result) error {
	g := h.scenario.Genesis
	creator, err := h.scenario.resolve(g.Creator)
	if err != nil {
		return fmt.Errorf("genesis.creator: %w", err)
	}
	supply, err := uint256.FromDecimal(g.Supply)
	if err != nil {
		return fmt.Errorf("genesis.supply: %w", err)
	}

	h.ledger, err = ledger.New(ctx,
		ledger.Metadata{Name: g.Name, Symbol: g.Symbol, Scale: g.Scale},
		supply,
		creator,
		ledger.WithJournal(h.store),
		ledger.WithSink(sink),
		ledger.WithTxIDGenerator(ledger.NewSequentialGenerator("tx")),
		ledger.WithLogger(h.logger),
	)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	mint := h.ledger.Events()[0]
	result.AddTrace(TraceEvent{
		Step:    0,
		Op:      "initialize",
		Caller:  g.Creator,
		Outcome: OutcomeOK,
		Event:   &mint,
	})
	return nil
}

// executeFlow runs all flow steps and validates expect clauses.
//
// Rejections are recorded in the trace with their code. Infrastructure
// failures (journal errors) abort the run.
func (h *Harness) executeFlow(ctx context.Context, result *Result) error {
	for i, step := range h.scenario.Flow {
		e, err := h.execute(ctx, step)
		if err != nil && !ledger.IsRejection(err) {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}

		te := TraceEvent{Step: i + 1, Op: step.Op, Caller: step.Caller, Outcome: OutcomeOK}
		if err != nil {
			te.Outcome = string(ledger.CodeOf(err))
		} else {
			te.Event = &e
		}
		result.AddTrace(te)

		want := OutcomeOK
		if step.Expect != nil && step.Expect.Error != "" {
			want = step.Expect.Error
		}
		if te.Outcome != want {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected %s, got %s", i, step.Op, want, te.Outcome))
		}

		h.logger.Debug("flow step completed", "step", i, "op", step.Op, "outcome", te.Outcome)
	}
	return nil
}

// execute resolves a step's accounts and applies it to the ledger.
func (h *Harness) execute(ctx context.Context, step Step) (event.Event, error) {
	s := h.scenario
	caller, err := s.resolve(step.Caller)
	if err != nil {
		return event.Event{}, err
	}
	value, err := uint256.FromDecimal(step.Value)
	if err != nil {
		return event.Event{}, fmt.Errorf("value: %w", err)
	}

	switch step.Op {
	case OpTransfer:
		to, err := s.resolve(step.To)
		if err != nil {
			return event.Event{}, err
		}
		return h.ledger.Transfer(ctx, caller, to, value)

	case OpApprove, OpIncreaseAllowance, OpDecreaseAllowance:
		spender, err := s.resolve(step.Spender)
		if err != nil {
			return event.Event{}, err
		}
		switch step.Op {
		case OpApprove:
			return h.ledger.Approve(ctx, caller, spender, value)
		case OpIncreaseAllowance:
			return h.ledger.IncreaseAllowance(ctx, caller, spender, value)
		default:
			return h.ledger.DecreaseAllowance(ctx, caller, spender, value)
		}

	case OpTransferFrom:
		from, err := s.resolve(step.From)
		if err != nil {
			return event.Event{}, err
		}
		to, err := s.resolve(step.To)
		if err != nil {
			return event.Event{}, err
		}
		return h.ledger.TransferFrom(ctx, caller, from, to, value)

	default:
		return event.Event{}, fmt.Errorf("unknown op %q", step.Op)
	}
}
