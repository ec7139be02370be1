package publish

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/roach88/tokenledger/internal/event"
)

// Sink receives committed events one at a time, in seq order.
type Sink interface {
	Write(ctx context.Context, e event.Event) error
	Close() error
}

// Dispatcher fans committed events out to sinks on a single goroutine.
type Dispatcher struct {
	queue  *backlog
	sinks  []Sink
	logger *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a dispatcher delivering to sinks. Call Run to start
// delivery and Close to stop accepting events.
func NewDispatcher(sinks []Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:  newBacklog(),
		sinks:  sinks,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Publish enqueues e for delivery and returns immediately.
// Implements ledger.EventSink.
func (d *Dispatcher) Publish(e event.Event) {
	if !d.queue.push(e) {
		d.logger.Warn("event dropped: dispatcher closed", "seq", e.Seq, "id", e.ID)
	}
}

// Run delivers queued events until the context is cancelled or the
// dispatcher is closed. After Close, Run drains every event already queued
// and returns nil. On cancellation it returns ctx.Err() without draining.
//
// CRITICAL: Run must be called from exactly one goroutine.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Debug("dispatcher starting", "sinks", len(d.sinks))

	for {
		e, ok := d.queue.pop()
		if ok {
			d.deliver(ctx, e)
			continue
		}

		select {
		case <-ctx.Done():
			d.logger.Debug("dispatcher stopping: context cancelled", "pending", d.queue.pending())
			d.queue.shutdown()
			return ctx.Err()

		case <-d.queue.ready():
			// ready stays closed after shutdown, so this fires
			// immediately once closed.
			if d.queue.drained() {
				d.logger.Debug("dispatcher stopping: queue closed")
				return nil
			}
		}
	}
}

// deliver writes e to every sink. A failing sink does not stop delivery
// to the others.
func (d *Dispatcher) deliver(ctx context.Context, e event.Event) {
	for _, s := range d.sinks {
		if err := s.Write(ctx, e); err != nil {
			d.logEventError(e, err)
		}
	}
}

// logEventError logs a delivery failure with enough context to re-publish
// the event by hand.
func (d *Dispatcher) logEventError(e event.Event, err error) {
	d.logger.Error("event delivery failed",
		"seq", e.Seq,
		"id", e.ID,
		"tx_id", e.TxID,
		"kind", e.Kind,
		"from", e.From.String(),
		"to", e.To.String(),
		"value", e.Value.Dec(),
		"error", err,
	)
}

// Close stops accepting events. A running Run drains the queue and returns.
func (d *Dispatcher) Close() {
	d.queue.shutdown()
}

// CloseSinks closes every sink. Call after Run has returned.
func (d *Dispatcher) CloseSinks() error {
	var errs []error
	for _, s := range d.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
