// Package publish delivers committed ledger events to external sinks.
//
// A Dispatcher implements ledger.EventSink. Publish only enqueues, so the
// ledger never waits on delivery; a single goroutine running Run drains the
// queue in FIFO order and hands each event to every configured Sink. Sink
// failures are logged with the full event and never affect ledger state.
//
// Sinks:
//   - WriterSink: one JSON object per line to any io.Writer (stdout, file)
//   - KafkaSink: one message per event, keyed by event ID
//   - MemorySink: in-process recorder for tests and the scenario harness
package publish
