package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/roach88/tokenledger/internal/event"
)

// WriterSink writes each event as one JSON line.
type WriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
	c   io.Closer
}

// NewWriterSink writes JSON lines to w. Close does not close w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{enc: json.NewEncoder(w)}
}

// OpenFileSink appends JSON lines to the file at path, creating it if needed.
func OpenFileSink(path string) (*WriterSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &WriterSink{enc: json.NewEncoder(f), c: f}, nil
}

// Write implements Sink.
func (s *WriterSink) Write(_ context.Context, e event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(e); err != nil {
		return fmt.Errorf("write event %d: %w", e.Seq, err)
	}
	return nil
}

// Close implements Sink.
func (s *WriterSink) Close() error {
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}

// messageWriter is the subset of *kafka.Writer KafkaSink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes each event to a Kafka topic. The message key is the
// event ID and the value is the event JSON; a "kind" header carries the
// event kind.
type KafkaSink struct {
	writer messageWriter
}

// NewKafkaSink creates a sink writing to topic on brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Write implements Sink.
func (s *KafkaSink) Write(ctx context.Context, e event.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event %d: %w", e.Seq, err)
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.ID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(e.Kind)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish event %d: %w", e.Seq, err)
	}
	return nil
}

// Close implements Sink.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// MemorySink records events in memory. Safe for concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	events []event.Event
}

// Write implements Sink.
func (s *MemorySink) Write(_ context.Context, e event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// Close implements Sink.
func (s *MemorySink) Close() error { return nil }

// Events returns a copy of the recorded events.
func (s *MemorySink) Events() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Event, len(s.events))
	copy(out, s.events)
	return out
}
