package publish

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tokenledger/internal/event"
	"github.com/roach88/tokenledger/internal/ledger"
	"github.com/roach88/tokenledger/internal/testutil"
)

// failingSink rejects every write.
type failingSink struct {
	mu     sync.Mutex
	writes int
}

func (s *failingSink) Write(context.Context, event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	return errors.New("broker unreachable")
}

func (s *failingSink) Close() error { return errors.New("close failed") }

// syncBuffer is a bytes.Buffer safe for the dispatcher goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func startDispatcher(t *testing.T, d *Dispatcher) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()
	return done
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	mem := &MemorySink{}
	d := NewDispatcher([]Sink{mem})
	done := startDispatcher(t, d)

	l, err := ledger.New(context.Background(), ledger.Metadata{Name: "T", Symbol: "T"}, testutil.U(100), testutil.Addr(1),
		ledger.WithSink(d))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		_, err := l.Transfer(context.Background(), testutil.Addr(1), testutil.Addr(2), testutil.U(1))
		require.NoError(t, err)
	}

	d.Close()
	require.NoError(t, <-done)

	assert.Equal(t, l.Events(), mem.Events())
}

func TestDispatcher_ConcurrentPublishersWhileDelivering(t *testing.T) {
	mem := &MemorySink{}
	d := NewDispatcher([]Sink{mem})
	done := startDispatcher(t, d)

	ctx := context.Background()
	l, err := ledger.New(ctx, ledger.Metadata{Name: "T", Symbol: "T"}, testutil.U(10_000), testutil.Addr(1),
		ledger.WithSink(d))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(to uint64) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = l.Transfer(ctx, testutil.Addr(1), testutil.Addr(to), testutil.U(1))
				_, _ = l.Approve(ctx, testutil.Addr(1), testutil.Addr(to), testutil.U(uint64(j)))
			}
		}(uint64(10 + i))
	}
	wg.Wait()

	d.Close()
	require.NoError(t, <-done)

	delivered := mem.Events()
	require.Len(t, delivered, 1+4*50*2)
	assert.Equal(t, l.Events(), delivered)
	for i, e := range delivered {
		assert.Equal(t, int64(i+1), e.Seq)
	}
}

func TestDispatcher_CloseDrainsQueue(t *testing.T) {
	mem := &MemorySink{}
	d := NewDispatcher([]Sink{mem})

	// Queue before Run starts; Close then Run must still deliver everything.
	for i := int64(1); i <= 5; i++ {
		d.Publish(event.Event{Seq: i})
	}
	d.Close()
	require.NoError(t, d.Run(context.Background()))

	assert.Len(t, mem.Events(), 5)
}

func TestDispatcher_PublishAfterCloseDropped(t *testing.T) {
	logs := &syncBuffer{}
	mem := &MemorySink{}
	d := NewDispatcher([]Sink{mem}, WithLogger(slog.New(slog.NewTextHandler(logs, nil))))
	d.Close()
	d.Publish(event.Event{Seq: 1})
	require.NoError(t, d.Run(context.Background()))

	assert.Empty(t, mem.Events())
	assert.Contains(t, logs.String(), "event dropped")
}

func TestDispatcher_SinkFailureLoggedAndContinues(t *testing.T) {
	logs := &syncBuffer{}
	bad := &failingSink{}
	mem := &MemorySink{}
	d := NewDispatcher([]Sink{bad, mem}, WithLogger(slog.New(slog.NewTextHandler(logs, nil))))

	e := event.NewTransfer(1, "tx-1", testutil.Addr(1), testutil.Addr(2), testutil.U(7))
	d.Publish(e)
	d.Close()
	require.NoError(t, d.Run(context.Background()))

	assert.Equal(t, []event.Event{e}, mem.Events(), "healthy sinks still receive the event")
	assert.Equal(t, 1, bad.writes)
	out := logs.String()
	assert.Contains(t, out, "event delivery failed")
	assert.Contains(t, out, "broker unreachable")
	assert.Contains(t, out, "tx_id=tx-1")
	assert.Contains(t, out, "value=7")

	err := d.CloseSinks()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close failed")
}

func TestDispatcher_ContextCancel(t *testing.T) {
	d := NewDispatcher(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
