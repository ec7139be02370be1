package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tokenledger/internal/event"
	"github.com/roach88/tokenledger/internal/ledger"
	"github.com/roach88/tokenledger/internal/testutil"
)

func TestLoad_NotInitialized(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestLoad_RestoreResumes(t *testing.T) {
	path := t.TempDir() + "/ledger.db"
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	l := createTestLedger(t, s, 1000)
	runScenario(t, l)
	want := l.Snapshot()
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), snap.Seq)

	restored, err := ledger.Restore(snap, ledger.WithJournal(s))
	require.NoError(t, err)
	assert.Equal(t, want, restored.Snapshot())

	e, err := restored.TransferFrom(ctx, bob, alice, carol, testutil.U(40))
	require.NoError(t, err)
	assert.Equal(t, int64(5), e.Seq)

	allowance, err := s.Allowance(ctx, alice, bob)
	require.NoError(t, err)
	assert.True(t, allowance.IsZero())
}

func TestBalance_Absent(t *testing.T) {
	s := createTestStore(t)
	bal, err := s.Balance(context.Background(), alice)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	allowance, err := s.Allowance(context.Background(), alice, bob)
	require.NoError(t, err)
	assert.True(t, allowance.IsZero())
}

func TestEvents_Filter(t *testing.T) {
	s := createTestStore(t)
	l := createTestLedger(t, s, 1000)
	runScenario(t, l)
	ctx := context.Background()

	seqs := func(events []event.Event) []int64 {
		out := make([]int64, len(events))
		for i, e := range events {
			out[i] = e.Seq
		}
		return out
	}

	tests := []struct {
		name   string
		filter EventFilter
		want   []int64
	}{
		{"all", EventFilter{}, []int64{1, 2, 3, 4}},
		{"account from or to", EventFilter{Account: &alice}, []int64{2, 3, 4}},
		{"carol", EventFilter{Account: &carol}, []int64{4}},
		{"approvals", EventFilter{Kind: event.KindApproval}, []int64{3}},
		{"transfers after 1", EventFilter{Kind: event.KindTransfer, AfterSeq: 1}, []int64{2, 4}},
		{"limit", EventFilter{Limit: 2}, []int64{1, 2}},
		{"none", EventFilter{AfterSeq: 4}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := s.Events(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, seqs(events))
		})
	}
}

func TestEvents_EmptyStoreReturnsEmptySlice(t *testing.T) {
	s := createTestStore(t)
	events, err := s.Events(context.Background(), EventFilter{})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestEvents_CorruptRow(t *testing.T) {
	s := createTestStore(t)
	_, err := s.db.Exec(`INSERT INTO events (seq, id, tx_id, kind, from_account, to_account, value)
		VALUES (1, 'x', 'x', 'Transfer', 'nothex', 'nothex', '1')`)
	require.NoError(t, err)

	_, err = s.Events(context.Background(), EventFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan event 1")
}
