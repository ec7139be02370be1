package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tokenledger/internal/ledger"
	"github.com/roach88/tokenledger/internal/testutil"
)

var (
	deployer = testutil.Addr(1)
	alice    = testutil.Addr(2)
	bob      = testutil.Addr(3)
	carol    = testutil.Addr(4)
	testMeta = ledger.Metadata{Name: "Test Token", Symbol: "TST", Scale: 6}
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestLedger initializes a ledger journaled to s with the given supply
// minted to deployer.
func createTestLedger(t *testing.T, s *Store, supply uint64) *ledger.Ledger {
	t.Helper()
	l, err := ledger.New(context.Background(), testMeta, testutil.U(supply), deployer,
		ledger.WithJournal(s),
		ledger.WithTxIDGenerator(ledger.NewSequentialGenerator("tx")),
	)
	require.NoError(t, err)
	return l
}

// runScenario performs the canonical transfer/approve/transferFrom sequence.
func runScenario(t *testing.T, l *ledger.Ledger) {
	t.Helper()
	ctx := context.Background()
	_, err := l.Transfer(ctx, deployer, alice, testutil.U(300))
	require.NoError(t, err)
	_, err = l.Approve(ctx, alice, bob, testutil.U(100))
	require.NoError(t, err)
	_, err = l.TransferFrom(ctx, bob, alice, carol, testutil.U(60))
	require.NoError(t, err)
}
