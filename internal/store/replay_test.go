package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplay_Clean(t *testing.T) {
	s := createTestStore(t)
	l := createTestLedger(t, s, 1000)
	runScenario(t, l)

	report, err := s.Replay(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK(), "discrepancies: %v", report.Discrepancies)
	assert.Equal(t, 4, report.Events)
	assert.Equal(t, int64(4), report.LastSeq)
	assert.Equal(t, 3, report.Transfers)
	assert.Equal(t, 1, report.Approvals)
	assert.Equal(t, "1000", report.TotalSupply)
	assert.Equal(t, 3, report.Accounts)
}

func TestReplay_NotInitialized(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Replay(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestReplay_DetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		tamper string
		kinds  []string
	}{
		{
			name:   "balance edited",
			tamper: "UPDATE balances SET amount = '1' WHERE account = '" + carol.String() + "'",
			kinds:  []string{DiscrepancyBalance},
		},
		{
			name:   "event value edited",
			tamper: "UPDATE events SET value = '61' WHERE seq = 4",
			kinds:  []string{DiscrepancyIDMismatch, DiscrepancyBalance, DiscrepancyBalance},
		},
		{
			name:   "event deleted",
			tamper: "DELETE FROM events WHERE seq = 3",
			kinds:  []string{DiscrepancySeqGap},
		},
		{
			name:   "supply edited",
			tamper: "UPDATE metadata SET total_supply = '999'",
			kinds:  []string{DiscrepancySupply},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestStore(t)
			l := createTestLedger(t, s, 1000)
			runScenario(t, l)

			_, err := s.db.Exec(tt.tamper)
			require.NoError(t, err)

			report, err := s.Replay(context.Background())
			require.NoError(t, err)
			assert.False(t, report.OK())

			var kinds []string
			for _, d := range report.Discrepancies {
				kinds = append(kinds, d.Kind)
			}
			assert.Equal(t, tt.kinds, kinds)
		})
	}
}

func TestReplay_MissingMint(t *testing.T) {
	s := createTestStore(t)
	l := createTestLedger(t, s, 1000)
	runScenario(t, l)

	_, err := s.db.Exec("DELETE FROM events WHERE seq = 1")
	require.NoError(t, err)

	report, err := s.Replay(context.Background())
	require.NoError(t, err)

	var kinds []string
	for _, d := range report.Discrepancies {
		kinds = append(kinds, d.Kind)
	}
	assert.Contains(t, kinds, DiscrepancySeqGap)
	assert.Contains(t, kinds, DiscrepancyMint)
	assert.Contains(t, kinds, DiscrepancyUnderflow)
	assert.Contains(t, kinds, DiscrepancySupply)
}
