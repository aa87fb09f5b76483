package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/atlas-retail/atlas-ledger/internal/shared"
)

func TestBatchNegativeAmountFlipsSide(t *testing.T) {
	docID := uuid.New()
	b := newBatch(DocSaleRevision, docID, docID, "S-R1", time.Now().UTC())
	b.debit(1, -25, "refund")
	b.credit(5, -25, "refund")

	entries, err := b.seal(time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, 25.0, entries[0].Credit)
	require.Zero(t, entries[0].Debit)
	require.Equal(t, 25.0, entries[1].Debit)
	require.Zero(t, entries[1].Credit)
}

func TestBatchDropsNearZeroLegs(t *testing.T) {
	docID := uuid.New()
	b := newBatch(DocSale, docID, docID, "S-1", time.Now().UTC())
	b.debit(1, 0.001, "")
	b.credit(5, 0, "")

	entries, err := b.seal(time.Now().UTC())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestBatchSealRejectsUnbalanced(t *testing.T) {
	docID := uuid.New()
	b := newBatch(DocSale, docID, docID, "S-2", time.Now().UTC())
	b.debit(1, 100, "")
	b.credit(5, 90, "")

	_, err := b.seal(time.Now().UTC())
	var invariant *shared.InvariantViolation
	require.ErrorAs(t, err, &invariant)
}

func TestBatchSealStampsTimestampAndRounds(t *testing.T) {
	docID := uuid.New()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	b := newBatch(DocSale, docID, docID, "S-3", now)
	b.debit(1, 10.004999, "")
	b.credit(5, 10.001, "")

	entries, err := b.seal(now)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.Equal(t, now, e.Timestamp)
		require.True(t, e.IsEffective)
	}
	require.Equal(t, 10.0, entries[0].Debit)
	require.Equal(t, 10.0, entries[1].Credit)
}
