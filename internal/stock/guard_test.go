package stock

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/atlas-retail/atlas-ledger/internal/shared"
)

type memoryStock struct {
	onHand  map[OnHandKey]float64
	entries []Entry
}

func newMemoryStock() *memoryStock {
	return &memoryStock{onHand: make(map[OnHandKey]float64)}
}

func (m *memoryStock) OnHandBulk(ctx context.Context, keys []OnHandKey, asOf *time.Time) (map[OnHandKey]float64, error) {
	out := make(map[OnHandKey]float64, len(keys))
	for _, key := range keys {
		out[key] = m.onHand[key]
	}
	return out, nil
}

func (m *memoryStock) AppendEntries(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		m.entries = append(m.entries, e)
		m.onHand[OnHandKey{ItemID: e.ItemID, LocationType: e.LocationType, LocationID: e.LocationID}] += e.Qty
	}
	return nil
}

func (m *memoryStock) ListByRef(ctx context.Context, refType string, refID uuid.UUID) ([]Entry, error) {
	var out []Entry
	for _, e := range m.entries {
		if e.RefType == refType && e.RefID == refID {
			out = append(out, e)
		}
	}
	return out, nil
}

func outletKey(itemID, locationID int64) OnHandKey {
	return OnHandKey{ItemID: itemID, LocationType: LocationOutlet, LocationID: locationID}
}

func TestCheckRejectsOverdraw(t *testing.T) {
	repo := newMemoryStock()
	repo.onHand[outletKey(1, 7)] = 5

	err := Check(context.Background(), repo, []Delta{
		{ItemID: 1, LocationType: LocationOutlet, LocationID: 7, Qty: -6, Outlet: "MAIN"},
	}, nil)

	var insufficient *shared.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, int64(1), insufficient.ItemID)
	require.Equal(t, "MAIN", insufficient.Outlet)
	require.Equal(t, 6.0, insufficient.Requested)
	require.Equal(t, 5.0, insufficient.Available)
}

func TestCheckAllowsExactDrawdown(t *testing.T) {
	repo := newMemoryStock()
	repo.onHand[outletKey(1, 7)] = 5

	err := Check(context.Background(), repo, []Delta{
		{ItemID: 1, LocationType: LocationOutlet, LocationID: 7, Qty: -5},
	}, nil)
	require.NoError(t, err)
}

func TestCheckNetsDeltasPerKey(t *testing.T) {
	repo := newMemoryStock()
	repo.onHand[outletKey(1, 7)] = 2

	// -3 and +2 net to -1 against on-hand 2: allowed.
	err := Check(context.Background(), repo, []Delta{
		{ItemID: 1, LocationType: LocationOutlet, LocationID: 7, Qty: -3},
		{ItemID: 1, LocationType: LocationOutlet, LocationID: 7, Qty: 2},
	}, nil)
	require.NoError(t, err)

	// Same gross lines without the inbound leg fail.
	err = Check(context.Background(), repo, []Delta{
		{ItemID: 1, LocationType: LocationOutlet, LocationID: 7, Qty: -3},
	}, nil)
	var insufficient *shared.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
}

func TestCheckSeparatesLocations(t *testing.T) {
	repo := newMemoryStock()
	repo.onHand[outletKey(1, 7)] = 10
	repo.onHand[OnHandKey{ItemID: 1, LocationType: LocationWarehouse, LocationID: 7}] = 0

	// Plenty at the outlet does not cover a warehouse draw.
	err := Check(context.Background(), repo, []Delta{
		{ItemID: 1, LocationType: LocationWarehouse, LocationID: 7, Qty: -1},
	}, nil)
	var insufficient *shared.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, string(LocationWarehouse), insufficient.LocationType)
}

func TestCheckEmptyBatch(t *testing.T) {
	require.NoError(t, Check(context.Background(), newMemoryStock(), nil, nil))
}

func TestApplyGuardsThenAppends(t *testing.T) {
	repo := newMemoryStock()
	repo.onHand[outletKey(1, 7)] = 10
	refID := uuid.New()

	err := Apply(context.Background(), repo, []Entry{
		{ItemID: 1, LocationType: LocationOutlet, LocationID: 7, Qty: -4, UnitCost: 20, RefType: "Sale", RefID: refID},
	})
	require.NoError(t, err)
	require.Len(t, repo.entries, 1)
	require.Equal(t, 6.0, repo.onHand[outletKey(1, 7)])
}

func TestApplyRejectedBatchAppendsNothing(t *testing.T) {
	repo := newMemoryStock()
	repo.onHand[outletKey(1, 7)] = 3
	refID := uuid.New()

	err := Apply(context.Background(), repo, []Entry{
		{ItemID: 1, LocationType: LocationOutlet, LocationID: 7, Qty: -2, RefType: "Sale", RefID: refID},
		{ItemID: 2, LocationType: LocationOutlet, LocationID: 7, Qty: -1, RefType: "Sale", RefID: refID},
	})
	var insufficient *shared.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, int64(2), insufficient.ItemID)
	require.Empty(t, repo.entries, "a failed guard must block the whole batch")
}

func TestReverseSwapsQuantities(t *testing.T) {
	refID := uuid.New()
	voidID := uuid.New()
	original := []Entry{
		{ItemID: 1, LocationType: LocationOutlet, LocationID: 7, Qty: -4, UnitCost: 20, RefType: "Sale", RefID: refID},
		{ItemID: 2, LocationType: LocationOutlet, LocationID: 7, Qty: -1, UnitCost: 5, RefType: "Sale", RefID: refID},
	}

	reversed := Reverse(original, voidID)
	require.Len(t, reversed, 2)
	require.Equal(t, 4.0, reversed[0].Qty)
	require.Equal(t, 1.0, reversed[1].Qty)
	for _, e := range reversed {
		require.Equal(t, "SaleVoid", e.RefType)
		require.Equal(t, voidID, e.RefID)
	}
}
