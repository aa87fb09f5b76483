package stock

import (
	"context"
	"math"
	"time"

	"github.com/atlas-retail/atlas-ledger/internal/shared"
)

// qtyEpsilon absorbs float residue in quantity sums.
const qtyEpsilon = 1e-9

// Check rejects any batch of deltas whose net effect would drive an
// (item, location) on-hand balance negative. Deltas are grouped and
// summed first, so a batch that both reduces item A and increases item
// B is validated as one unit. Must run inside the same transaction
// that appends the entries.
func Check(ctx context.Context, tx TxRepository, deltas []Delta, asOf *time.Time) error {
	if len(deltas) == 0 {
		return nil
	}
	grouped := make(map[OnHandKey]float64, len(deltas))
	outlets := make(map[OnHandKey]string, len(deltas))
	keys := make([]OnHandKey, 0, len(deltas))
	for _, d := range deltas {
		key := OnHandKey{ItemID: d.ItemID, LocationType: d.LocationType, LocationID: d.LocationID}
		if _, ok := grouped[key]; !ok {
			keys = append(keys, key)
		}
		grouped[key] += d.Qty
		if d.Outlet != "" {
			outlets[key] = d.Outlet
		}
	}
	onHand, err := tx.OnHandBulk(ctx, keys, asOf)
	if err != nil {
		return err
	}
	for _, key := range keys {
		delta := grouped[key]
		available := onHand[key]
		if available+delta < -qtyEpsilon {
			return &shared.InsufficientStockError{
				ItemID:       key.ItemID,
				LocationType: string(key.LocationType),
				LocationID:   key.LocationID,
				Outlet:       outlets[key],
				Requested:    math.Abs(delta),
				Available:    available,
			}
		}
	}
	return nil
}

// Apply runs the guard and appends the entries as one step inside the
// caller's transaction.
func Apply(ctx context.Context, tx TxRepository, entries []Entry) error {
	deltas := make([]Delta, 0, len(entries))
	for _, e := range entries {
		deltas = append(deltas, Delta{
			ItemID:       e.ItemID,
			LocationType: e.LocationType,
			LocationID:   e.LocationID,
			Qty:          e.Qty,
		})
	}
	if err := Check(ctx, tx, deltas, nil); err != nil {
		return err
	}
	return tx.AppendEntries(ctx, entries)
}
