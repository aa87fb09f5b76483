package stock

import (
	"time"

	"github.com/google/uuid"
)

// LocationType distinguishes the two kinds of stock-holding locations.
type LocationType string

const (
	LocationOutlet    LocationType = "OUTLET"
	LocationWarehouse LocationType = "WAREHOUSE"
)

// Entry is one signed quantity movement of one item at one location.
// Entries are append-only; a void appends equal-and-opposite entries
// tagged with a "<RefType>Void" reference type.
type Entry struct {
	ID           int64
	ItemID       int64
	LocationType LocationType
	LocationID   int64
	Qty          float64
	UnitCost     float64
	RefType      string
	RefID        uuid.UUID
	StockDocID   *uuid.UUID
	Note         string
	CreatedAt    time.Time
}

// Delta is one proposed quantity change evaluated by the guard. Outlet
// is carried for error messages only; matching is strictly by
// (LocationType, LocationID).
type Delta struct {
	ItemID       int64
	LocationType LocationType
	LocationID   int64
	Qty          float64
	Outlet       string
}

// OnHandKey identifies one (item, location) balance.
type OnHandKey struct {
	ItemID       int64
	LocationType LocationType
	LocationID   int64
}

// VoidRefType tags the reversal entries appended by a void.
func VoidRefType(refType string) string {
	return refType + "Void"
}

// Reverse builds equal-and-opposite entries for a void, re-tagged and
// re-referenced to the voiding document.
func Reverse(entries []Entry, refID uuid.UUID) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Entry{
			ItemID:       e.ItemID,
			LocationType: e.LocationType,
			LocationID:   e.LocationID,
			Qty:          -e.Qty,
			UnitCost:     e.UnitCost,
			RefType:      VoidRefType(e.RefType),
			RefID:        refID,
			StockDocID:   e.StockDocID,
			Note:         e.Note,
		})
	}
	return out
}
