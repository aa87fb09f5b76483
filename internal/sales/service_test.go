package sales

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/atlas-retail/atlas-ledger/internal/ledger"
	"github.com/atlas-retail/atlas-ledger/internal/stock"
)

func TestSaleMovementsNegateQuantities(t *testing.T) {
	docID := uuid.New()
	in := SaleInput{
		DocNo:    "S-0001",
		OutletID: 7,
		Memo:     "walk-in",
		Lines: []Line{
			{ItemID: 1, Qty: 2, UnitPrice: 50, UnitCost: 20},
			{ItemID: 2, Qty: 1, UnitPrice: 10, UnitCost: 4},
		},
	}

	movements := saleMovements(in, docID)
	require.Len(t, movements, 2)
	for i, m := range movements {
		require.Equal(t, in.Lines[i].ItemID, m.ItemID)
		require.Equal(t, -in.Lines[i].Qty, m.Qty)
		require.Equal(t, in.Lines[i].UnitCost, m.UnitCost)
		require.Equal(t, stock.LocationOutlet, m.LocationType)
		require.Equal(t, int64(7), m.LocationID)
		require.Equal(t, string(ledger.DocSale), m.RefType)
		require.Equal(t, docID, m.RefID)
	}
}

func TestReturnMovementsKeepPositiveQuantities(t *testing.T) {
	docID := uuid.New()
	in := ReturnInput{
		DocNo:    "SR-0001",
		OutletID: 7,
		Lines:    []Line{{ItemID: 1, Qty: 2, UnitPrice: 50, UnitCost: 20}},
	}

	movements := returnMovements(in, docID)
	require.Len(t, movements, 1)
	require.Equal(t, 2.0, movements[0].Qty)
	require.Equal(t, string(ledger.DocSaleReturn), movements[0].RefType)
}
