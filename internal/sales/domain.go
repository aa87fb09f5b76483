package sales

import (
	"time"

	"github.com/google/uuid"

	"github.com/atlas-retail/atlas-ledger/internal/stock"
)

// Line is one sold item at its captured price and cost.
type Line struct {
	ItemID    int64   `json:"itemId" validate:"required,gt=0"`
	Qty       float64 `json:"qty" validate:"required,gt=0"`
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
	UnitCost  float64 `json:"unitCost" validate:"gte=0"`
}

// SaleInput is a finalized POS sale ready for posting.
type SaleInput struct {
	IdempotencyKey string  `json:"idempotencyKey" validate:"required"`
	DocNo          string  `json:"docNo" validate:"required"`
	OutletID       int64   `json:"outletId" validate:"required,gt=0"`
	Lines          []Line  `json:"lines" validate:"required,min=1,dive"`
	TaxTotal       float64 `json:"taxTotal" validate:"gte=0"`
	CashAmount     float64 `json:"cashAmount" validate:"gte=0"`
	CardAmount     float64 `json:"cardAmount" validate:"gte=0"`
	CreditAmount   float64 `json:"creditAmount" validate:"gte=0"`
	EffectiveDate  time.Time
	Memo           string `json:"memo"`
}

// ReturnInput reverses part or all of a finalized sale.
type ReturnInput struct {
	IdempotencyKey string  `json:"idempotencyKey" validate:"required"`
	DocNo          string  `json:"docNo" validate:"required"`
	OutletID       int64   `json:"outletId" validate:"required,gt=0"`
	OriginalDocID  uuid.UUID
	Lines          []Line  `json:"lines" validate:"required,min=1,dive"`
	TaxTotal       float64 `json:"taxTotal" validate:"gte=0"`
	CashAmount     float64 `json:"cashAmount" validate:"gte=0"`
	CardAmount     float64 `json:"cardAmount" validate:"gte=0"`
	CreditAmount   float64 `json:"creditAmount" validate:"gte=0"`
	EffectiveDate  time.Time
	Memo           string `json:"memo"`
}

// RevisionInput corrects a finalized sale with deltas against the
// previously posted version.
type RevisionInput struct {
	IdempotencyKey string    `json:"idempotencyKey" validate:"required"`
	DocNo          string    `json:"docNo" validate:"required"`
	OutletID       int64     `json:"outletId" validate:"required,gt=0"`
	ChainID        uuid.UUID `json:"chainId" validate:"required"`
	DeltaSubtotal  float64   `json:"deltaSubtotal"`
	DeltaTax       float64   `json:"deltaTax"`
	// StockDeltas are signed quantity corrections, negative for
	// additionally sold units.
	StockDeltas   []stock.Entry
	EffectiveDate time.Time
	Memo          string `json:"memo"`
}

// Receipt reports what a finalize call produced.
type Receipt struct {
	DocID    uuid.UUID `json:"docId"`
	ChainID  uuid.UUID `json:"chainId"`
	DocNo    string    `json:"docNo"`
	Subtotal float64   `json:"subtotal"`
	TaxTotal float64   `json:"taxTotal"`
	Total    float64   `json:"total"`
	GLLegs   int       `json:"glLegs"`
}
