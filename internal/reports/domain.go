package reports

import "time"

// LedgerRow is one entry line in a ledger or cash-book view, carrying
// the running balance at that point.
type LedgerRow struct {
	EntryID       int64
	AccountID     int64
	EffectiveDate time.Time
	DocType       string
	DocNo         string
	Memo          string
	Debit         float64
	Credit        float64
	Running       float64
	IsVoided      bool
}

// AccountLedger reconstructs one account over a date range.
type AccountLedger struct {
	AccountID int64
	From      time.Time
	To        time.Time
	Opening   float64
	Rows      []LedgerRow
	Closing   float64
}

// CashScope selects which cash accounts a cash book merges.
type CashScope string

const (
	CashScopeHand CashScope = "HAND"
	CashScopeTill CashScope = "TILL"
	CashScopeBoth CashScope = "BOTH"
)

// CashBook merges cash movement across the resolved accounts of one
// outlet.
type CashBook struct {
	OutletID   int64
	Scope      CashScope
	AccountIDs []int64
	From       time.Time
	To         time.Time
	Opening    float64
	Rows       []LedgerRow
	Closing    float64
}
