package ledger

import (
	"time"

	"github.com/google/uuid"
)

// DocumentType tags every GL entry with the business document kind
// that produced it.
type DocumentType string

const (
	DocSale             DocumentType = "Sale"
	DocSaleReturn       DocumentType = "SaleReturn"
	DocSaleRevision     DocumentType = "SaleRevision"
	DocPurchase         DocumentType = "Purchase"
	DocPurchaseReturn   DocumentType = "PurchaseReturn"
	DocPurchaseRevision DocumentType = "PurchaseRevision"
	DocJournalVoucher   DocumentType = "JournalVoucher"
	DocCashPayment      DocumentType = "CashPayment"
	DocCashReceipt      DocumentType = "CashReceipt"
	DocVoucherVoid      DocumentType = "VoucherVoid"
	DocVoucherRevision  DocumentType = "VoucherRevision"
	DocPayrollAccrual   DocumentType = "PayrollAccrual"
	DocPayrollPayment   DocumentType = "PayrollPayment"
	DocTillClose        DocumentType = "TillClose"
)

// Entry is one debit-or-credit leg of a posting. Entries are
// append-only: a correction is always a new set of entries, never an
// update.
type Entry struct {
	ID            int64
	Timestamp     time.Time
	EffectiveDate time.Time
	AccountID     int64
	Debit         float64
	Credit        float64
	DocType       DocumentType
	DocID         uuid.UUID
	ChainID       uuid.UUID
	IsEffective   bool
	Memo          string
	DocNo         string
}

// ChainState is the derived revision state of one document chain.
type ChainState string

const (
	// ChainActive: a single posted version, entries effective.
	ChainActive ChainState = "ACTIVE"
	// ChainSuperseded: more than one version posted; the union of
	// effective entries is current truth.
	ChainSuperseded ChainState = "SUPERSEDED"
	// ChainVoided: a reversal batch was posted and the whole chain
	// flipped non-effective.
	ChainVoided ChainState = "VOIDED"
)

// VoucherType enumerates the user-entered voucher kinds.
type VoucherType string

const (
	VoucherJournal VoucherType = "JOURNAL"
	VoucherDebit   VoucherType = "DEBIT"
	VoucherCredit  VoucherType = "CREDIT"
)

// SaleDocument carries the financial fields of a finalized sale.
type SaleDocument struct {
	DocID         uuid.UUID
	ChainID       uuid.UUID
	DocNo         string
	OutletID      int64
	EffectiveDate time.Time
	CashAmount    float64
	CardAmount    float64
	CreditAmount  float64
	Subtotal      float64
	TaxTotal      float64
	Total         float64
	Memo          string
}

// PurchaseDocument carries the financial fields of a finalized
// purchase receipt.
type PurchaseDocument struct {
	DocID         uuid.UUID
	ChainID       uuid.UUID
	DocNo         string
	OutletID      int64
	EffectiveDate time.Time
	CashPaid      float64
	BankPaid      float64
	CreditAmount  float64
	Subtotal      float64
	TaxTotal      float64
	Total         float64
	Memo          string
}

// ReturnDocument carries a sale or purchase return. The posting is
// computed from the return's own totals and its own stock entries, not
// by negating the original batch, so a partial return still balances.
type ReturnDocument struct {
	DocID         uuid.UUID
	ChainID       uuid.UUID
	DocNo         string
	OutletID      int64
	EffectiveDate time.Time
	CashAmount    float64
	CardAmount    float64
	CreditAmount  float64
	Subtotal      float64
	TaxTotal      float64
	Total         float64
	Memo          string
}

// RevisionInput describes an amendment's deltas (new minus old).
type RevisionInput struct {
	DocType       DocumentType
	DocID         uuid.UUID
	ChainID       uuid.UUID
	DocNo         string
	OutletID      int64
	EffectiveDate time.Time
	DeltaSubtotal float64
	DeltaTax      float64
	Memo          string
}

// VoucherLine is one user-entered voucher leg.
type VoucherLine struct {
	AccountID int64
	Debit     float64
	Credit    float64
	Memo      string
}

// Voucher is a journal, debit (cash payment), or credit (cash receipt)
// voucher.
type Voucher struct {
	DocID         uuid.UUID
	ChainID       uuid.UUID
	DocNo         string
	OutletID      *int64
	Type          VoucherType
	EffectiveDate time.Time
	Lines         []VoucherLine
	Memo          string
}

// PayrollRun carries one payroll accrual or payment amount.
type PayrollRun struct {
	DocID         uuid.UUID
	ChainID       uuid.UUID
	DocNo         string
	OutletID      *int64
	EffectiveDate time.Time
	Amount        float64
	Memo          string
}

// TillCloseDocument carries a till close declaration.
type TillCloseDocument struct {
	DocID         uuid.UUID
	ChainID       uuid.UUID
	DocNo         string
	OutletID      int64
	EffectiveDate time.Time
	DeclaredCash  float64
	SystemCash    float64
	Memo          string
}
