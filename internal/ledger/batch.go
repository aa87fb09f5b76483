package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/atlas-retail/atlas-ledger/internal/shared"
)

// batch accumulates the legs of one posting for one document version.
// Legs are kept in append order so the stored (effective_date, id)
// ordering is deterministic. A leg within tolerance of zero is dropped
// rather than posted as 0/0; a negative amount posts on the opposite
// side, which lets delta postings use signed arithmetic directly.
type batch struct {
	docType       DocumentType
	docID         uuid.UUID
	chainID       uuid.UUID
	docNo         string
	effectiveDate time.Time
	entries       []Entry
}

func newBatch(docType DocumentType, docID, chainID uuid.UUID, docNo string, effectiveDate time.Time) *batch {
	return &batch{
		docType:       docType,
		docID:         docID,
		chainID:       chainID,
		docNo:         docNo,
		effectiveDate: effectiveDate,
	}
}

func (b *batch) debit(accountID int64, amount float64, memo string) {
	if shared.NearlyZero(amount) {
		return
	}
	if amount < 0 {
		b.credit(accountID, -amount, memo)
		return
	}
	b.append(accountID, amount, 0, memo)
}

func (b *batch) credit(accountID int64, amount float64, memo string) {
	if shared.NearlyZero(amount) {
		return
	}
	if amount < 0 {
		b.debit(accountID, -amount, memo)
		return
	}
	b.append(accountID, 0, amount, memo)
}

func (b *batch) append(accountID int64, debit, credit float64, memo string) {
	b.entries = append(b.entries, Entry{
		EffectiveDate: b.effectiveDate,
		AccountID:     accountID,
		Debit:         shared.Round2(debit),
		Credit:        shared.Round2(credit),
		DocType:       b.docType,
		DocID:         b.docID,
		ChainID:       b.chainID,
		IsEffective:   true,
		Memo:          memo,
		DocNo:         b.docNo,
	})
}

func (b *batch) empty() bool { return len(b.entries) == 0 }

// seal verifies the balance invariant and hands back the entries. An
// unbalanced batch is a programming defect, never a business error,
// and must abort the transaction.
func (b *batch) seal(now time.Time) ([]Entry, error) {
	if b.empty() {
		return nil, nil
	}
	var debit, credit float64
	for i := range b.entries {
		b.entries[i].Timestamp = now
		debit += b.entries[i].Debit
		credit += b.entries[i].Credit
	}
	if !shared.Balanced(debit, credit) {
		return nil, shared.Invariantf("ledger: %s batch for document %s is unbalanced: debit %.2f credit %.2f",
			b.docType, b.docID, debit, credit)
	}
	return b.entries, nil
}
