package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/atlas-retail/atlas-ledger/internal/coa"
	"github.com/atlas-retail/atlas-ledger/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AccountResolver resolves system account roles to account ids.
type AccountResolver interface {
	AccountID(ctx context.Context, role coa.Role, outletID *int64) (int64, error)
}

// AuditPort records posting events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service converts finalized business documents into balanced GL
// batches and manages the revision/void protocol. Corrections never
// rewrite history: a revision posts deltas, a void posts a reversal
// batch and flips the chain non-effective.
type Service struct {
	repo  RepositoryPort
	roles AccountResolver
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the posting engine.
func NewService(repo RepositoryPort, roles AccountResolver, audit AuditPort) *Service {
	return &Service{repo: repo, roles: roles, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// PostSale posts a sale in its own transaction.
func (s *Service) PostSale(ctx context.Context, doc SaleDocument) ([]Entry, error) {
	var entries []Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entries, err = s.PostSaleTx(ctx, tx, doc)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "ledger.post_sale", doc.DocID.String(), len(entries))
	return entries, nil
}

// PostSaleTx posts a sale inside the caller's unit of work. The caller
// decides whether the transaction is shared or fresh.
func (s *Service) PostSaleTx(ctx context.Context, tx TxRepository, doc SaleDocument) ([]Entry, error) {
	paid := doc.CashAmount + doc.CardAmount + doc.CreditAmount
	if !shared.Balanced(paid, doc.Total) {
		return nil, shared.Validationf("sale %s: tenders %.2f do not match total %.2f", doc.DocNo, paid, doc.Total)
	}
	if !shared.Balanced(doc.Subtotal+doc.TaxTotal, doc.Total) {
		return nil, shared.Validationf("sale %s: subtotal %.2f plus tax %.2f does not match total %.2f", doc.DocNo, doc.Subtotal, doc.TaxTotal, doc.Total)
	}

	outlet := &doc.OutletID
	till, err := s.roles.AccountID(ctx, coa.RoleTill, outlet)
	if err != nil {
		return nil, err
	}
	revenue, err := s.roles.AccountID(ctx, coa.RoleSalesRevenue, outlet)
	if err != nil {
		return nil, err
	}
	b := newBatch(DocSale, doc.DocID, doc.ChainID, doc.DocNo, s.effectiveDate(doc.EffectiveDate))
	b.debit(till, doc.CashAmount, doc.Memo)
	if !shared.NearlyZero(doc.CardAmount) {
		card, err := s.roles.AccountID(ctx, coa.RoleCardClearing, outlet)
		if err != nil {
			return nil, err
		}
		b.debit(card, doc.CardAmount, doc.Memo)
	}
	if !shared.NearlyZero(doc.CreditAmount) {
		ar, err := s.roles.AccountID(ctx, coa.RoleAccountsReceivable, outlet)
		if err != nil {
			return nil, err
		}
		b.debit(ar, doc.CreditAmount, doc.Memo)
	}
	b.credit(revenue, doc.Subtotal, doc.Memo)
	if !shared.NearlyZero(doc.TaxTotal) {
		tax, err := s.roles.AccountID(ctx, coa.RoleSalesTax, outlet)
		if err != nil {
			return nil, err
		}
		b.credit(tax, doc.TaxTotal, doc.Memo)
	}

	// COGS from the stock entries tied to this document; sale entries
	// carry negative quantities so the cost is the negated sum.
	soldCost, err := tx.SumStockCost(ctx, string(DocSale), doc.DocID)
	if err != nil {
		return nil, err
	}
	if cost := -soldCost; !shared.NearlyZero(cost) {
		if err := s.appendCostLegs(ctx, b, outlet, cost, doc.Memo); err != nil {
			return nil, err
		}
	}
	return s.post(ctx, tx, b)
}

// PostPurchase posts a purchase receipt in its own transaction.
func (s *Service) PostPurchase(ctx context.Context, doc PurchaseDocument) ([]Entry, error) {
	var entries []Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entries, err = s.PostPurchaseTx(ctx, tx, doc)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "ledger.post_purchase", doc.DocID.String(), len(entries))
	return entries, nil
}

// PostPurchaseTx posts a purchase inside the caller's unit of work.
func (s *Service) PostPurchaseTx(ctx context.Context, tx TxRepository, doc PurchaseDocument) ([]Entry, error) {
	paid := doc.CashPaid + doc.BankPaid + doc.CreditAmount
	if !shared.Balanced(paid, doc.Total) {
		return nil, shared.Validationf("purchase %s: settlements %.2f do not match total %.2f", doc.DocNo, paid, doc.Total)
	}
	if !shared.Balanced(doc.Subtotal+doc.TaxTotal, doc.Total) {
		return nil, shared.Validationf("purchase %s: subtotal %.2f plus tax %.2f does not match total %.2f", doc.DocNo, doc.Subtotal, doc.TaxTotal, doc.Total)
	}

	outlet := &doc.OutletID
	inventory, err := s.roles.AccountID(ctx, coa.RoleInventory, outlet)
	if err != nil {
		return nil, err
	}
	b := newBatch(DocPurchase, doc.DocID, doc.ChainID, doc.DocNo, s.effectiveDate(doc.EffectiveDate))
	b.debit(inventory, doc.Subtotal, doc.Memo)
	if !shared.NearlyZero(doc.TaxTotal) {
		tax, err := s.roles.AccountID(ctx, coa.RoleSalesTax, outlet)
		if err != nil {
			return nil, err
		}
		b.debit(tax, doc.TaxTotal, doc.Memo)
	}
	if !shared.NearlyZero(doc.CashPaid) {
		cash, err := s.roles.AccountID(ctx, coa.RoleCashInHand, outlet)
		if err != nil {
			return nil, err
		}
		b.credit(cash, doc.CashPaid, doc.Memo)
	}
	if !shared.NearlyZero(doc.BankPaid) {
		bank, err := s.roles.AccountID(ctx, coa.RolePurchaseBank, outlet)
		if err != nil {
			return nil, err
		}
		b.credit(bank, doc.BankPaid, doc.Memo)
	}
	if !shared.NearlyZero(doc.CreditAmount) {
		ap, err := s.roles.AccountID(ctx, coa.RoleAccountsPayable, outlet)
		if err != nil {
			return nil, err
		}
		b.credit(ap, doc.CreditAmount, doc.Memo)
	}
	return s.post(ctx, tx, b)
}

// PostSaleReturn posts the mirror image of a sale, computed from the
// return's own totals and stock entries.
func (s *Service) PostSaleReturn(ctx context.Context, doc ReturnDocument) ([]Entry, error) {
	var entries []Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entries, err = s.PostSaleReturnTx(ctx, tx, doc)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "ledger.post_sale_return", doc.DocID.String(), len(entries))
	return entries, nil
}

// PostSaleReturnTx posts a sale return inside the caller's unit of work.
func (s *Service) PostSaleReturnTx(ctx context.Context, tx TxRepository, doc ReturnDocument) ([]Entry, error) {
	refunded := doc.CashAmount + doc.CardAmount + doc.CreditAmount
	if !shared.Balanced(refunded, doc.Total) {
		return nil, shared.Validationf("sale return %s: refunds %.2f do not match total %.2f", doc.DocNo, refunded, doc.Total)
	}

	outlet := &doc.OutletID
	till, err := s.roles.AccountID(ctx, coa.RoleTill, outlet)
	if err != nil {
		return nil, err
	}
	revenue, err := s.roles.AccountID(ctx, coa.RoleSalesRevenue, outlet)
	if err != nil {
		return nil, err
	}
	b := newBatch(DocSaleReturn, doc.DocID, doc.ChainID, doc.DocNo, s.effectiveDate(doc.EffectiveDate))
	b.debit(revenue, doc.Subtotal, doc.Memo)
	if !shared.NearlyZero(doc.TaxTotal) {
		tax, err := s.roles.AccountID(ctx, coa.RoleSalesTax, outlet)
		if err != nil {
			return nil, err
		}
		b.debit(tax, doc.TaxTotal, doc.Memo)
	}
	b.credit(till, doc.CashAmount, doc.Memo)
	if !shared.NearlyZero(doc.CardAmount) {
		card, err := s.roles.AccountID(ctx, coa.RoleCardClearing, outlet)
		if err != nil {
			return nil, err
		}
		b.credit(card, doc.CardAmount, doc.Memo)
	}
	if !shared.NearlyZero(doc.CreditAmount) {
		ar, err := s.roles.AccountID(ctx, coa.RoleAccountsReceivable, outlet)
		if err != nil {
			return nil, err
		}
		b.credit(ar, doc.CreditAmount, doc.Memo)
	}

	// Returned goods come back at their recorded cost: positive stock
	// quantities, inventory up, COGS down.
	returnedCost, err := tx.SumStockCost(ctx, string(DocSaleReturn), doc.DocID)
	if err != nil {
		return nil, err
	}
	if !shared.NearlyZero(returnedCost) {
		if err := s.appendCostLegs(ctx, b, outlet, -returnedCost, doc.Memo); err != nil {
			return nil, err
		}
	}
	return s.post(ctx, tx, b)
}

// PostPurchaseReturn posts the mirror image of a purchase.
func (s *Service) PostPurchaseReturn(ctx context.Context, doc ReturnDocument) ([]Entry, error) {
	var entries []Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entries, err = s.PostPurchaseReturnTx(ctx, tx, doc)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "ledger.post_purchase_return", doc.DocID.String(), len(entries))
	return entries, nil
}

// PostPurchaseReturnTx posts a purchase return inside the caller's
// unit of work.
func (s *Service) PostPurchaseReturnTx(ctx context.Context, tx TxRepository, doc ReturnDocument) ([]Entry, error) {
	recovered := doc.CashAmount + doc.CardAmount + doc.CreditAmount
	if !shared.Balanced(recovered, doc.Total) {
		return nil, shared.Validationf("purchase return %s: settlements %.2f do not match total %.2f", doc.DocNo, recovered, doc.Total)
	}

	outlet := &doc.OutletID
	inventory, err := s.roles.AccountID(ctx, coa.RoleInventory, outlet)
	if err != nil {
		return nil, err
	}
	b := newBatch(DocPurchaseReturn, doc.DocID, doc.ChainID, doc.DocNo, s.effectiveDate(doc.EffectiveDate))
	if !shared.NearlyZero(doc.CashAmount) {
		cash, err := s.roles.AccountID(ctx, coa.RoleCashInHand, outlet)
		if err != nil {
			return nil, err
		}
		b.debit(cash, doc.CashAmount, doc.Memo)
	}
	if !shared.NearlyZero(doc.CardAmount) {
		bank, err := s.roles.AccountID(ctx, coa.RolePurchaseBank, outlet)
		if err != nil {
			return nil, err
		}
		b.debit(bank, doc.CardAmount, doc.Memo)
	}
	if !shared.NearlyZero(doc.CreditAmount) {
		ap, err := s.roles.AccountID(ctx, coa.RoleAccountsPayable, outlet)
		if err != nil {
			return nil, err
		}
		b.debit(ap, doc.CreditAmount, doc.Memo)
	}
	b.credit(inventory, doc.Subtotal, doc.Memo)
	if !shared.NearlyZero(doc.TaxTotal) {
		tax, err := s.roles.AccountID(ctx, coa.RoleSalesTax, outlet)
		if err != nil {
			return nil, err
		}
		b.credit(tax, doc.TaxTotal, doc.Memo)
	}
	return s.post(ctx, tx, b)
}

// PostRevision posts only the difference between a document's new and
// old totals. A delta within tolerance posts nothing at all.
func (s *Service) PostRevision(ctx context.Context, rev RevisionInput) ([]Entry, error) {
	var entries []Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entries, err = s.PostRevisionTx(ctx, tx, rev)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		s.record(ctx, "ledger.post_revision", rev.DocID.String(), len(entries))
	}
	return entries, nil
}

// PostRevisionTx posts a revision inside the caller's unit of work.
func (s *Service) PostRevisionTx(ctx context.Context, tx TxRepository, rev RevisionInput) ([]Entry, error) {
	if rev.DocType != DocSaleRevision && rev.DocType != DocPurchaseRevision {
		return nil, shared.Validationf("revision doc type %s is not supported", rev.DocType)
	}
	costDelta, err := tx.SumStockCost(ctx, string(rev.DocType), rev.DocID)
	if err != nil {
		return nil, err
	}
	net := rev.DeltaSubtotal + rev.DeltaTax
	if shared.NearlyZero(net) && shared.NearlyZero(costDelta) {
		return nil, nil
	}

	outlet := &rev.OutletID
	b := newBatch(rev.DocType, rev.DocID, rev.ChainID, rev.DocNo, s.effectiveDate(rev.EffectiveDate))
	if rev.DocType == DocSaleRevision {
		till, err := s.roles.AccountID(ctx, coa.RoleTill, outlet)
		if err != nil {
			return nil, err
		}
		revenue, err := s.roles.AccountID(ctx, coa.RoleSalesRevenue, outlet)
		if err != nil {
			return nil, err
		}
		// Signed legs: a negative delta refunds cash and reduces revenue.
		b.debit(till, net, rev.Memo)
		b.credit(revenue, rev.DeltaSubtotal, rev.Memo)
		if !shared.NearlyZero(rev.DeltaTax) {
			tax, err := s.roles.AccountID(ctx, coa.RoleSalesTax, outlet)
			if err != nil {
				return nil, err
			}
			b.credit(tax, rev.DeltaTax, rev.Memo)
		}
		if cost := -costDelta; !shared.NearlyZero(cost) {
			if err := s.appendCostLegs(ctx, b, outlet, cost, rev.Memo); err != nil {
				return nil, err
			}
		}
	} else {
		inventory, err := s.roles.AccountID(ctx, coa.RoleInventory, outlet)
		if err != nil {
			return nil, err
		}
		cash, err := s.roles.AccountID(ctx, coa.RoleCashInHand, outlet)
		if err != nil {
			return nil, err
		}
		b.debit(inventory, rev.DeltaSubtotal, rev.Memo)
		if !shared.NearlyZero(rev.DeltaTax) {
			tax, err := s.roles.AccountID(ctx, coa.RoleSalesTax, outlet)
			if err != nil {
				return nil, err
			}
			b.debit(tax, rev.DeltaTax, rev.Memo)
		}
		b.credit(cash, net, rev.Memo)
	}
	return s.post(ctx, tx, b)
}

// appendCostLegs books cost of goods movement: positive cost debits
// COGS and credits Inventory, negative reverses both.
func (s *Service) appendCostLegs(ctx context.Context, b *batch, outlet *int64, cost float64, memo string) error {
	cogs, err := s.roles.AccountID(ctx, coa.RoleCOGS, outlet)
	if err != nil {
		return err
	}
	inventory, err := s.roles.AccountID(ctx, coa.RoleInventory, outlet)
	if err != nil {
		return err
	}
	b.debit(cogs, cost, memo)
	b.credit(inventory, cost, memo)
	return nil
}

// post seals the batch and writes it. The document link enforces one
// batch per document version.
func (s *Service) post(ctx context.Context, tx TxRepository, b *batch) ([]Entry, error) {
	entries, err := b.seal(s.now().UTC())
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	if err := tx.LinkDocument(ctx, b.docType, b.docID); err != nil {
		return nil, err
	}
	if err := tx.InsertEntries(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Service) effectiveDate(d time.Time) time.Time {
	if d.IsZero() {
		return s.now().UTC()
	}
	return d
}

func (s *Service) record(ctx context.Context, action, docID string, legs int) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "gl_batch",
		EntityID: docID,
		Meta:     map[string]any{"legs": fmt.Sprintf("%d", legs)},
		At:       s.now(),
	})
}
