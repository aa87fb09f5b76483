package sales

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-retail/atlas-ledger/internal/ledger"
	"github.com/atlas-retail/atlas-ledger/internal/outbox"
	"github.com/atlas-retail/atlas-ledger/internal/platform/db"
	"github.com/atlas-retail/atlas-ledger/internal/shared"
	"github.com/atlas-retail/atlas-ledger/internal/stock"
)

// TopicSales is the outbox topic read-model syncers subscribe to.
const TopicSales = "sales"

// Service turns finalized POS documents into stock movement, GL
// postings, and outbox messages inside one transaction. If any step
// fails the whole document is rejected; there is no partial state.
type Service struct {
	pool   *pgxpool.Pool
	engine *ledger.Service
	idem   *shared.IdempotencyStore
	log    *slog.Logger
}

// NewService constructs the sales document service.
func NewService(pool *pgxpool.Pool, engine *ledger.Service, idem *shared.IdempotencyStore, log *slog.Logger) *Service {
	return &Service{pool: pool, engine: engine, idem: idem, log: log}
}

// FinalizeSale posts a completed sale: the stock guard and entry
// append, the GL batch, and the outbox message share one transaction.
func (s *Service) FinalizeSale(ctx context.Context, in SaleInput) (Receipt, error) {
	if err := s.idem.CheckAndInsert(ctx, in.IdempotencyKey, "sales"); err != nil {
		return Receipt{}, err
	}

	docID := uuid.New()
	doc := ledger.SaleDocument{
		DocID:         docID,
		ChainID:       docID,
		DocNo:         in.DocNo,
		OutletID:      in.OutletID,
		EffectiveDate: in.EffectiveDate,
		CashAmount:    in.CashAmount,
		CardAmount:    in.CardAmount,
		CreditAmount:  in.CreditAmount,
		TaxTotal:      in.TaxTotal,
		Memo:          in.Memo,
	}
	for _, l := range in.Lines {
		doc.Subtotal += l.Qty * l.UnitPrice
	}
	doc.Subtotal = shared.Round2(doc.Subtotal)
	doc.Total = shared.Round2(doc.Subtotal + in.TaxTotal)

	var receipt Receipt
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		movements := saleMovements(in, docID)
		if err := stock.Apply(ctx, stock.Bind(tx), movements); err != nil {
			return err
		}
		entries, err := s.engine.PostSaleTx(ctx, ledger.Bind(tx), doc)
		if err != nil {
			return err
		}
		receipt = Receipt{
			DocID:    docID,
			ChainID:  doc.ChainID,
			DocNo:    doc.DocNo,
			Subtotal: doc.Subtotal,
			TaxTotal: doc.TaxTotal,
			Total:    doc.Total,
			GLLegs:   len(entries),
		}
		return outbox.EnqueueUpsert(ctx, tx, TopicSales, docID.String(), receipt)
	})
	if err != nil {
		// The key guards a committed document only; release it so the
		// caller can retry.
		if delErr := s.idem.Delete(ctx, in.IdempotencyKey); delErr != nil {
			s.log.Warn("idempotency key release failed", "key", in.IdempotencyKey, "err", delErr)
		}
		return Receipt{}, err
	}
	s.log.Info("sale finalized", "docNo", in.DocNo, "outlet", in.OutletID, "total", receipt.Total, "legs", receipt.GLLegs)
	return receipt, nil
}

// FinalizeReturn posts a sale return: goods come back in, the GL
// mirror batch posts, and the outbox carries the updated document.
func (s *Service) FinalizeReturn(ctx context.Context, in ReturnInput) (Receipt, error) {
	if err := s.idem.CheckAndInsert(ctx, in.IdempotencyKey, "sales"); err != nil {
		return Receipt{}, err
	}

	docID := uuid.New()
	doc := ledger.ReturnDocument{
		DocID:         docID,
		ChainID:       docID,
		DocNo:         in.DocNo,
		OutletID:      in.OutletID,
		EffectiveDate: in.EffectiveDate,
		CashAmount:    in.CashAmount,
		CardAmount:    in.CardAmount,
		CreditAmount:  in.CreditAmount,
		TaxTotal:      in.TaxTotal,
		Memo:          in.Memo,
	}
	for _, l := range in.Lines {
		doc.Subtotal += l.Qty * l.UnitPrice
	}
	doc.Subtotal = shared.Round2(doc.Subtotal)
	doc.Total = shared.Round2(doc.Subtotal + in.TaxTotal)

	var receipt Receipt
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		movements := returnMovements(in, docID)
		if err := stock.Apply(ctx, stock.Bind(tx), movements); err != nil {
			return err
		}
		entries, err := s.engine.PostSaleReturnTx(ctx, ledger.Bind(tx), doc)
		if err != nil {
			return err
		}
		receipt = Receipt{
			DocID:    docID,
			ChainID:  doc.ChainID,
			DocNo:    doc.DocNo,
			Subtotal: doc.Subtotal,
			TaxTotal: doc.TaxTotal,
			Total:    doc.Total,
			GLLegs:   len(entries),
		}
		return outbox.EnqueueUpsert(ctx, tx, TopicSales, docID.String(), receipt)
	})
	if err != nil {
		if delErr := s.idem.Delete(ctx, in.IdempotencyKey); delErr != nil {
			s.log.Warn("idempotency key release failed", "key", in.IdempotencyKey, "err", delErr)
		}
		return Receipt{}, err
	}
	s.log.Info("sale return finalized", "docNo", in.DocNo, "outlet", in.OutletID, "total", receipt.Total)
	return receipt, nil
}

// ReviseSale posts only the difference against the previously posted
// version. A revision whose money and stock deltas are all within
// tolerance commits nothing.
func (s *Service) ReviseSale(ctx context.Context, in RevisionInput) (Receipt, error) {
	if err := s.idem.CheckAndInsert(ctx, in.IdempotencyKey, "sales"); err != nil {
		return Receipt{}, err
	}

	docID := uuid.New()
	rev := ledger.RevisionInput{
		DocType:       ledger.DocSaleRevision,
		DocID:         docID,
		ChainID:       in.ChainID,
		DocNo:         in.DocNo,
		OutletID:      in.OutletID,
		EffectiveDate: in.EffectiveDate,
		DeltaSubtotal: in.DeltaSubtotal,
		DeltaTax:      in.DeltaTax,
		Memo:          in.Memo,
	}

	var receipt Receipt
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if len(in.StockDeltas) > 0 {
			movements := make([]stock.Entry, 0, len(in.StockDeltas))
			for _, e := range in.StockDeltas {
				e.RefType = string(ledger.DocSaleRevision)
				e.RefID = docID
				movements = append(movements, e)
			}
			if err := stock.Apply(ctx, stock.Bind(tx), movements); err != nil {
				return err
			}
		}
		entries, err := s.engine.PostRevisionTx(ctx, ledger.Bind(tx), rev)
		if err != nil {
			return err
		}
		receipt = Receipt{
			DocID:    docID,
			ChainID:  in.ChainID,
			DocNo:    in.DocNo,
			Subtotal: in.DeltaSubtotal,
			TaxTotal: in.DeltaTax,
			Total:    shared.Round2(in.DeltaSubtotal + in.DeltaTax),
			GLLegs:   len(entries),
		}
		if len(entries) == 0 && len(in.StockDeltas) == 0 {
			return nil
		}
		return outbox.EnqueueUpsert(ctx, tx, TopicSales, in.ChainID.String(), receipt)
	})
	if err != nil {
		if delErr := s.idem.Delete(ctx, in.IdempotencyKey); delErr != nil {
			s.log.Warn("idempotency key release failed", "key", in.IdempotencyKey, "err", delErr)
		}
		return Receipt{}, err
	}
	s.log.Info("sale revised", "docNo", in.DocNo, "chain", in.ChainID, "legs", receipt.GLLegs)
	return receipt, nil
}

// saleMovements converts sale lines into negative stock quantities at
// the selling outlet.
func saleMovements(in SaleInput, docID uuid.UUID) []stock.Entry {
	out := make([]stock.Entry, 0, len(in.Lines))
	for _, l := range in.Lines {
		out = append(out, stock.Entry{
			ItemID:       l.ItemID,
			LocationType: stock.LocationOutlet,
			LocationID:   in.OutletID,
			Qty:          -l.Qty,
			UnitCost:     l.UnitCost,
			RefType:      string(ledger.DocSale),
			RefID:        docID,
			Note:         in.Memo,
		})
	}
	return out
}

// returnMovements brings goods back in at their recorded cost.
func returnMovements(in ReturnInput, docID uuid.UUID) []stock.Entry {
	out := make([]stock.Entry, 0, len(in.Lines))
	for _, l := range in.Lines {
		out = append(out, stock.Entry{
			ItemID:       l.ItemID,
			LocationType: stock.LocationOutlet,
			LocationID:   in.OutletID,
			Qty:          l.Qty,
			UnitCost:     l.UnitCost,
			RefType:      string(ledger.DocSaleReturn),
			RefID:        docID,
			Note:         in.Memo,
		})
	}
	return out
}
