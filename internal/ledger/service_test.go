package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/atlas-retail/atlas-ledger/internal/coa"
	"github.com/atlas-retail/atlas-ledger/internal/shared"
)

type stubRoles struct {
	ids map[coa.Role]int64
}

func (s *stubRoles) AccountID(ctx context.Context, role coa.Role, outletID *int64) (int64, error) {
	if id, ok := s.ids[role]; ok {
		return id, nil
	}
	return 0, shared.Configurationf("no account configured for role %s", role)
}

func allRoles() *stubRoles {
	return &stubRoles{ids: map[coa.Role]int64{
		coa.RoleTill:               1,
		coa.RoleCardClearing:       2,
		coa.RoleAccountsReceivable: 3,
		coa.RoleAccountsPayable:    4,
		coa.RoleSalesRevenue:       5,
		coa.RoleSalesTax:           6,
		coa.RoleCOGS:               7,
		coa.RoleInventory:          8,
		coa.RolePurchaseBank:       9,
		coa.RolePayrollExpense:     10,
		coa.RolePayrollPayable:     11,
		coa.RoleCashOverShort:      12,
		coa.RoleOtherIncome:        13,
		coa.RoleCashInHand:         14,
	}}
}

type memoryLedger struct {
	entries   []Entry
	nextID    int64
	links     map[string]bool
	stockCost map[string]float64
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		links:     make(map[string]bool),
		stockCost: make(map[string]float64),
	}
}

func (m *memoryLedger) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryLedger) setStockCost(refType string, refID uuid.UUID, sum float64) {
	m.stockCost[refType+refID.String()] = sum
}

func (m *memoryLedger) InsertEntries(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		m.nextID++
		e.ID = m.nextID
		m.entries = append(m.entries, e)
	}
	return nil
}

func (m *memoryLedger) LinkDocument(ctx context.Context, docType DocumentType, docID uuid.UUID) error {
	key := string(docType) + docID.String()
	if m.links[key] {
		return ErrDocumentAlreadyPosted
	}
	m.links[key] = true
	return nil
}

func (m *memoryLedger) ListChainEntries(ctx context.Context, chainID uuid.UUID) ([]Entry, error) {
	var out []Entry
	for _, e := range m.entries {
		if e.ChainID == chainID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EffectiveDate.Equal(out[j].EffectiveDate) {
			return out[i].EffectiveDate.Before(out[j].EffectiveDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryLedger) SetChainEffectiveness(ctx context.Context, chainID uuid.UUID, effective bool) error {
	for i := range m.entries {
		if m.entries[i].ChainID == chainID {
			m.entries[i].IsEffective = effective
		}
	}
	return nil
}

func (m *memoryLedger) SumStockCost(ctx context.Context, refType string, refID uuid.UUID) (float64, error) {
	return m.stockCost[refType+refID.String()], nil
}

func (m *memoryLedger) ChainState(ctx context.Context, chainID uuid.UUID) (ChainState, error) {
	var total, effective int
	versions := make(map[uuid.UUID]bool)
	for _, e := range m.entries {
		if e.ChainID != chainID {
			continue
		}
		total++
		if e.IsEffective {
			effective++
		}
		versions[e.DocID] = true
	}
	switch {
	case total == 0:
		return "", errors.New("no entries for chain")
	case effective == 0:
		return ChainVoided, nil
	case len(versions) > 1:
		return ChainSuperseded, nil
	default:
		return ChainActive, nil
	}
}

func sumSides(entries []Entry) (debit, credit float64) {
	for _, e := range entries {
		debit += e.Debit
		credit += e.Credit
	}
	return debit, credit
}

func legAmount(t *testing.T, entries []Entry, accountID int64) (debit, credit float64) {
	t.Helper()
	for _, e := range entries {
		if e.AccountID == accountID {
			debit += e.Debit
			credit += e.Credit
		}
	}
	return debit, credit
}

func newTestService(repo *memoryLedger) *Service {
	svc := NewService(repo, allRoles(), nil)
	svc.WithNow(func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) })
	return svc
}

func TestPostSaleCashScenario(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	docID := uuid.New()
	// Three units sold at cost 20 each; sale quantities are negative.
	repo.setStockCost(string(DocSale), docID, -60)

	entries, err := svc.PostSale(context.Background(), SaleDocument{
		DocID:      docID,
		ChainID:    docID,
		DocNo:      "S-0001",
		OutletID:   7,
		CashAmount: 110,
		Subtotal:   100,
		TaxTotal:   10,
		Total:      110,
		Memo:       "cash sale",
	})
	require.NoError(t, err)

	debit, credit := sumSides(entries)
	require.InDelta(t, debit, credit, shared.Tolerance)
	require.InDelta(t, 170.0, debit, shared.Tolerance)

	tillDr, _ := legAmount(t, entries, 1)
	require.InDelta(t, 110.0, tillDr, shared.Tolerance)
	_, revenueCr := legAmount(t, entries, 5)
	require.InDelta(t, 100.0, revenueCr, shared.Tolerance)
	_, taxCr := legAmount(t, entries, 6)
	require.InDelta(t, 10.0, taxCr, shared.Tolerance)
	cogsDr, _ := legAmount(t, entries, 7)
	require.InDelta(t, 60.0, cogsDr, shared.Tolerance)
	_, invCr := legAmount(t, entries, 8)
	require.InDelta(t, 60.0, invCr, shared.Tolerance)

	for _, e := range entries {
		require.True(t, e.IsEffective)
		require.Equal(t, DocSale, e.DocType)
		require.Equal(t, "S-0001", e.DocNo)
	}
}

func TestPostSaleMixedTenders(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	docID := uuid.New()

	entries, err := svc.PostSale(context.Background(), SaleDocument{
		DocID:        docID,
		ChainID:      docID,
		DocNo:        "S-0002",
		OutletID:     7,
		CashAmount:   50,
		CardAmount:   40,
		CreditAmount: 20,
		Subtotal:     110,
		Total:        110,
	})
	require.NoError(t, err)

	cardDr, _ := legAmount(t, entries, 2)
	require.InDelta(t, 40.0, cardDr, shared.Tolerance)
	arDr, _ := legAmount(t, entries, 3)
	require.InDelta(t, 20.0, arDr, shared.Tolerance)
	debit, credit := sumSides(entries)
	require.InDelta(t, debit, credit, shared.Tolerance)
}

func TestPostSaleTenderMismatchRejected(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	docID := uuid.New()

	_, err := svc.PostSale(context.Background(), SaleDocument{
		DocID:      docID,
		ChainID:    docID,
		DocNo:      "S-0003",
		OutletID:   7,
		CashAmount: 100,
		Subtotal:   110,
		Total:      110,
	})
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Empty(t, repo.entries)
}

func TestPostSaleUnresolvedRoleFailsBeforeWrites(t *testing.T) {
	repo := newMemoryLedger()
	svc := NewService(repo, &stubRoles{ids: map[coa.Role]int64{}}, nil)
	docID := uuid.New()

	_, err := svc.PostSale(context.Background(), SaleDocument{
		DocID:      docID,
		ChainID:    docID,
		DocNo:      "S-0004",
		OutletID:   7,
		CashAmount: 110,
		Subtotal:   110,
		Total:      110,
	})
	var config *shared.ConfigurationError
	require.ErrorAs(t, err, &config)
	require.Empty(t, repo.entries)
	require.Empty(t, repo.links)
}

func TestPostSaleTwiceRejected(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	docID := uuid.New()
	doc := SaleDocument{
		DocID:      docID,
		ChainID:    docID,
		DocNo:      "S-0005",
		OutletID:   7,
		CashAmount: 110,
		Subtotal:   110,
		Total:      110,
	}

	_, err := svc.PostSale(context.Background(), doc)
	require.NoError(t, err)

	_, err = svc.PostSale(context.Background(), doc)
	require.ErrorIs(t, err, ErrDocumentAlreadyPosted)
}

func TestPostPurchaseBalances(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	docID := uuid.New()

	entries, err := svc.PostPurchase(context.Background(), PurchaseDocument{
		DocID:        docID,
		ChainID:      docID,
		DocNo:        "P-0001",
		OutletID:     7,
		Subtotal:     200,
		TaxTotal:     20,
		Total:        220,
		CashPaid:     100,
		BankPaid:     70,
		CreditAmount: 50,
	})
	require.NoError(t, err)

	invDr, _ := legAmount(t, entries, 8)
	require.InDelta(t, 200.0, invDr, shared.Tolerance)
	_, apCr := legAmount(t, entries, 4)
	require.InDelta(t, 50.0, apCr, shared.Tolerance)
	debit, credit := sumSides(entries)
	require.InDelta(t, debit, credit, shared.Tolerance)
}

func TestPostSaleReturnMirrors(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	docID := uuid.New()
	// Returned goods come back at positive quantity and cost 30.
	repo.setStockCost(string(DocSaleReturn), docID, 30)

	entries, err := svc.PostSaleReturn(context.Background(), ReturnDocument{
		DocID:      docID,
		ChainID:    docID,
		DocNo:      "SR-0001",
		OutletID:   7,
		CashAmount: 55,
		Subtotal:   50,
		TaxTotal:   5,
		Total:      55,
	})
	require.NoError(t, err)

	revenueDr, _ := legAmount(t, entries, 5)
	require.InDelta(t, 50.0, revenueDr, shared.Tolerance)
	_, tillCr := legAmount(t, entries, 1)
	require.InDelta(t, 55.0, tillCr, shared.Tolerance)
	invDr, _ := legAmount(t, entries, 8)
	require.InDelta(t, 30.0, invDr, shared.Tolerance)
	_, cogsCr := legAmount(t, entries, 7)
	require.InDelta(t, 30.0, cogsCr, shared.Tolerance)
	debit, credit := sumSides(entries)
	require.InDelta(t, debit, credit, shared.Tolerance)
}

func TestPostPurchaseReturnMirrors(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	docID := uuid.New()

	entries, err := svc.PostPurchaseReturn(context.Background(), ReturnDocument{
		DocID:        docID,
		ChainID:      docID,
		DocNo:        "PR-0001",
		OutletID:     7,
		CashAmount:   30,
		CreditAmount: 60,
		Subtotal:     82,
		TaxTotal:     8,
		Total:        90,
	})
	require.NoError(t, err)

	// Goods go back to the supplier: inventory down, settlements back.
	_, invCr := legAmount(t, entries, 8)
	require.InDelta(t, 82.0, invCr, shared.Tolerance)
	_, taxCr := legAmount(t, entries, 6)
	require.InDelta(t, 8.0, taxCr, shared.Tolerance)
	cashDr, _ := legAmount(t, entries, 14)
	require.InDelta(t, 30.0, cashDr, shared.Tolerance)
	apDr, _ := legAmount(t, entries, 4)
	require.InDelta(t, 60.0, apDr, shared.Tolerance)
	debit, credit := sumSides(entries)
	require.InDelta(t, debit, credit, shared.Tolerance)
}

func TestPostPurchaseReturnSettlementMismatchRejected(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	docID := uuid.New()

	_, err := svc.PostPurchaseReturn(context.Background(), ReturnDocument{
		DocID:      docID,
		ChainID:    docID,
		DocNo:      "PR-0002",
		OutletID:   7,
		CashAmount: 40,
		Subtotal:   90,
		Total:      90,
	})
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Empty(t, repo.entries)
}

func TestPostRevisionZeroDeltaIsNoOp(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	docID := uuid.New()

	entries, err := svc.PostRevision(context.Background(), RevisionInput{
		DocType: DocSaleRevision,
		DocID:   docID,
		ChainID: uuid.New(),
		DocNo:   "S-0001-R1",
	})
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Empty(t, repo.entries)
	require.Empty(t, repo.links, "a no-op revision must not consume the document link")
}

func TestPostRevisionNegativeDelta(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	docID := uuid.New()

	entries, err := svc.PostRevision(context.Background(), RevisionInput{
		DocType:       DocSaleRevision,
		DocID:         docID,
		ChainID:       uuid.New(),
		DocNo:         "S-0001-R2",
		OutletID:      7,
		DeltaSubtotal: -20,
		DeltaTax:      -2,
	})
	require.NoError(t, err)

	// A shrinking sale refunds the till and claws back revenue and tax.
	_, tillCr := legAmount(t, entries, 1)
	require.InDelta(t, 22.0, tillCr, shared.Tolerance)
	revenueDr, _ := legAmount(t, entries, 5)
	require.InDelta(t, 20.0, revenueDr, shared.Tolerance)
	taxDr, _ := legAmount(t, entries, 6)
	require.InDelta(t, 2.0, taxDr, shared.Tolerance)
	debit, credit := sumSides(entries)
	require.InDelta(t, debit, credit, shared.Tolerance)
}

func TestPostRevisionPurchaseDelta(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	docID := uuid.New()

	entries, err := svc.PostRevision(context.Background(), RevisionInput{
		DocType:       DocPurchaseRevision,
		DocID:         docID,
		ChainID:       uuid.New(),
		DocNo:         "P-0001-R1",
		OutletID:      7,
		DeltaSubtotal: 40,
		DeltaTax:      4,
	})
	require.NoError(t, err)

	// A growing purchase adds inventory and tax against cash.
	invDr, _ := legAmount(t, entries, 8)
	require.InDelta(t, 40.0, invDr, shared.Tolerance)
	taxDr, _ := legAmount(t, entries, 6)
	require.InDelta(t, 4.0, taxDr, shared.Tolerance)
	_, cashCr := legAmount(t, entries, 14)
	require.InDelta(t, 44.0, cashCr, shared.Tolerance)
	debit, credit := sumSides(entries)
	require.InDelta(t, debit, credit, shared.Tolerance)
}

func TestPostRevisionPurchaseNegativeDelta(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	docID := uuid.New()

	entries, err := svc.PostRevision(context.Background(), RevisionInput{
		DocType:       DocPurchaseRevision,
		DocID:         docID,
		ChainID:       uuid.New(),
		DocNo:         "P-0001-R2",
		OutletID:      7,
		DeltaSubtotal: -25,
	})
	require.NoError(t, err)

	// A shrinking purchase flips the legs: cash back, inventory down.
	cashDr, _ := legAmount(t, entries, 14)
	require.InDelta(t, 25.0, cashDr, shared.Tolerance)
	_, invCr := legAmount(t, entries, 8)
	require.InDelta(t, 25.0, invCr, shared.Tolerance)
	debit, credit := sumSides(entries)
	require.InDelta(t, debit, credit, shared.Tolerance)
}

func TestPostRevisionUnsupportedTypeRejected(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)

	_, err := svc.PostRevision(context.Background(), RevisionInput{
		DocType: DocSale,
		DocID:   uuid.New(),
		ChainID: uuid.New(),
		DocNo:   "S-0001",
	})
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestBatchBalanceInvariantAcrossDocuments(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)

	for i := 0; i < 10; i++ {
		docID := uuid.New()
		_, err := svc.PostSale(context.Background(), SaleDocument{
			DocID:      docID,
			ChainID:    docID,
			DocNo:      fmt.Sprintf("S-%04d", i),
			OutletID:   7,
			CashAmount: float64(10 * (i + 1)),
			Subtotal:   float64(10 * (i + 1)),
			Total:      float64(10 * (i + 1)),
		})
		require.NoError(t, err)
	}

	perDoc := make(map[uuid.UUID][2]float64)
	for _, e := range repo.entries {
		sums := perDoc[e.DocID]
		sums[0] += e.Debit
		sums[1] += e.Credit
		perDoc[e.DocID] = sums
	}
	require.Len(t, perDoc, 10)
	for docID, sums := range perDoc {
		require.InDelta(t, sums[0], sums[1], shared.Tolerance, "document %s is unbalanced", docID)
	}
}
