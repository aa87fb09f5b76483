package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/atlas-retail/atlas-ledger/internal/shared"
)

func TestPayrollAccrualAndPayment(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	ctx := context.Background()

	accrualID := uuid.New()
	entries, err := svc.PostPayrollAccrual(ctx, PayrollRun{
		DocID:   accrualID,
		ChainID: accrualID,
		DocNo:   "PR-001",
		Amount:  5000,
	})
	require.NoError(t, err)
	expDr, _ := legAmount(t, entries, 10)
	require.InDelta(t, 5000.0, expDr, shared.Tolerance)
	_, payCr := legAmount(t, entries, 11)
	require.InDelta(t, 5000.0, payCr, shared.Tolerance)

	paymentID := uuid.New()
	entries, err = svc.PostPayrollPayment(ctx, PayrollRun{
		DocID:   paymentID,
		ChainID: paymentID,
		DocNo:   "PR-001-PAY",
		Amount:  5000,
	})
	require.NoError(t, err)
	payDr, _ := legAmount(t, entries, 11)
	require.InDelta(t, 5000.0, payDr, shared.Tolerance)
	_, cashCr := legAmount(t, entries, 14)
	require.InDelta(t, 5000.0, cashCr, shared.Tolerance)
}

func TestPayrollNonPositiveAmountRejected(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	docID := uuid.New()

	_, err := svc.PostPayrollAccrual(context.Background(), PayrollRun{DocID: docID, ChainID: docID, DocNo: "PR-002"})
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)

	_, err = svc.PostPayrollPayment(context.Background(), PayrollRun{DocID: docID, ChainID: docID, DocNo: "PR-002", Amount: -1})
	require.ErrorAs(t, err, &validation)
}

func TestPostTillCloseExactMatch(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	docID := uuid.New()

	entries, err := svc.PostTillClose(context.Background(), TillCloseDocument{
		DocID:        docID,
		ChainID:      docID,
		DocNo:        "TC-001",
		OutletID:     7,
		DeclaredCash: 1000,
		SystemCash:   1000,
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	handDr, _ := legAmount(t, entries, 14)
	require.InDelta(t, 1000.0, handDr, shared.Tolerance)
	_, tillCr := legAmount(t, entries, 1)
	require.InDelta(t, 1000.0, tillCr, shared.Tolerance)
}

func TestPostTillCloseShortBooksVariance(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	docID := uuid.New()

	entries, err := svc.PostTillClose(context.Background(), TillCloseDocument{
		DocID:        docID,
		ChainID:      docID,
		DocNo:        "TC-002",
		OutletID:     7,
		DeclaredCash: 980,
		SystemCash:   1000,
	})
	require.NoError(t, err)

	handDr, _ := legAmount(t, entries, 14)
	require.InDelta(t, 980.0, handDr, shared.Tolerance)
	_, tillCr := legAmount(t, entries, 1)
	require.InDelta(t, 1000.0, tillCr, shared.Tolerance)
	shortDr, _ := legAmount(t, entries, 12)
	require.InDelta(t, 20.0, shortDr, shared.Tolerance)
	debit, credit := sumSides(entries)
	require.InDelta(t, debit, credit, shared.Tolerance)
}

func TestPostTillCloseOverBooksIncome(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	docID := uuid.New()

	entries, err := svc.PostTillClose(context.Background(), TillCloseDocument{
		DocID:        docID,
		ChainID:      docID,
		DocNo:        "TC-003",
		OutletID:     7,
		DeclaredCash: 1015,
		SystemCash:   1000,
	})
	require.NoError(t, err)

	handDr, _ := legAmount(t, entries, 14)
	require.InDelta(t, 1015.0, handDr, shared.Tolerance)
	_, tillCr := legAmount(t, entries, 1)
	require.InDelta(t, 1000.0, tillCr, shared.Tolerance)
	_, incomeCr := legAmount(t, entries, 13)
	require.InDelta(t, 15.0, incomeCr, shared.Tolerance)
	debit, credit := sumSides(entries)
	require.InDelta(t, debit, credit, shared.Tolerance)
}

func TestPostTillCloseNegativeAmountRejected(t *testing.T) {
	repo := newMemoryLedger()
	svc := newTestService(repo)
	docID := uuid.New()

	_, err := svc.PostTillClose(context.Background(), TillCloseDocument{
		DocID:        docID,
		ChainID:      docID,
		DocNo:        "TC-004",
		OutletID:     7,
		DeclaredCash: -5,
		SystemCash:   100,
	})
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
}
