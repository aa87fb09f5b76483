package ledger

import (
	"context"

	"github.com/atlas-retail/atlas-ledger/internal/coa"
	"github.com/atlas-retail/atlas-ledger/internal/shared"
)

// PostPayrollAccrual books the expense side of a payroll run: debit
// payroll expense, credit payroll payable.
func (s *Service) PostPayrollAccrual(ctx context.Context, run PayrollRun) ([]Entry, error) {
	var entries []Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entries, err = s.PostPayrollAccrualTx(ctx, tx, run)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "ledger.post_payroll_accrual", run.DocID.String(), len(entries))
	return entries, nil
}

// PostPayrollAccrualTx posts inside the caller's unit of work.
func (s *Service) PostPayrollAccrualTx(ctx context.Context, tx TxRepository, run PayrollRun) ([]Entry, error) {
	if run.Amount <= 0 {
		return nil, shared.Validationf("payroll accrual %s requires a positive amount", run.DocNo)
	}
	expense, err := s.roles.AccountID(ctx, coa.RolePayrollExpense, run.OutletID)
	if err != nil {
		return nil, err
	}
	payable, err := s.roles.AccountID(ctx, coa.RolePayrollPayable, run.OutletID)
	if err != nil {
		return nil, err
	}
	b := newBatch(DocPayrollAccrual, run.DocID, run.ChainID, run.DocNo, s.effectiveDate(run.EffectiveDate))
	b.debit(expense, run.Amount, run.Memo)
	b.credit(payable, run.Amount, run.Memo)
	return s.post(ctx, tx, b)
}

// PostPayrollPayment settles the accrued payable: debit payable,
// credit cash. Accrual and payment are independent, always-paired
// postings.
func (s *Service) PostPayrollPayment(ctx context.Context, run PayrollRun) ([]Entry, error) {
	var entries []Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entries, err = s.PostPayrollPaymentTx(ctx, tx, run)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "ledger.post_payroll_payment", run.DocID.String(), len(entries))
	return entries, nil
}

// PostPayrollPaymentTx posts inside the caller's unit of work.
func (s *Service) PostPayrollPaymentTx(ctx context.Context, tx TxRepository, run PayrollRun) ([]Entry, error) {
	if run.Amount <= 0 {
		return nil, shared.Validationf("payroll payment %s requires a positive amount", run.DocNo)
	}
	payable, err := s.roles.AccountID(ctx, coa.RolePayrollPayable, run.OutletID)
	if err != nil {
		return nil, err
	}
	cash, err := s.roles.AccountID(ctx, coa.RoleCashInHand, run.OutletID)
	if err != nil {
		return nil, err
	}
	b := newBatch(DocPayrollPayment, run.DocID, run.ChainID, run.DocNo, s.effectiveDate(run.EffectiveDate))
	b.debit(payable, run.Amount, run.Memo)
	b.credit(cash, run.Amount, run.Memo)
	return s.post(ctx, tx, b)
}

// PostTillClose moves declared cash from the till to the hand account
// and books the over/short variance when the declared amount drifts
// from the system amount beyond tolerance.
func (s *Service) PostTillClose(ctx context.Context, doc TillCloseDocument) ([]Entry, error) {
	var entries []Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entries, err = s.PostTillCloseTx(ctx, tx, doc)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "ledger.post_till_close", doc.DocID.String(), len(entries))
	return entries, nil
}

// PostTillCloseTx posts inside the caller's unit of work.
func (s *Service) PostTillCloseTx(ctx context.Context, tx TxRepository, doc TillCloseDocument) ([]Entry, error) {
	if doc.DeclaredCash < 0 || doc.SystemCash < 0 {
		return nil, shared.Validationf("till close %s has a negative cash amount", doc.DocNo)
	}
	outlet := &doc.OutletID
	till, err := s.roles.AccountID(ctx, coa.RoleTill, outlet)
	if err != nil {
		return nil, err
	}
	hand, err := s.roles.AccountID(ctx, coa.RoleCashInHand, outlet)
	if err != nil {
		return nil, err
	}

	diff := doc.DeclaredCash - doc.SystemCash
	b := newBatch(DocTillClose, doc.DocID, doc.ChainID, doc.DocNo, s.effectiveDate(doc.EffectiveDate))
	b.debit(hand, doc.DeclaredCash, doc.Memo)
	switch {
	case diff < -shared.Tolerance:
		short, err := s.roles.AccountID(ctx, coa.RoleCashOverShort, outlet)
		if err != nil {
			return nil, err
		}
		b.credit(till, doc.SystemCash, doc.Memo)
		b.debit(short, -diff, "Cash short")
	case diff > shared.Tolerance:
		income, err := s.roles.AccountID(ctx, coa.RoleOtherIncome, outlet)
		if err != nil {
			return nil, err
		}
		b.credit(till, doc.SystemCash, doc.Memo)
		b.credit(income, diff, "Cash over")
	default:
		b.credit(till, doc.DeclaredCash, doc.Memo)
	}
	return s.post(ctx, tx, b)
}
