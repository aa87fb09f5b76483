package ledger

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/atlas-retail/atlas-ledger/internal/coa"
	"github.com/atlas-retail/atlas-ledger/internal/shared"
)

// voucherDocType maps voucher kinds to GL document types.
func voucherDocType(t VoucherType) (DocumentType, error) {
	switch t {
	case VoucherJournal:
		return DocJournalVoucher, nil
	case VoucherDebit:
		return DocCashPayment, nil
	case VoucherCredit:
		return DocCashReceipt, nil
	default:
		return "", shared.Validationf("voucher type %q is not supported", t)
	}
}

func validateVoucherLines(lines []VoucherLine) error {
	if len(lines) == 0 {
		return shared.Validationf("voucher requires at least one line")
	}
	for idx, line := range lines {
		if line.AccountID == 0 {
			return shared.Validationf("voucher line %d is missing an account", idx)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return shared.Validationf("voucher line %d has a negative amount", idx)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return shared.Validationf("voucher line %d cannot carry both Dr and Cr", idx)
		}
	}
	return nil
}

// PostVoucher posts a voucher in its own transaction.
func (s *Service) PostVoucher(ctx context.Context, v Voucher) ([]Entry, error) {
	var entries []Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entries, err = s.PostVoucherTx(ctx, tx, v)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "ledger.post_voucher", v.DocID.String(), len(entries))
	return entries, nil
}

// PostVoucherTx posts a voucher inside the caller's unit of work. Each
// user-entered line is posted as-is. Debit vouchers auto-balance
// against cash on the credit side, credit vouchers on the debit side;
// journal vouchers must already balance.
func (s *Service) PostVoucherTx(ctx context.Context, tx TxRepository, v Voucher) ([]Entry, error) {
	if err := validateVoucherLines(v.Lines); err != nil {
		return nil, err
	}
	docType, err := voucherDocType(v.Type)
	if err != nil {
		return nil, err
	}
	var debit, credit float64
	for _, line := range v.Lines {
		debit += line.Debit
		credit += line.Credit
	}
	if v.Type == VoucherJournal {
		if len(v.Lines) < 2 {
			return nil, shared.Validationf("journal voucher %s requires at least two lines", v.DocNo)
		}
		diff := debit - credit
		if diff > shared.JournalTolerance || diff < -shared.JournalTolerance {
			return nil, shared.Validationf("journal voucher %s does not balance: debit %.2f credit %.2f", v.DocNo, debit, credit)
		}
	}

	b := newBatch(docType, v.DocID, v.ChainID, v.DocNo, s.effectiveDate(v.EffectiveDate))
	for _, line := range v.Lines {
		memo := line.Memo
		if memo == "" {
			memo = v.Memo
		}
		if line.Debit > 0 {
			b.debit(line.AccountID, line.Debit, memo)
		} else {
			b.credit(line.AccountID, line.Credit, memo)
		}
	}
	switch v.Type {
	case VoucherDebit:
		cash, err := s.roles.AccountID(ctx, coa.RoleCashInHand, v.OutletID)
		if err != nil {
			return nil, err
		}
		b.credit(cash, debit-credit, v.Memo)
	case VoucherCredit:
		cash, err := s.roles.AccountID(ctx, coa.RoleCashInHand, v.OutletID)
		if err != nil {
			return nil, err
		}
		b.debit(cash, credit-debit, v.Memo)
	}
	return s.post(ctx, tx, b)
}

// VoidVoucherInput wraps parameters for voiding a voucher chain.
type VoidVoucherInput struct {
	ChainID uuid.UUID
	DocID   uuid.UUID
	DocNo   string
	Reason  string
}

// VoidVoucher appends one reversing entry per effective gross entry of
// the chain, then flips the whole chain non-effective. Effective rows
// always represent current truth; the reversal pair stays for audit.
func (s *Service) VoidVoucher(ctx context.Context, input VoidVoucherInput) ([]Entry, error) {
	var entries []Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entries, err = s.VoidVoucherTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, "ledger.void_voucher", input.ChainID.String(), len(entries))
	return entries, nil
}

// VoidVoucherTx voids inside the caller's unit of work.
func (s *Service) VoidVoucherTx(ctx context.Context, tx TxRepository, input VoidVoucherInput) ([]Entry, error) {
	state, err := tx.ChainState(ctx, input.ChainID)
	if err != nil {
		return nil, shared.NotFoundf("voucher", "voucher chain %s not found", input.ChainID)
	}
	if state == ChainVoided {
		return nil, shared.Conflictf("voucher chain %s is already voided", input.ChainID)
	}
	chain, err := tx.ListChainEntries(ctx, input.ChainID)
	if err != nil {
		return nil, err
	}
	b := newBatch(DocVoucherVoid, input.DocID, input.ChainID, input.DocNo, s.now().UTC())
	memo := input.Reason
	for _, e := range chain {
		if !e.IsEffective {
			continue
		}
		if memo == "" {
			memo = e.Memo
		}
		// Swap sides to reverse.
		b.append(e.AccountID, e.Credit, e.Debit, memo)
	}
	entries, err := s.post(ctx, tx, b)
	if err != nil {
		return nil, err
	}
	if err := tx.SetChainEffectiveness(ctx, input.ChainID, false); err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].IsEffective = false
	}
	return entries, nil
}

// ReviseVoucher diffs the chain's effective per-account balances
// against the new lines and posts only the net delta per account, plus
// an auto-computed cash delta for debit/credit vouchers.
func (s *Service) ReviseVoucher(ctx context.Context, v Voucher) ([]Entry, error) {
	var entries []Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entries, err = s.ReviseVoucherTx(ctx, tx, v)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		s.record(ctx, "ledger.revise_voucher", v.DocID.String(), len(entries))
	}
	return entries, nil
}

// ReviseVoucherTx revises inside the caller's unit of work.
func (s *Service) ReviseVoucherTx(ctx context.Context, tx TxRepository, v Voucher) ([]Entry, error) {
	if err := validateVoucherLines(v.Lines); err != nil {
		return nil, err
	}
	state, err := tx.ChainState(ctx, v.ChainID)
	if err != nil {
		return nil, shared.NotFoundf("voucher", "voucher chain %s not found", v.ChainID)
	}
	if state == ChainVoided {
		return nil, shared.Conflictf("voucher chain %s is voided and cannot be revised", v.ChainID)
	}
	chain, err := tx.ListChainEntries(ctx, v.ChainID)
	if err != nil {
		return nil, err
	}

	var cashID int64
	if v.Type != VoucherJournal {
		cashID, err = s.roles.AccountID(ctx, coa.RoleCashInHand, v.OutletID)
		if err != nil {
			return nil, err
		}
	}

	// Net debit-minus-credit per account, old then new; the cash legs
	// of a debit/credit voucher are recomputed, not diffed.
	old := make(map[int64]float64)
	for _, e := range chain {
		if !e.IsEffective || (cashID != 0 && e.AccountID == cashID) {
			continue
		}
		old[e.AccountID] += e.Debit - e.Credit
	}
	updated := make(map[int64]float64)
	for _, line := range v.Lines {
		updated[line.AccountID] += line.Debit - line.Credit
	}

	accountIDs := make([]int64, 0, len(old)+len(updated))
	seen := make(map[int64]bool)
	for id := range old {
		accountIDs = append(accountIDs, id)
		seen[id] = true
	}
	for id := range updated {
		if !seen[id] {
			accountIDs = append(accountIDs, id)
		}
	}
	sort.Slice(accountIDs, func(i, j int) bool { return accountIDs[i] < accountIDs[j] })

	var total float64
	b := newBatch(DocVoucherRevision, v.DocID, v.ChainID, v.DocNo, s.effectiveDate(v.EffectiveDate))
	for _, id := range accountIDs {
		delta := updated[id] - old[id]
		if shared.NearlyZero(delta) {
			continue
		}
		b.debit(id, delta, v.Memo)
		total += delta
	}
	if b.empty() {
		return nil, nil
	}
	switch v.Type {
	case VoucherJournal:
		diff := total
		if diff > shared.JournalTolerance || diff < -shared.JournalTolerance {
			return nil, shared.Validationf("journal voucher revision %s does not balance: net delta %.2f", v.DocNo, diff)
		}
	default:
		b.credit(cashID, total, v.Memo)
	}
	return s.post(ctx, tx, b)
}
