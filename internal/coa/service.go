package coa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atlas-retail/atlas-ledger/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort records directory mutations for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service maintains the account hierarchy: creation with collision-free
// child codes, edits, precondition-checked deletes, opening balances,
// and idempotent system account provisioning.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the directory service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateHeader creates a non-postable aggregator under parent.
func (s *Service) CreateHeader(ctx context.Context, parentID int64, name string) (Account, error) {
	return s.createChild(ctx, parentID, name, true)
}

// CreateAccount creates a postable leaf under parent.
func (s *Service) CreateAccount(ctx context.Context, parentID int64, name string) (Account, error) {
	return s.createChild(ctx, parentID, name, false)
}

func (s *Service) createChild(ctx context.Context, parentID int64, name string, isHeader bool) (Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Account{}, shared.Validationf("account name is required")
	}
	var created Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		// Parent row lock serialises sibling code generation.
		parent, err := tx.LockAccount(ctx, parentID)
		if err != nil {
			return err
		}
		if !parent.IsHeader {
			return shared.Conflictf("account %s is not a header and cannot own children", parent.Code)
		}
		siblings, err := tx.ListChildren(ctx, parentID)
		if err != nil {
			return err
		}
		acc := Account{
			Code:         nextChildCode(parent, siblings, isHeader),
			Name:         name,
			Type:         parent.Type,
			NormalSide:   parent.NormalSide,
			IsHeader:     isHeader,
			AllowPosting: !isHeader,
			ParentID:     &parent.ID,
			OutletID:     parent.OutletID,
		}
		created, err = tx.InsertAccount(ctx, acc)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, "coa.create", created.ID, map[string]any{"code": created.Code, "header": isHeader})
	return created, nil
}

// Edit updates code, name, and header/posting flags. System accounts
// are immutable. AllowPosting is forced false for headers. An empty
// code keeps the account's current one.
func (s *Service) Edit(ctx context.Context, edit AccountEdit) error {
	if strings.TrimSpace(edit.Name) == "" {
		return shared.Validationf("account name is required")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetAccount(ctx, edit.ID)
		if err != nil {
			return err
		}
		if current.IsSystem {
			return shared.Conflictf("system account %s cannot be edited", current.Code)
		}
		if strings.TrimSpace(edit.Code) == "" {
			edit.Code = current.Code
		}
		if edit.IsHeader {
			edit.AllowPosting = false
		}
		return tx.UpdateAccount(ctx, edit)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "coa.edit", edit.ID, map[string]any{"code": edit.Code})
	return nil
}

// Delete removes an account. Each precondition is checked independently
// and short-circuits with a specific reason.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		acc, err := tx.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if acc.IsSystem {
			return shared.Conflictf("system account %s cannot be deleted", acc.Code)
		}
		if acc.IsHeader {
			return shared.Conflictf("header account %s cannot be deleted", acc.Code)
		}
		if has, err := tx.HasChildren(ctx, id); err != nil {
			return err
		} else if has {
			return shared.Conflictf("account %s has child accounts", acc.Code)
		}
		if has, err := tx.HasGLEntries(ctx, id); err != nil {
			return err
		} else if has {
			return shared.Conflictf("account %s is used in GL", acc.Code)
		}
		if has, err := tx.HasPartyRefs(ctx, id); err != nil {
			return err
		} else if has {
			return shared.Conflictf("account %s is referenced by a party", acc.Code)
		}
		return tx.DeleteAccount(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "coa.delete", id, nil)
	return nil
}

// SaveOpenings applies opening-balance changes. An opening may carry
// only one side, locked accounts reject changes, and till accounts
// never accept manual openings since their balance is derived from
// transaction flow.
func (s *Service) SaveOpenings(ctx context.Context, changes []OpeningChange) error {
	if len(changes) == 0 {
		return nil
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, ch := range changes {
			acc, err := tx.GetAccount(ctx, ch.AccountID)
			if err != nil {
				return err
			}
			if ch.Debit < 0 || ch.Credit < 0 {
				return shared.Validationf("opening for %s has a negative amount", acc.Code)
			}
			if ch.Debit > 0 && ch.Credit > 0 {
				return shared.Validationf("opening for %s has both Dr and Cr", acc.Code)
			}
			if acc.OpeningLocked {
				return shared.Conflictf("opening for %s is locked", acc.Code)
			}
			if acc.IsSystem && strings.HasPrefix(acc.Code, OutletTillCode) {
				return shared.Validationf("opening for till account %s is not allowed", acc.Code)
			}
			if err := tx.UpdateOpening(ctx, ch.AccountID, ch.Debit, ch.Credit); err != nil {
				return err
			}
		}
		return nil
	})
}

// LockAllOpenings idempotently marks every unlocked account locked.
func (s *Service) LockAllOpenings(ctx context.Context) (int64, error) {
	var locked int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		locked, err = tx.LockAllOpenings(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	return locked, nil
}

// EnsureOutletCashAccount gets or creates the outlet-scoped cash
// account. Safe under concurrent callers.
func (s *Service) EnsureOutletCashAccount(ctx context.Context, outletID int64) (Account, error) {
	return s.ensureOutletSystemAccount(ctx, outletID, OutletCashCode, cashInHandName)
}

// EnsureOutletTillAccount gets or creates the outlet-scoped till
// account.
func (s *Service) EnsureOutletTillAccount(ctx context.Context, outletID int64) (Account, error) {
	return s.ensureOutletSystemAccount(ctx, outletID, OutletTillCode, tillAccountSuffix)
}

// EnsureCompanyCashInHand gets or creates the company-wide cash
// account.
func (s *Service) EnsureCompanyCashInHand(ctx context.Context) (Account, error) {
	var acc Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		acc, err = s.ensureSystemAccount(ctx, tx, CompanyCashCode, cashInHandName, nil)
		return err
	})
	return acc, err
}

func (s *Service) ensureOutletSystemAccount(ctx context.Context, outletID int64, headerCode, name string) (Account, error) {
	var acc Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		outletCode, err := tx.GetOutletCode(ctx, outletID)
		if err != nil {
			return err
		}
		code := fmt.Sprintf("%s-%s", headerCode, outletCode)
		acc, err = s.ensureSystemAccount(ctx, tx, code, fmt.Sprintf("%s (%s)", name, outletCode), &outletID)
		return err
	})
	return acc, err
}

func (s *Service) ensureSystemAccount(ctx context.Context, tx TxRepository, code, name string, outletID *int64) (Account, error) {
	existing, err := tx.GetAccountByCode(ctx, code)
	if err == nil {
		return existing, nil
	}
	var nf *shared.NotFoundError
	if !errors.As(err, &nf) {
		return Account{}, err
	}
	header, err := tx.GetAccountByCode(ctx, CashHeaderCode)
	if err != nil {
		return Account{}, shared.Configurationf("cash header %s is not provisioned", CashHeaderCode)
	}
	acc := Account{
		Code:         code,
		Name:         name,
		Type:         AccountTypeSystem,
		NormalSide:   NormalSideDebit,
		AllowPosting: true,
		ParentID:     &header.ID,
		OutletID:     outletID,
		IsSystem:     true,
	}
	// ON CONFLICT DO NOTHING keeps concurrent provisioning get-or-create
	// rather than create-or-fail.
	if err := tx.InsertAccountIfAbsent(ctx, acc); err != nil {
		return Account{}, err
	}
	return tx.GetAccountByCode(ctx, code)
}

// GetCashAccountID resolves the cash account for an outlet, or the
// company-wide cash account when outletID is nil.
func (s *Service) GetCashAccountID(ctx context.Context, outletID *int64) (int64, error) {
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		code := CompanyCashCode
		if outletID != nil {
			outletCode, err := tx.GetOutletCode(ctx, *outletID)
			if err != nil {
				return err
			}
			code = fmt.Sprintf("%s-%s", OutletCashCode, outletCode)
		}
		acc, err := tx.GetAccountByCode(ctx, code)
		if err != nil {
			return shared.Configurationf("cash account %s is not provisioned", code)
		}
		id = acc.ID
		return nil
	})
	return id, err
}

// GetTillAccountID resolves the till account for an outlet.
func (s *Service) GetTillAccountID(ctx context.Context, outletID int64) (int64, error) {
	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		outletCode, err := tx.GetOutletCode(ctx, outletID)
		if err != nil {
			return err
		}
		code := fmt.Sprintf("%s-%s", OutletTillCode, outletCode)
		acc, err := tx.GetAccountByCode(ctx, code)
		if err != nil {
			return shared.Configurationf("till account %s is not provisioned", code)
		}
		id = acc.ID
		return nil
	})
	return id, err
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "account",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
		At:       s.now(),
	})
}
