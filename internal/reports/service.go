package reports

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/atlas-retail/atlas-ledger/internal/shared"
)

// QueryRepository abstracts the entry-store reads the service needs.
type QueryRepository interface {
	AccountOpening(ctx context.Context, accountID int64) (float64, error)
	SumBefore(ctx context.Context, accountID int64, before time.Time, includeVoided bool) (float64, error)
	ListEntries(ctx context.Context, accountID int64, from, to time.Time, includeVoided bool) ([]LedgerRow, error)
}

// CashAccountSource resolves an outlet's cash accounts.
type CashAccountSource interface {
	GetCashAccountID(ctx context.Context, outletID *int64) (int64, error)
	GetTillAccountID(ctx context.Context, outletID int64) (int64, error)
}

// Service reconstructs point-in-time balances and transaction listings
// for the general ledger and cash book.
type Service struct {
	repo QueryRepository
	cash CashAccountSource
}

// NewService constructs the query service.
func NewService(repo QueryRepository, cash CashAccountSource) *Service {
	return &Service{repo: repo, cash: cash}
}

// GetAccountLedger lists effective entries in [from, to) with running
// balances. Opening folds the stored opening balance with all
// effective entries before from.
func (s *Service) GetAccountLedger(ctx context.Context, accountID int64, from, to time.Time) (AccountLedger, error) {
	if !to.After(from) {
		return AccountLedger{}, shared.Validationf("ledger range end must be after start")
	}
	opening, err := s.opening(ctx, accountID, from, false)
	if err != nil {
		return AccountLedger{}, err
	}
	rows, err := s.repo.ListEntries(ctx, accountID, from, to, false)
	if err != nil {
		return AccountLedger{}, err
	}
	running := opening
	for i := range rows {
		running += rows[i].Debit - rows[i].Credit
		rows[i].Running = running
	}
	return AccountLedger{
		AccountID: accountID,
		From:      from,
		To:        to,
		Opening:   opening,
		Rows:      rows,
		Closing:   running,
	}, nil
}

// GetCashBook merges entries across the outlet's resolved cash
// accounts. An empty scope means BOTH. With includeVoided,
// non-effective rows appear flagged and the running balance
// accumulates whatever the filter includes.
func (s *Service) GetCashBook(ctx context.Context, outletID int64, from, to time.Time, includeVoided bool, scope CashScope) (CashBook, error) {
	if !to.After(from) {
		return CashBook{}, shared.Validationf("cash book range end must be after start")
	}
	if scope == "" {
		scope = CashScopeBoth
	}
	accountIDs, err := s.resolveScope(ctx, outletID, scope)
	if err != nil {
		return CashBook{}, err
	}

	var mu sync.Mutex
	var opening float64
	merged := make([]LedgerRow, 0)
	g, gctx := errgroup.WithContext(ctx)
	for _, accountID := range accountIDs {
		g.Go(func() error {
			open, err := s.opening(gctx, accountID, from, includeVoided)
			if err != nil {
				return err
			}
			rows, err := s.repo.ListEntries(gctx, accountID, from, to, includeVoided)
			if err != nil {
				return err
			}
			mu.Lock()
			opening += open
			merged = append(merged, rows...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CashBook{}, err
	}

	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].EffectiveDate.Equal(merged[j].EffectiveDate) {
			return merged[i].EffectiveDate.Before(merged[j].EffectiveDate)
		}
		return merged[i].EntryID < merged[j].EntryID
	})
	running := opening
	for i := range merged {
		running += merged[i].Debit - merged[i].Credit
		merged[i].Running = running
	}
	return CashBook{
		OutletID:   outletID,
		Scope:      scope,
		AccountIDs: accountIDs,
		From:       from,
		To:         to,
		Opening:    opening,
		Rows:       merged,
		Closing:    running,
	}, nil
}

func (s *Service) opening(ctx context.Context, accountID int64, from time.Time, includeVoided bool) (float64, error) {
	stored, err := s.repo.AccountOpening(ctx, accountID)
	if err != nil {
		return 0, err
	}
	prior, err := s.repo.SumBefore(ctx, accountID, from, includeVoided)
	if err != nil {
		return 0, err
	}
	return stored + prior, nil
}

func (s *Service) resolveScope(ctx context.Context, outletID int64, scope CashScope) ([]int64, error) {
	var ids []int64
	if scope == CashScopeHand || scope == CashScopeBoth {
		hand, err := s.cash.GetCashAccountID(ctx, &outletID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, hand)
	}
	if scope == CashScopeTill || scope == CashScopeBoth {
		till, err := s.cash.GetTillAccountID(ctx, outletID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, till)
	}
	if len(ids) == 0 {
		return nil, shared.Validationf("cash book scope %q is not supported", scope)
	}
	return ids, nil
}
