package coa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/atlas-retail/atlas-ledger/internal/shared"
)

// Role names a well-known system account consumed by the posting
// engine. The closed set replaces string account codes scattered
// through posting logic.
type Role string

const (
	RoleTill               Role = "TILL"
	RoleCardClearing       Role = "CARD_CLEARING"
	RoleAccountsReceivable Role = "AR"
	RoleAccountsPayable    Role = "AP"
	RoleSalesRevenue       Role = "SALES_REVENUE"
	RoleSalesTax           Role = "SALES_TAX"
	RoleCOGS               Role = "COGS"
	RoleInventory          Role = "INVENTORY"
	RolePurchaseBank       Role = "PURCHASE_BANK"
	RolePayrollExpense     Role = "PAYROLL_EXPENSE"
	RolePayrollPayable     Role = "PAYROLL_PAYABLE"
	RoleCashOverShort      Role = "CASH_OVER_SHORT"
	RoleOtherIncome        Role = "OTHER_INCOME"
	RoleCashInHand         Role = "CASH_IN_HAND"
)

// RoleSource resolves a role to an account id, outlet-specific rows
// winning over company-wide rows.
type RoleSource interface {
	RoleAccountID(ctx context.Context, role string, outletID *int64) (int64, error)
}

// RoleRegistry resolves roles once per outlet and caches the result.
// Resolution misses surface as ConfigurationError so a posting fails
// whole before any entry is written.
type RoleRegistry struct {
	source RoleSource
	cache  *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewRoleRegistry constructs the registry. cache may be nil.
func NewRoleRegistry(source RoleSource, cache *redis.Client, ttl time.Duration) *RoleRegistry {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RoleRegistry{source: source, cache: cache, ttl: ttl}
}

// AccountID returns the account configured for role at the outlet.
func (r *RoleRegistry) AccountID(ctx context.Context, role Role, outletID *int64) (int64, error) {
	key := roleCacheKey(role, outletID)
	if r.cache != nil {
		if id, err := r.cache.Get(ctx, key).Int64(); err == nil && id > 0 {
			return id, nil
		}
	}
	v, err, _ := r.group.Do(key, func() (any, error) {
		id, err := r.source.RoleAccountID(ctx, string(role), outletID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				if outletID != nil {
					return nil, shared.Configurationf("no account configured for role %s at outlet %d", role, *outletID)
				}
				return nil, shared.Configurationf("no account configured for role %s", role)
			}
			return nil, err
		}
		if r.cache != nil {
			_ = r.cache.Set(ctx, key, id, r.ttl).Err()
		}
		return id, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// Invalidate drops a cached resolution after role reassignment.
func (r *RoleRegistry) Invalidate(ctx context.Context, role Role, outletID *int64) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Del(ctx, roleCacheKey(role, outletID)).Err()
}

func roleCacheKey(role Role, outletID *int64) string {
	if outletID == nil {
		return fmt.Sprintf("coa:role:%s:company", role)
	}
	return fmt.Sprintf("coa:role:%s:%d", role, *outletID)
}
