package coa

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/atlas-retail/atlas-ledger/internal/shared"
)

type stubRoleSource struct {
	roles map[string]int64
	calls int
}

func (s *stubRoleSource) RoleAccountID(ctx context.Context, role string, outletID *int64) (int64, error) {
	s.calls++
	key := role + ":company"
	if outletID != nil {
		key = role + ":outlet"
	}
	if id, ok := s.roles[key]; ok {
		return id, nil
	}
	if id, ok := s.roles[role+":company"]; ok {
		return id, nil
	}
	return 0, shared.ErrNotFound
}

func newTestCache(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: srv.Addr()})
}

func TestRoleRegistryResolvesAndCaches(t *testing.T) {
	source := &stubRoleSource{roles: map[string]int64{"TILL:outlet": 42}}
	registry := NewRoleRegistry(source, newTestCache(t), time.Minute)
	outlet := int64(7)

	id, err := registry.AccountID(context.Background(), RoleTill, &outlet)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
	require.Equal(t, 1, source.calls)

	id, err = registry.AccountID(context.Background(), RoleTill, &outlet)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
	require.Equal(t, 1, source.calls, "second lookup must hit the cache")
}

func TestRoleRegistryMissIsConfigurationError(t *testing.T) {
	source := &stubRoleSource{roles: map[string]int64{}}
	registry := NewRoleRegistry(source, newTestCache(t), time.Minute)
	outlet := int64(7)

	_, err := registry.AccountID(context.Background(), RoleCOGS, &outlet)
	var config *shared.ConfigurationError
	require.ErrorAs(t, err, &config)
}

func TestRoleRegistryWorksWithoutCache(t *testing.T) {
	source := &stubRoleSource{roles: map[string]int64{"SALES_REVENUE:company": 9}}
	registry := NewRoleRegistry(source, nil, time.Minute)

	id, err := registry.AccountID(context.Background(), RoleSalesRevenue, nil)
	require.NoError(t, err)
	require.Equal(t, int64(9), id)
}

func TestRoleRegistryInvalidate(t *testing.T) {
	source := &stubRoleSource{roles: map[string]int64{"TILL:outlet": 42}}
	registry := NewRoleRegistry(source, newTestCache(t), time.Minute)
	outlet := int64(7)

	_, err := registry.AccountID(context.Background(), RoleTill, &outlet)
	require.NoError(t, err)

	registry.Invalidate(context.Background(), RoleTill, &outlet)
	source.roles["TILL:outlet"] = 77

	id, err := registry.AccountID(context.Background(), RoleTill, &outlet)
	require.NoError(t, err)
	require.Equal(t, int64(77), id)
	require.Equal(t, 2, source.calls)
}
