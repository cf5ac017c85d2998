package memory

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/yieldledger"
	"github.com/xraph/yieldledger/position"
)

func TestCommitAndGet(t *testing.T) {
	ctx := context.Background()
	s := New()

	key := position.Key{TenantID: "t1", Account: "alice", Token: "ayUSD"}
	_, err := s.GetAccount(ctx, key)
	assert.ErrorIs(t, err, yieldledger.ErrAccountNotFound)
	_, err = s.GetAggregate(ctx, key)
	assert.ErrorIs(t, err, yieldledger.ErrAggregateNotFound)

	a := position.NewAccount(key)
	a.Debt = uint256.NewInt(20)
	g := position.NewAggregate(key.Aggregate())
	g.TotalDebt = uint256.NewInt(20)
	require.NoError(t, s.Commit(ctx, a, g))

	got, err := s.GetAccount(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), got.Debt.Uint64())

	// Returned rows are copies.
	got.Debt.SetUint64(99)
	again, err := s.GetAccount(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), again.Debt.Uint64())

	agg, err := s.GetAggregate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), agg.TotalDebt.Uint64())
}

func TestListAccountsPaging(t *testing.T) {
	ctx := context.Background()
	s := New()

	agg := position.AggregateKey("t1", "ayUSD")
	for _, name := range []string{"carol", "alice", "bob"} {
		key := position.Key{TenantID: "t1", Account: name, Token: "ayUSD"}
		require.NoError(t, s.Commit(ctx, position.NewAccount(key), position.NewAggregate(agg)))
	}
	other := position.Key{TenantID: "t2", Account: "dave", Token: "ayUSD"}
	require.NoError(t, s.Commit(ctx, position.NewAccount(other), position.NewAggregate(other.Aggregate())))

	all, err := s.ListAccounts(ctx, agg, position.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alice", all[0].Name)
	assert.Equal(t, "carol", all[2].Name)

	page, err := s.ListAccounts(ctx, agg, position.ListOpts{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "bob", page[0].Name)

	past, err := s.ListAccounts(ctx, agg, position.ListOpts{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Ping(ctx), yieldledger.ErrStoreClosed)
	key := position.Key{TenantID: "t1", Account: "alice", Token: "ayUSD"}
	assert.ErrorIs(t, s.Commit(ctx, nil, position.NewAggregate(key.Aggregate())), yieldledger.ErrStoreClosed)
}
