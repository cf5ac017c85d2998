package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/yieldledger/event"
	"github.com/xraph/yieldledger/fixedpoint"
	"github.com/xraph/yieldledger/id"
	"github.com/xraph/yieldledger/position"
)

func ray(n uint64) *uint256.Int {
	v, err := fixedpoint.ToFixed(uint256.NewInt(n))
	if err != nil {
		panic(err)
	}
	return v
}

func newExtension(t *testing.T) (*MetricsExtension, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewMetricsExtension(NewPrometheusFactory(reg)), reg
}

func TestAdvanceAndRepayCounters(t *testing.T) {
	m, _ := newExtension(t)
	ctx := context.Background()

	require.NoError(t, m.OnAdvanceIssued(ctx, &event.AdvanceIssued{
		Meta:    event.NewMeta(id.PrefixAdvance, "t1", "alice", "ayUSD"),
		Advance: ray(20),
		Fee:     ray(6),
	}))
	require.NoError(t, m.OnAdvanceRepaid(ctx, &event.AdvanceRepaid{
		Meta:      event.NewMeta(id.PrefixRepayment, "t1", "alice", "ayUSD"),
		Amount:    ray(5),
		DebtAfter: ray(15),
	}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdvancesIssued.(prometheus.Counter)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RepaymentsTotal.(prometheus.Counter)))
}

func TestYieldClearingDebt(t *testing.T) {
	m, _ := newExtension(t)
	ctx := context.Background()

	require.NoError(t, m.OnYieldApplied(ctx, &event.YieldApplied{
		Meta: event.NewMeta(id.PrefixYield, "t1", "alice", "ayUSD"), Index: ray(2),
		Tracked: ray(100), Applied: ray(20), DebtAfter: ray(0),
	}))
	require.NoError(t, m.OnYieldApplied(ctx, &event.YieldApplied{
		Meta: event.NewMeta(id.PrefixYield, "t1", "alice", "ayUSD"), Index: ray(3),
		Tracked: ray(100), Applied: ray(0), DebtAfter: ray(0),
	}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.YieldEvents.(prometheus.Counter)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DebtCleared.(prometheus.Counter)))
}

func TestWithdrawResidualRouting(t *testing.T) {
	m, _ := newExtension(t)
	ctx := context.Background()
	meta := event.NewMeta(id.PrefixWithdrawal, "t1", "alice", "ayUSD")

	require.NoError(t, m.OnCollateralWithdrawn(ctx, &event.CollateralWithdrawn{
		Meta: meta, Collateral: ray(100), Shares: ray(100), ResidualShares: ray(0),
	}))
	require.NoError(t, m.OnCollateralWithdrawn(ctx, &event.CollateralWithdrawn{
		Meta: meta, Collateral: ray(100), Shares: ray(100), ResidualShares: ray(50), ResidualToRevenue: true,
	}))
	require.NoError(t, m.OnCollateralWithdrawn(ctx, &event.CollateralWithdrawn{
		Meta: meta, Collateral: ray(100), Shares: ray(100), ResidualShares: ray(50),
	}))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Withdrawals.(prometheus.Counter)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResidualCaptured.(prometheus.Counter)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResidualDiscarded.(prometheus.Counter)))
}

func TestOperationErrors(t *testing.T) {
	m, _ := newExtension(t)
	key := position.Key{TenantID: "t1", Account: "alice", Token: "ayUSD"}
	require.NoError(t, m.OnOperationFailed(context.Background(), "get_advance", key, errors.New("boom")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationErrors.(prometheus.Counter)))
}

func TestPrometheusFactoryNames(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := NewPrometheusFactory(reg)

	c1 := f.Counter("yieldledger.advance.issued")
	c2 := f.Counter("yieldledger.advance.issued")
	assert.Same(t, c1, c2)
	c1.Inc()

	h := f.Histogram("yieldledger.advance.amount")
	h.Observe(14)

	n, err := testutil.GatherAndCount(reg, "yieldledger_advance_issued_total", "yieldledger_advance_amount")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestFactoriesShareRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewMetricsExtension(NewPrometheusFactory(reg))

	var second *MetricsExtension
	require.NotPanics(t, func() {
		second = NewMetricsExtension(NewPrometheusFactory(reg))
	})

	first.AdvancesIssued.Inc()
	second.AdvancesIssued.Inc()
	assert.Equal(t, 2.0, testutil.ToFloat64(first.AdvancesIssued.(prometheus.Counter)))
}
