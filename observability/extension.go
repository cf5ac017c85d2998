// Package observability provides a metrics extension for the yield ledger
// that records event counts and amounts through a MetricFactory.
package observability

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/xraph/yieldledger/event"
	"github.com/xraph/yieldledger/fixedpoint"
	"github.com/xraph/yieldledger/plugin"
	"github.com/xraph/yieldledger/position"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnAdvanceIssued       = (*MetricsExtension)(nil)
	_ plugin.OnYieldApplied        = (*MetricsExtension)(nil)
	_ plugin.OnAdvanceRepaid       = (*MetricsExtension)(nil)
	_ plugin.OnCollateralWithdrawn = (*MetricsExtension)(nil)
	_ plugin.OnRevenueClaimed      = (*MetricsExtension)(nil)
	_ plugin.OnOperationFailed     = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger-wide metrics.
// Register it as a ledger plugin to track credit activity.
type MetricsExtension struct {
	factory MetricFactory

	// Credit metrics
	AdvancesIssued  Counter
	AdvanceAmount   Histogram
	FeeAmount       Histogram
	RepaymentsTotal Counter
	RepaidAmount    Histogram

	// Yield metrics
	YieldEvents  Counter
	YieldTracked Histogram
	YieldApplied Histogram
	DebtCleared  Counter

	// Collateral metrics
	Withdrawals       Counter
	WithdrawnAmount   Histogram
	ResidualCaptured  Counter
	ResidualDiscarded Counter

	// Revenue metrics
	RevenueClaims Counter
	RevenueAmount Histogram

	// Error metrics
	OperationErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions, or NewPrometheusFactory standalone.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		AdvancesIssued:  factory.Counter("yieldledger.advance.issued"),
		AdvanceAmount:   factory.Histogram("yieldledger.advance.amount"),
		FeeAmount:       factory.Histogram("yieldledger.advance.fee"),
		RepaymentsTotal: factory.Counter("yieldledger.advance.repaid"),
		RepaidAmount:    factory.Histogram("yieldledger.advance.repaid_amount"),

		YieldEvents:  factory.Counter("yieldledger.yield.events"),
		YieldTracked: factory.Histogram("yieldledger.yield.tracked"),
		YieldApplied: factory.Histogram("yieldledger.yield.applied"),
		DebtCleared:  factory.Counter("yieldledger.yield.debt_cleared"),

		Withdrawals:       factory.Counter("yieldledger.collateral.withdrawn"),
		WithdrawnAmount:   factory.Histogram("yieldledger.collateral.withdrawn_amount"),
		ResidualCaptured:  factory.Counter("yieldledger.collateral.residual_captured"),
		ResidualDiscarded: factory.Counter("yieldledger.collateral.residual_discarded"),

		RevenueClaims: factory.Counter("yieldledger.revenue.claims"),
		RevenueAmount: factory.Histogram("yieldledger.revenue.amount"),

		OperationErrors: factory.Counter("yieldledger.operation.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// OnAdvanceIssued implements plugin.OnAdvanceIssued.
func (m *MetricsExtension) OnAdvanceIssued(_ context.Context, e *event.AdvanceIssued) error {
	m.AdvancesIssued.Inc()
	m.AdvanceAmount.Observe(display(e.Advance))
	m.FeeAmount.Observe(display(e.Fee))
	return nil
}

// OnYieldApplied implements plugin.OnYieldApplied.
func (m *MetricsExtension) OnYieldApplied(_ context.Context, e *event.YieldApplied) error {
	m.YieldEvents.Inc()
	m.YieldTracked.Observe(display(e.Tracked))
	m.YieldApplied.Observe(display(e.Applied))
	if !e.Applied.IsZero() && e.DebtAfter.IsZero() {
		m.DebtCleared.Inc()
	}
	return nil
}

// OnAdvanceRepaid implements plugin.OnAdvanceRepaid.
func (m *MetricsExtension) OnAdvanceRepaid(_ context.Context, e *event.AdvanceRepaid) error {
	m.RepaymentsTotal.Inc()
	m.RepaidAmount.Observe(display(e.Amount))
	return nil
}

// OnCollateralWithdrawn implements plugin.OnCollateralWithdrawn.
func (m *MetricsExtension) OnCollateralWithdrawn(_ context.Context, e *event.CollateralWithdrawn) error {
	m.Withdrawals.Inc()
	m.WithdrawnAmount.Observe(display(e.Collateral))
	if e.ResidualShares.IsZero() {
		return nil
	}
	if e.ResidualToRevenue {
		m.ResidualCaptured.Inc()
	} else {
		m.ResidualDiscarded.Inc()
	}
	return nil
}

// OnRevenueClaimed implements plugin.OnRevenueClaimed.
func (m *MetricsExtension) OnRevenueClaimed(_ context.Context, e *event.RevenueClaimed) error {
	m.RevenueClaims.Inc()
	m.RevenueAmount.Observe(display(e.Amount))
	return nil
}

// OnOperationFailed implements plugin.OnOperationFailed.
func (m *MetricsExtension) OnOperationFailed(_ context.Context, _ string, _ position.Key, _ error) error {
	m.OperationErrors.Inc()
	return nil
}

// display converts a scaled amount into token units for histograms.
func display(v *uint256.Int) float64 {
	return fixedpoint.ToDecimal(v).InexactFloat64()
}
