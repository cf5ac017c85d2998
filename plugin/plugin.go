// Package plugin provides the hook system for the yield ledger.
// Plugins implement any subset of the On* interfaces and are called after the
// ledger commits the change they describe.
package plugin

import (
	"context"

	"github.com/xraph/yieldledger/event"
	"github.com/xraph/yieldledger/position"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l any) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnAdvanceIssued is called after an advance is committed.
type OnAdvanceIssued interface {
	Plugin
	OnAdvanceIssued(ctx context.Context, e *event.AdvanceIssued) error
}

// OnYieldApplied is called after fresh yield was observed and committed.
type OnYieldApplied interface {
	Plugin
	OnYieldApplied(ctx context.Context, e *event.YieldApplied) error
}

// OnAdvanceRepaid is called after a repayment reduced debt.
type OnAdvanceRepaid interface {
	Plugin
	OnAdvanceRepaid(ctx context.Context, e *event.AdvanceRepaid) error
}

// OnCollateralWithdrawn is called after collateral is released.
type OnCollateralWithdrawn interface {
	Plugin
	OnCollateralWithdrawn(ctx context.Context, e *event.CollateralWithdrawn) error
}

// OnRevenueClaimed is called after the tenant claims its revenue shares.
type OnRevenueClaimed interface {
	Plugin
	OnRevenueClaimed(ctx context.Context, e *event.RevenueClaimed) error
}

// OnOperationFailed is called when a mutating operation returns an error.
// Nothing was committed.
type OnOperationFailed interface {
	Plugin
	OnOperationFailed(ctx context.Context, op string, key position.Key, err error) error
}
