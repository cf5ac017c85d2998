// Package audithook bridges ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/yieldledger/event"
	"github.com/xraph/yieldledger/fixedpoint"
	"github.com/xraph/yieldledger/plugin"
	"github.com/xraph/yieldledger/position"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnAdvanceIssued       = (*Extension)(nil)
	_ plugin.OnYieldApplied        = (*Extension)(nil)
	_ plugin.OnAdvanceRepaid       = (*Extension)(nil)
	_ plugin.OnCollateralWithdrawn = (*Extension)(nil)
	_ plugin.OnRevenueClaimed      = (*Extension)(nil)
	_ plugin.OnOperationFailed     = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	TenantID   string         `json:"tenant_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Credit hooks
// ──────────────────────────────────────────────────

// OnAdvanceIssued implements plugin.OnAdvanceIssued.
func (e *Extension) OnAdvanceIssued(ctx context.Context, ev *event.AdvanceIssued) error {
	return e.record(ctx, ActionAdvanceIssued, SeverityInfo, OutcomeSuccess,
		ResourceAccount, CategoryCredit, ev.Meta, nil,
		"collateral", fixedpoint.Format(ev.Collateral),
		"advance", fixedpoint.Format(ev.Advance),
		"fee", fixedpoint.Format(ev.Fee),
		"debt", fixedpoint.Format(ev.Debt),
		"net", fixedpoint.Format(ev.Net),
	)
}

// OnAdvanceRepaid implements plugin.OnAdvanceRepaid.
func (e *Extension) OnAdvanceRepaid(ctx context.Context, ev *event.AdvanceRepaid) error {
	return e.record(ctx, ActionAdvanceRepaid, SeverityInfo, OutcomeSuccess,
		ResourceAccount, CategoryCredit, ev.Meta, nil,
		"amount", fixedpoint.Format(ev.Amount),
		"debt_after", fixedpoint.Format(ev.DebtAfter),
	)
}

// ──────────────────────────────────────────────────
// Yield hooks
// ──────────────────────────────────────────────────

// OnYieldApplied implements plugin.OnYieldApplied.
func (e *Extension) OnYieldApplied(ctx context.Context, ev *event.YieldApplied) error {
	return e.record(ctx, ActionYieldApplied, SeverityInfo, OutcomeSuccess,
		ResourceAccount, CategoryYield, ev.Meta, nil,
		"index", fixedpoint.Format(ev.Index),
		"tracked", fixedpoint.Format(ev.Tracked),
		"applied", fixedpoint.Format(ev.Applied),
	)
}

// ──────────────────────────────────────────────────
// Collateral and revenue hooks
// ──────────────────────────────────────────────────

// OnCollateralWithdrawn implements plugin.OnCollateralWithdrawn.
func (e *Extension) OnCollateralWithdrawn(ctx context.Context, ev *event.CollateralWithdrawn) error {
	return e.record(ctx, ActionCollateralWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourceAccount, CategoryCollateral, ev.Meta, nil,
		"collateral", fixedpoint.Format(ev.Collateral),
		"shares", fixedpoint.Format(ev.Shares),
		"residual_shares", fixedpoint.Format(ev.ResidualShares),
		"residual_to_revenue", ev.ResidualToRevenue,
	)
}

// OnRevenueClaimed implements plugin.OnRevenueClaimed.
func (e *Extension) OnRevenueClaimed(ctx context.Context, ev *event.RevenueClaimed) error {
	return e.record(ctx, ActionRevenueClaimed, SeverityInfo, OutcomeSuccess,
		ResourceAggregate, CategoryRevenue, ev.Meta, nil,
		"shares", fixedpoint.Format(ev.Shares),
		"amount", fixedpoint.Format(ev.Amount),
		"as_value", ev.AsValue,
	)
}

// OnOperationFailed implements plugin.OnOperationFailed.
func (e *Extension) OnOperationFailed(ctx context.Context, op string, key position.Key, err error) error {
	meta := event.Meta{TenantID: key.TenantID, Account: key.Account, Token: key.Token}
	resource := ResourceAccount
	if key.IsAggregate() {
		resource = ResourceAggregate
	}
	return e.record(ctx, ActionOperationFailed, SeverityWarning, OutcomeFailure,
		resource, CategoryCredit, meta, err,
		"operation", op,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, category string,
	m event.Meta,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+3)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}
	meta["token"] = m.Token
	if m.Account != "" {
		meta["account"] = m.Account
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	var resourceID string
	if !m.ID.IsNil() {
		resourceID = m.ID.String()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		TenantID:   m.TenantID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
