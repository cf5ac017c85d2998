// Package event defines the notifications the ledger emits after a
// successful commit. Every event carries its own TypeID and the
// (tenant, account, token) it concerns.
package event

import (
	"time"

	"github.com/holiman/uint256"

	"github.com/xraph/yieldledger/id"
)

// Kind names an event type.
type Kind string

const (
	KindAdvanceIssued       Kind = "advance.issued"
	KindYieldApplied        Kind = "yield.applied"
	KindAdvanceRepaid       Kind = "advance.repaid"
	KindCollateralWithdrawn Kind = "collateral.withdrawn"
	KindRevenueClaimed      Kind = "revenue.claimed"
)

// Event is implemented by every event type.
type Event interface {
	EventMeta() Meta
	Kind() Kind
}

// Meta is the envelope shared by all events.
type Meta struct {
	ID         id.ID     `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Account    string    `json:"account,omitempty"`
	Token      string    `json:"token"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewMeta stamps a new envelope.
func NewMeta(prefix id.Prefix, tenantID, account, token string) Meta {
	return Meta{
		ID:         id.New(prefix),
		TenantID:   tenantID,
		Account:    account,
		Token:      token,
		OccurredAt: time.Now().UTC(),
	}
}

// EventMeta implements Event.
func (m Meta) EventMeta() Meta { return m }

// AdvanceIssued is emitted by GetAdvance.
type AdvanceIssued struct {
	Meta
	Index *uint256.Int
	// Collateral is the scaled collateral deposited with the advance.
	Collateral *uint256.Int
	// Advance is the scaled requested advance.
	Advance *uint256.Int
	Fee     *uint256.Int
	// AdvanceWithFee is Advance + Fee.
	AdvanceWithFee *uint256.Int
	// Debt is the debt added by this advance under the configured policy.
	Debt *uint256.Int
	// Net is what the custodian should disburse.
	Net              *uint256.Int
	CollateralShares *uint256.Int
	RevenueShares    *uint256.Int
}

// Kind implements Event.
func (AdvanceIssued) Kind() Kind { return KindAdvanceIssued }

// YieldApplied is emitted when an operation's prelude observed fresh yield.
type YieldApplied struct {
	Meta
	Index *uint256.Int
	// Tracked is the yield newly observed.
	Tracked *uint256.Int
	// Applied is the part of Tracked that paid down debt.
	Applied   *uint256.Int
	DebtAfter *uint256.Int
}

// Kind implements Event.
func (YieldApplied) Kind() Kind { return KindYieldApplied }

// AdvanceRepaid is emitted when a deposit reduced debt.
type AdvanceRepaid struct {
	Meta
	Amount    *uint256.Int
	DebtAfter *uint256.Int
}

// Kind implements Event.
func (AdvanceRepaid) Kind() Kind { return KindAdvanceRepaid }

// CollateralWithdrawn is emitted by WithdrawCollateral.
type CollateralWithdrawn struct {
	Meta
	Index      *uint256.Int
	Collateral *uint256.Int
	Shares     *uint256.Int
	// ResidualShares are the shares above the cost basis at withdrawal.
	ResidualShares *uint256.Int
	// ResidualToRevenue is true when ResidualShares went to the revenue pool.
	ResidualToRevenue bool
}

// Kind implements Event.
func (CollateralWithdrawn) Kind() Kind { return KindCollateralWithdrawn }

// RevenueClaimed is emitted by ClaimRevenue. Account is empty.
type RevenueClaimed struct {
	Meta
	Shares *uint256.Int
	// Amount is what the claim returned: Shares, or their value.
	Amount *uint256.Int
	// AsValue is true when Amount is the value of Shares at Index.
	AsValue bool
	Index   *uint256.Int
}

// Kind implements Event.
func (RevenueClaimed) Kind() Kind { return KindRevenueClaimed }
