// Package position defines the per-account and per-tenant balance rows of the
// yield ledger and the Book that mutates them in lock-step.
package position

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/xraph/yieldledger/fixedpoint"
	"github.com/xraph/yieldledger/types"
)

// Key scopes a balance row. An empty Account addresses the tenant aggregate
// for the token.
type Key struct {
	TenantID string `json:"tenant_id"`
	Account  string `json:"account,omitempty"`
	Token    string `json:"token"`
}

// AggregateKey returns the key of the aggregate row for tenant and token.
func AggregateKey(tenantID, token string) Key {
	return Key{TenantID: tenantID, Token: token}
}

// Aggregate returns the key of the aggregate this account rolls up into.
func (k Key) Aggregate() Key {
	return Key{TenantID: k.TenantID, Token: k.Token}
}

// IsAggregate reports whether k addresses an aggregate row.
func (k Key) IsAggregate() bool { return k.Account == "" }

// String returns a collision-free encoding of the key. Tenant and token are
// length-prefixed so that no choice of names can make two keys collide.
func (k Key) String() string {
	return fmt.Sprintf("%d:%s:%d:%s:%s", len(k.TenantID), k.TenantID, len(k.Token), k.Token, k.Account)
}

// Account is the AccountLedger row for one (tenant, account, token).
type Account struct {
	types.Entity

	TenantID string `json:"tenant_id"`
	Name     string `json:"account"`
	Token    string `json:"token"`

	// CollateralShares are the index-denominated units held as collateral.
	CollateralShares *uint256.Int `json:"collateral_shares"`
	// Collateral is the cost basis recorded at deposit.
	Collateral *uint256.Int `json:"collateral"`
	// Debt is the outstanding advance, net of repayments and applied yield.
	Debt *uint256.Int `json:"debt"`
	// YieldAccrued is the yield credited to the account, net of what paid down debt.
	YieldAccrued *uint256.Int `json:"yield_accrued"`
	// YieldObserved is the share-value excess over cost basis already counted.
	YieldObserved *uint256.Int `json:"yield_observed"`
}

// NewAccount returns a zeroed account row for key.
func NewAccount(key Key) *Account {
	return &Account{
		Entity:           types.NewEntity(),
		TenantID:         key.TenantID,
		Name:             key.Account,
		Token:            key.Token,
		CollateralShares: fixedpoint.Zero(),
		Collateral:       fixedpoint.Zero(),
		Debt:             fixedpoint.Zero(),
		YieldAccrued:     fixedpoint.Zero(),
		YieldObserved:    fixedpoint.Zero(),
	}
}

// Key returns the row key.
func (a *Account) Key() Key {
	return Key{TenantID: a.TenantID, Account: a.Name, Token: a.Token}
}

// Clone returns a deep copy. Nil amounts come back as zero.
func (a *Account) Clone() *Account {
	c := *a
	c.CollateralShares = copyOrZero(a.CollateralShares)
	c.Collateral = copyOrZero(a.Collateral)
	c.Debt = copyOrZero(a.Debt)
	c.YieldAccrued = copyOrZero(a.YieldAccrued)
	c.YieldObserved = copyOrZero(a.YieldObserved)
	return &c
}

// Equal reports whether both rows hold the same balances.
func (a *Account) Equal(b *Account) bool {
	return a.Key() == b.Key() &&
		a.CollateralShares.Eq(b.CollateralShares) &&
		a.Collateral.Eq(b.Collateral) &&
		a.Debt.Eq(b.Debt) &&
		a.YieldAccrued.Eq(b.YieldAccrued) &&
		a.YieldObserved.Eq(b.YieldObserved)
}

// Aggregate is the TenantAggregate row for one (tenant, token).
type Aggregate struct {
	types.Entity

	TenantID string `json:"tenant_id"`
	Token    string `json:"token"`

	TotalCollateralShares *uint256.Int `json:"total_collateral_shares"`
	TotalCollateral       *uint256.Int `json:"total_collateral"`
	TotalDebt             *uint256.Int `json:"total_debt"`
	TotalYield            *uint256.Int `json:"total_yield"`
	// TotalRevenueShares are fee shares owned by the tenant.
	TotalRevenueShares *uint256.Int `json:"total_revenue_shares"`
}

// NewAggregate returns a zeroed aggregate row for key.
func NewAggregate(key Key) *Aggregate {
	return &Aggregate{
		Entity:                types.NewEntity(),
		TenantID:              key.TenantID,
		Token:                 key.Token,
		TotalCollateralShares: fixedpoint.Zero(),
		TotalCollateral:       fixedpoint.Zero(),
		TotalDebt:             fixedpoint.Zero(),
		TotalYield:            fixedpoint.Zero(),
		TotalRevenueShares:    fixedpoint.Zero(),
	}
}

// Key returns the row key.
func (g *Aggregate) Key() Key { return AggregateKey(g.TenantID, g.Token) }

// Clone returns a deep copy. Nil amounts come back as zero.
func (g *Aggregate) Clone() *Aggregate {
	c := *g
	c.TotalCollateralShares = copyOrZero(g.TotalCollateralShares)
	c.TotalCollateral = copyOrZero(g.TotalCollateral)
	c.TotalDebt = copyOrZero(g.TotalDebt)
	c.TotalYield = copyOrZero(g.TotalYield)
	c.TotalRevenueShares = copyOrZero(g.TotalRevenueShares)
	return &c
}

// Equal reports whether both rows hold the same balances.
func (g *Aggregate) Equal(o *Aggregate) bool {
	return g.Key() == o.Key() &&
		g.TotalCollateralShares.Eq(o.TotalCollateralShares) &&
		g.TotalCollateral.Eq(o.TotalCollateral) &&
		g.TotalDebt.Eq(o.TotalDebt) &&
		g.TotalYield.Eq(o.TotalYield) &&
		g.TotalRevenueShares.Eq(o.TotalRevenueShares)
}

// ListOpts pages through the accounts of one (tenant, token).
type ListOpts struct {
	Limit  int
	Offset int
}

func copyOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return fixedpoint.Zero()
	}
	return new(uint256.Int).Set(v)
}
