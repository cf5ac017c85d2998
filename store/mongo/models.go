package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/yieldledger/fixedpoint"
	"github.com/xraph/yieldledger/position"
	"github.com/xraph/yieldledger/types"
)

// ==================== Balance models ====================

// balanceModel stores both row kinds. The aggregate row of a (tenant, token)
// has an empty account. Amounts are base-10 strings of the scaled value.
type balanceModel struct {
	grove.BaseModel `grove:"table:yieldledger_balances"`

	BalanceKey       string    `grove:"balance_key,pk"    bson:"_id"`
	TenantID         string    `grove:"tenant_id"         bson:"tenant_id"`
	Token            string    `grove:"token"             bson:"token"`
	Account          string    `grove:"account"           bson:"account"`
	CollateralShares string    `grove:"collateral_shares" bson:"collateral_shares"`
	Collateral       string    `grove:"collateral"        bson:"collateral"`
	Debt             string    `grove:"debt"              bson:"debt"`
	Yield            string    `grove:"yield"             bson:"yield"`
	YieldObserved    string    `grove:"yield_observed"    bson:"yield_observed"`
	RevenueShares    string    `grove:"revenue_shares"    bson:"revenue_shares"`
	CreatedAt        time.Time `grove:"created_at"        bson:"created_at"`
	UpdatedAt        time.Time `grove:"updated_at"        bson:"updated_at"`
}

func toAccountModel(a *position.Account) balanceModel {
	return balanceModel{
		BalanceKey:       a.Key().String(),
		TenantID:         a.TenantID,
		Token:            a.Token,
		Account:          a.Name,
		CollateralShares: a.CollateralShares.Dec(),
		Collateral:       a.Collateral.Dec(),
		Debt:             a.Debt.Dec(),
		Yield:            a.YieldAccrued.Dec(),
		YieldObserved:    a.YieldObserved.Dec(),
		RevenueShares:    "0",
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func toAggregateModel(g *position.Aggregate) balanceModel {
	return balanceModel{
		BalanceKey:       g.Key().String(),
		TenantID:         g.TenantID,
		Token:            g.Token,
		CollateralShares: g.TotalCollateralShares.Dec(),
		Collateral:       g.TotalCollateral.Dec(),
		Debt:             g.TotalDebt.Dec(),
		Yield:            g.TotalYield.Dec(),
		YieldObserved:    "0",
		RevenueShares:    g.TotalRevenueShares.Dec(),
		CreatedAt:        g.CreatedAt,
		UpdatedAt:        g.UpdatedAt,
	}
}

func fromAccountModel(m *balanceModel) (*position.Account, error) {
	a := &position.Account{
		Entity:   types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		TenantID: m.TenantID,
		Name:     m.Account,
		Token:    m.Token,
	}
	var err error
	if a.CollateralShares, err = fixedpoint.Parse(m.CollateralShares); err != nil {
		return nil, fmt.Errorf("yieldledger/mongo: %s collateral_shares: %w", m.BalanceKey, err)
	}
	if a.Collateral, err = fixedpoint.Parse(m.Collateral); err != nil {
		return nil, fmt.Errorf("yieldledger/mongo: %s collateral: %w", m.BalanceKey, err)
	}
	if a.Debt, err = fixedpoint.Parse(m.Debt); err != nil {
		return nil, fmt.Errorf("yieldledger/mongo: %s debt: %w", m.BalanceKey, err)
	}
	if a.YieldAccrued, err = fixedpoint.Parse(m.Yield); err != nil {
		return nil, fmt.Errorf("yieldledger/mongo: %s yield: %w", m.BalanceKey, err)
	}
	if a.YieldObserved, err = fixedpoint.Parse(m.YieldObserved); err != nil {
		return nil, fmt.Errorf("yieldledger/mongo: %s yield_observed: %w", m.BalanceKey, err)
	}
	return a, nil
}

func fromAggregateModel(m *balanceModel) (*position.Aggregate, error) {
	g := &position.Aggregate{
		Entity:   types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		TenantID: m.TenantID,
		Token:    m.Token,
	}
	var err error
	if g.TotalCollateralShares, err = fixedpoint.Parse(m.CollateralShares); err != nil {
		return nil, fmt.Errorf("yieldledger/mongo: %s collateral_shares: %w", m.BalanceKey, err)
	}
	if g.TotalCollateral, err = fixedpoint.Parse(m.Collateral); err != nil {
		return nil, fmt.Errorf("yieldledger/mongo: %s collateral: %w", m.BalanceKey, err)
	}
	if g.TotalDebt, err = fixedpoint.Parse(m.Debt); err != nil {
		return nil, fmt.Errorf("yieldledger/mongo: %s debt: %w", m.BalanceKey, err)
	}
	if g.TotalYield, err = fixedpoint.Parse(m.Yield); err != nil {
		return nil, fmt.Errorf("yieldledger/mongo: %s yield: %w", m.BalanceKey, err)
	}
	if g.TotalRevenueShares, err = fixedpoint.Parse(m.RevenueShares); err != nil {
		return nil, fmt.Errorf("yieldledger/mongo: %s revenue_shares: %w", m.BalanceKey, err)
	}
	return g, nil
}
