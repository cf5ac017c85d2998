package position

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/xraph/yieldledger/fixedpoint"
)

// ErrKeyMismatch is returned when a Book is built from an account and an
// aggregate that belong to different (tenant, token) pairs.
var ErrKeyMismatch = errors.New("position: account and aggregate keys differ")

// Book pairs an account with its aggregate. Every mutation goes through Book so
// that each per-account field and its aggregate total move together. On error
// the rows may be partially updated; callers work on clones and discard them.
type Book struct {
	Account   *Account
	Aggregate *Aggregate
}

// NewBook binds account to aggregate. Account may be nil for aggregate-only
// work such as revenue claims.
func NewBook(account *Account, aggregate *Aggregate) (*Book, error) {
	if account != nil && account.Key().Aggregate() != aggregate.Key() {
		return nil, fmt.Errorf("%w: %s vs %s", ErrKeyMismatch, account.Key(), aggregate.Key())
	}
	return &Book{Account: account, Aggregate: aggregate}, nil
}

// Deposit adds shares and cost basis, then re-baselines the yield checkpoint
// at index so the deposit itself is never counted as yield. The checkpoint
// never moves down; see TrackYield.
func (b *Book) Deposit(shares, collateral, index *uint256.Int) error {
	a, g := b.Account, b.Aggregate
	var err error
	if a.CollateralShares, err = fixedpoint.Add(a.CollateralShares, shares); err != nil {
		return err
	}
	if a.Collateral, err = fixedpoint.Add(a.Collateral, collateral); err != nil {
		return err
	}
	if g.TotalCollateralShares, err = fixedpoint.Add(g.TotalCollateralShares, shares); err != nil {
		return err
	}
	if g.TotalCollateral, err = fixedpoint.Add(g.TotalCollateral, collateral); err != nil {
		return err
	}
	excess, err := b.excess(index)
	if err != nil {
		return err
	}
	b.observe(excess)
	return nil
}

// Borrow adds debt to the account and the aggregate.
func (b *Book) Borrow(debt *uint256.Int) error {
	var err error
	if b.Account.Debt, err = fixedpoint.Add(b.Account.Debt, debt); err != nil {
		return err
	}
	b.Aggregate.TotalDebt, err = fixedpoint.Add(b.Aggregate.TotalDebt, debt)
	return err
}

// AccrueRevenue mints shares to the tenant's revenue pool.
func (b *Book) AccrueRevenue(shares *uint256.Int) error {
	var err error
	b.Aggregate.TotalRevenueShares, err = fixedpoint.Add(b.Aggregate.TotalRevenueShares, shares)
	return err
}

// ClaimRevenue zeroes the revenue pool and returns the shares it held.
func (b *Book) ClaimRevenue() *uint256.Int {
	shares := b.Aggregate.TotalRevenueShares
	b.Aggregate.TotalRevenueShares = fixedpoint.Zero()
	return shares
}

// TrackYield credits the yield that appeared since the last observation and
// returns it. Share value is measured rounding up. A second call at the same
// index returns zero. The checkpoint is a high-water mark: after the index
// dips, yield is only credited again once share value climbs past the best
// level already observed.
func (b *Book) TrackYield(index *uint256.Int) (*uint256.Int, error) {
	excess, err := b.excess(index)
	if err != nil {
		return nil, err
	}
	a, g := b.Account, b.Aggregate
	delta := fixedpoint.SaturatingSub(excess, a.YieldObserved)
	b.observe(excess)
	if delta.IsZero() {
		return delta, nil
	}
	if a.YieldAccrued, err = fixedpoint.Add(a.YieldAccrued, delta); err != nil {
		return nil, err
	}
	if g.TotalYield, err = fixedpoint.Add(g.TotalYield, delta); err != nil {
		return nil, err
	}
	return delta, nil
}

// ApplyYield spends freshly tracked yield against debt and returns the amount
// consumed. When y covers the debt, debt goes to zero and only the old debt is
// taken from yield; the surplus stays credited.
func (b *Book) ApplyYield(y *uint256.Int) (*uint256.Int, error) {
	a := b.Account
	if y.IsZero() || a.Debt.IsZero() {
		return fixedpoint.Zero(), nil
	}
	used := fixedpoint.Min(y, a.Debt)
	if err := b.reduceDebt(used); err != nil {
		return nil, err
	}
	var err error
	if a.YieldAccrued, err = fixedpoint.Sub(a.YieldAccrued, used); err != nil {
		return nil, err
	}
	if b.Aggregate.TotalYield, err = fixedpoint.Sub(b.Aggregate.TotalYield, used); err != nil {
		return nil, err
	}
	return used, nil
}

// Settle runs TrackYield then ApplyYield at index. It returns the fresh yield
// and the part of it that paid down debt.
func (b *Book) Settle(index *uint256.Int) (tracked, applied *uint256.Int, err error) {
	if tracked, err = b.TrackYield(index); err != nil {
		return nil, nil, err
	}
	if applied, err = b.ApplyYield(tracked); err != nil {
		return nil, nil, err
	}
	return tracked, applied, nil
}

// Repay reduces debt by amount when 0 < amount <= debt and reports whether it
// did. Any other amount leaves the rows untouched.
func (b *Book) Repay(amount *uint256.Int) (bool, error) {
	if amount.IsZero() || amount.Gt(b.Account.Debt) {
		return false, nil
	}
	if err := b.reduceDebt(amount); err != nil {
		return false, err
	}
	return true, nil
}

// Withdrawal is what Withdraw released.
type Withdrawal struct {
	// Collateral is the cost basis returned to the account holder.
	Collateral *uint256.Int
	// Shares is the share count removed from the account.
	Shares *uint256.Int
	// ResidualShares are shares beyond those needed to back Collateral at the
	// withdrawal index.
	ResidualShares *uint256.Int
}

// Withdraw zeroes the account's shares, cost basis and yield checkpoint and
// removes them from the aggregate. Debt must already be zero; the caller
// enforces that. YieldAccrued is kept as history.
func (b *Book) Withdraw(index *uint256.Int) (*Withdrawal, error) {
	a, g := b.Account, b.Aggregate
	backing, err := fixedpoint.DivIndexUp(a.Collateral, index)
	if err != nil {
		return nil, err
	}
	w := &Withdrawal{
		Collateral:     a.Collateral,
		Shares:         a.CollateralShares,
		ResidualShares: fixedpoint.SaturatingSub(a.CollateralShares, backing),
	}
	if g.TotalCollateralShares, err = fixedpoint.Sub(g.TotalCollateralShares, w.Shares); err != nil {
		return nil, err
	}
	if g.TotalCollateral, err = fixedpoint.Sub(g.TotalCollateral, w.Collateral); err != nil {
		return nil, err
	}
	a.CollateralShares = fixedpoint.Zero()
	a.Collateral = fixedpoint.Zero()
	a.YieldObserved = fixedpoint.Zero()
	return w, nil
}

func (b *Book) reduceDebt(amount *uint256.Int) error {
	var err error
	if b.Account.Debt, err = fixedpoint.Sub(b.Account.Debt, amount); err != nil {
		return err
	}
	b.Aggregate.TotalDebt, err = fixedpoint.Sub(b.Aggregate.TotalDebt, amount)
	return err
}

// observe raises the yield checkpoint to excess. It never lowers it.
func (b *Book) observe(excess *uint256.Int) {
	if excess.Gt(b.Account.YieldObserved) {
		b.Account.YieldObserved = excess
	}
}

// excess is max(0, value(shares) - cost basis) at index.
func (b *Book) excess(index *uint256.Int) (*uint256.Int, error) {
	value, err := fixedpoint.MulIndex(b.Account.CollateralShares, index)
	if err != nil {
		return nil, err
	}
	return fixedpoint.SaturatingSub(value, b.Account.Collateral), nil
}
