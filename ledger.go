package yieldledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/holiman/uint256"

	"github.com/xraph/yieldledger/event"
	"github.com/xraph/yieldledger/fee"
	"github.com/xraph/yieldledger/fixedpoint"
	"github.com/xraph/yieldledger/id"
	"github.com/xraph/yieldledger/oracle"
	"github.com/xraph/yieldledger/plugin"
	"github.com/xraph/yieldledger/position"
	"github.com/xraph/yieldledger/store"
)

// Ledger is the share-based yield accounting engine.
type Ledger struct {
	store   store.Store
	oracle  oracle.Oracle
	plugins *plugin.Registry
	logger  *slog.Logger
	locks   keyedMutex

	// Configuration
	fees           fee.Schedule
	debtPolicy     DebtPolicy
	residualPolicy ResidualPolicy
	claimMode      RevenueClaimMode
	skipMigrate    bool
}

// New creates a new Ledger over s, reading indexes from o.
func New(s store.Store, o oracle.Oracle, opts ...Option) *Ledger {
	l := &Ledger{
		store:   s,
		oracle:  o,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		fees:    fee.Default,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // duplicate names are logged by the registry
	}
}

// WithFeeSchedule replaces the default 10% base fee schedule.
func WithFeeSchedule(s fee.Schedule) Option {
	return func(l *Ledger) { l.fees = s }
}

// WithDebtPolicy sets how the fee relates to recorded debt.
func WithDebtPolicy(p DebtPolicy) Option {
	return func(l *Ledger) { l.debtPolicy = p }
}

// WithResidualPolicy sets what happens to residual share value on withdrawal.
func WithResidualPolicy(p ResidualPolicy) Option {
	return func(l *Ledger) { l.residualPolicy = p }
}

// WithRevenueClaimMode sets what ClaimRevenue returns.
func WithRevenueClaimMode(m RevenueClaimMode) Option {
	return func(l *Ledger) { l.claimMode = m }
}

// WithoutMigrate skips store migration in Start.
func WithoutMigrate() Option {
	return func(l *Ledger) { l.skipMigrate = true }
}

// Store returns the underlying store.
func (l *Ledger) Store() store.Store { return l.store }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Start migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if !l.skipMigrate {
		if err := l.store.Migrate(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("yieldledger started",
		"debt_policy", l.debtPolicy.String(),
		"residual_policy", l.residualPolicy.String(),
		"revenue_claim_mode", l.claimMode.String(),
		"fee_base_percent", l.fees.BasePercent,
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (l *Ledger) Stop() error {
	l.plugins.EmitShutdown(context.Background())
	l.logger.Info("yieldledger stopped")
	return l.store.Close()
}

// ──────────────────────────────────────────────────
// Advances
// ──────────────────────────────────────────────────

// GetAdvance deposits collateral and issues an advance against it. Both
// amounts are raw token units as attested by the caller. It returns the
// scaled amount the custodian should disburse.
func (l *Ledger) GetAdvance(ctx context.Context, account, token string, collateral, advance *uint256.Int) (*uint256.Int, error) {
	if collateral == nil || advance == nil {
		return nil, ValidationError{Field: "amount", Message: "collateral and advance are required"}
	}

	var net *uint256.Int
	err := l.mutate(ctx, "GetAdvance", account, token, func(tx *txn) error {
		f, err := l.fees.Compute(collateral, advance)
		if err != nil {
			if errors.Is(err, fee.ErrZeroCollateral) {
				return fmt.Errorf("%w: %w", ErrInvalidInput, err)
			}
			return err
		}

		collateralFixed, err := fixedpoint.ToFixed(collateral)
		if err != nil {
			return err
		}
		advanceFixed, err := fixedpoint.ToFixed(advance)
		if err != nil {
			return err
		}
		feeFixed, err := fixedpoint.ToFixed(f)
		if err != nil {
			return err
		}

		index, err := tx.index()
		if err != nil {
			return err
		}
		shares, err := fixedpoint.DivIndex(collateralFixed, index)
		if err != nil {
			return err
		}
		revenueShares, err := fixedpoint.DivIndex(feeFixed, index)
		if err != nil {
			return err
		}

		if err := tx.settle(); err != nil {
			return err
		}

		debt := advanceFixed
		net = new(uint256.Int).Sub(advanceFixed, feeFixed) // fee <= advance
		withFee, err := fixedpoint.Add(advanceFixed, feeFixed)
		if err != nil {
			return err
		}
		if l.debtPolicy == DebtAdvancePlusFee {
			debt, net = withFee, advanceFixed
		}

		if err := tx.book.Deposit(shares, collateralFixed, index); err != nil {
			return err
		}
		if err := tx.book.Borrow(debt); err != nil {
			return err
		}
		if err := tx.book.AccrueRevenue(revenueShares); err != nil {
			return err
		}

		e := &event.AdvanceIssued{
			Meta:             tx.meta(id.PrefixAdvance),
			Index:            index,
			Collateral:       collateralFixed,
			Advance:          advanceFixed,
			Fee:              feeFixed,
			AdvanceWithFee:   withFee,
			Debt:             debt,
			Net:              net,
			CollateralShares: shares,
			RevenueShares:    revenueShares,
		}
		tx.onCommit(func(ctx context.Context) { l.plugins.EmitAdvanceIssued(ctx, e) })
		tx.log("advance issued",
			"collateral", fixedpoint.Format(collateralFixed),
			"advance", fixedpoint.Format(advanceFixed),
			"fee", fixedpoint.Format(feeFixed),
			"net", fixedpoint.Format(net),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return net, nil
}

// RepayAdvanceWithDeposit applies a raw repayment to the account's debt and
// returns the debt left. The payment is ignored, without error, unless
// 0 < amount <= current debt.
func (l *Ledger) RepayAdvanceWithDeposit(ctx context.Context, account, token string, amount *uint256.Int) (*uint256.Int, error) {
	if amount == nil {
		return nil, ValidationError{Field: "amount", Message: "amount is required"}
	}

	var remaining *uint256.Int
	err := l.mutate(ctx, "RepayAdvanceWithDeposit", account, token, func(tx *txn) error {
		amountFixed, err := fixedpoint.ToFixed(amount)
		if err != nil {
			return err
		}
		if err := tx.settle(); err != nil {
			return err
		}
		applied, err := tx.book.Repay(amountFixed)
		if err != nil {
			return err
		}
		remaining = new(uint256.Int).Set(tx.book.Account.Debt)
		if !applied {
			tx.log("repayment ignored", "amount", fixedpoint.Format(amountFixed), "debt", fixedpoint.Format(remaining))
			return nil
		}

		e := &event.AdvanceRepaid{
			Meta:      tx.meta(id.PrefixRepayment),
			Amount:    amountFixed,
			DebtAfter: remaining,
		}
		tx.onCommit(func(ctx context.Context) { l.plugins.EmitAdvanceRepaid(ctx, e) })
		tx.log("advance repaid", "amount", fixedpoint.Format(amountFixed), "debt", fixedpoint.Format(remaining))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return remaining, nil
}

// WithdrawCollateral releases the account's collateral and returns its cost
// basis. It fails with ErrRepayAdvanceToWithdraw while any debt remains after
// yield is applied.
func (l *Ledger) WithdrawCollateral(ctx context.Context, account, token string) (*uint256.Int, error) {
	var released *uint256.Int
	err := l.mutate(ctx, "WithdrawCollateral", account, token, func(tx *txn) error {
		if err := tx.settle(); err != nil {
			return err
		}
		if !tx.book.Account.Debt.IsZero() {
			return fmt.Errorf("%w: %s outstanding", ErrRepayAdvanceToWithdraw, fixedpoint.Format(tx.book.Account.Debt))
		}

		index, err := tx.index()
		if err != nil {
			return err
		}
		w, err := tx.book.Withdraw(index)
		if err != nil {
			return err
		}
		toRevenue := l.residualPolicy == ResidualToRevenue && !w.ResidualShares.IsZero()
		if toRevenue {
			if err := tx.book.AccrueRevenue(w.ResidualShares); err != nil {
				return err
			}
		}
		released = w.Collateral

		if w.Shares.IsZero() && w.Collateral.IsZero() {
			return nil
		}
		e := &event.CollateralWithdrawn{
			Meta:              tx.meta(id.PrefixWithdrawal),
			Index:             index,
			Collateral:        w.Collateral,
			Shares:            w.Shares,
			ResidualShares:    w.ResidualShares,
			ResidualToRevenue: toRevenue,
		}
		tx.onCommit(func(ctx context.Context) { l.plugins.EmitCollateralWithdrawn(ctx, e) })
		tx.log("collateral withdrawn",
			"collateral", fixedpoint.Format(w.Collateral),
			"residual_shares", fixedpoint.Format(w.ResidualShares),
			"residual_to_revenue", toRevenue,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// GetDebt applies any fresh yield and returns the account's current debt.
func (l *Ledger) GetDebt(ctx context.Context, account, token string) (*uint256.Int, error) {
	var debt *uint256.Int
	err := l.mutate(ctx, "GetDebt", account, token, func(tx *txn) error {
		if err := tx.settle(); err != nil {
			return err
		}
		debt = new(uint256.Int).Set(tx.book.Account.Debt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return debt, nil
}

// ──────────────────────────────────────────────────
// Revenue
// ──────────────────────────────────────────────────

// ClaimRevenue empties the tenant's revenue pool for token. It returns the
// share count, or their value when the ledger is configured with ClaimValue.
func (l *Ledger) ClaimRevenue(ctx context.Context, token string) (*uint256.Int, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	key := position.AggregateKey(tenantID, token)
	if token == "" {
		return nil, ValidationError{Field: "token", Message: "token is required"}
	}

	unlock := l.locks.lock(key.String())
	out, e, err := l.claimRevenue(ctx, key)
	unlock()

	if err != nil {
		l.plugins.EmitOperationFailed(ctx, "ClaimRevenue", key, err)
		return nil, err
	}
	l.plugins.EmitRevenueClaimed(ctx, e)
	return out, nil
}

func (l *Ledger) claimRevenue(ctx context.Context, key position.Key) (*uint256.Int, *event.RevenueClaimed, error) {
	agg, err := l.store.GetAggregate(ctx, key)
	if errors.Is(err, ErrAggregateNotFound) {
		return nil, nil, ErrNoRevenueToClaim
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load aggregate %s: %w", key, err)
	}
	if agg.TotalRevenueShares.IsZero() {
		return nil, nil, ErrNoRevenueToClaim
	}

	book, err := position.NewBook(nil, agg)
	if err != nil {
		return nil, nil, err
	}
	shares := book.ClaimRevenue()
	out := shares

	var index *uint256.Int
	if l.claimMode == ClaimValue {
		if index, err = oracle.Read(ctx, l.oracle, key.Token); err != nil {
			return nil, nil, err
		}
		if out, err = fixedpoint.MulIndexDown(shares, index); err != nil {
			return nil, nil, err
		}
	}

	agg.Touch()
	if err := l.store.Commit(ctx, nil, agg); err != nil {
		return nil, nil, fmt.Errorf("commit revenue claim: %w", err)
	}

	l.logger.Debug("revenue claimed",
		"tenant_id", key.TenantID,
		"token", key.Token,
		"shares", fixedpoint.Format(shares),
		"amount", fixedpoint.Format(out),
	)
	return out, &event.RevenueClaimed{
		Meta:    event.NewMeta(id.PrefixRevenue, key.TenantID, "", key.Token),
		Shares:  shares,
		Amount:  out,
		AsValue: l.claimMode == ClaimValue,
		Index:   index,
	}, nil
}

// ──────────────────────────────────────────────────
// Read-only queries
// ──────────────────────────────────────────────────

// GetShareValue returns the value of the account's collateral shares at the
// current index, rounded up.
func (l *Ledger) GetShareValue(ctx context.Context, account, token string) (*uint256.Int, error) {
	a, err := l.accountOrZero(ctx, account, token)
	if err != nil {
		return nil, err
	}
	index, err := oracle.Read(ctx, l.oracle, token)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulIndex(a.CollateralShares, index)
}

// GetAccountTotalYield returns the yield credited to the account as of its
// last settlement. It does not observe the current index.
func (l *Ledger) GetAccountTotalYield(ctx context.Context, account, token string) (*uint256.Int, error) {
	a, err := l.accountOrZero(ctx, account, token)
	if err != nil {
		return nil, err
	}
	return a.YieldAccrued, nil
}

// GetCollateralShares returns the account's collateral shares.
func (l *Ledger) GetCollateralShares(ctx context.Context, account, token string) (*uint256.Int, error) {
	a, err := l.accountOrZero(ctx, account, token)
	if err != nil {
		return nil, err
	}
	return a.CollateralShares, nil
}

// GetCollateralAmount returns the account's collateral cost basis.
func (l *Ledger) GetCollateralAmount(ctx context.Context, account, token string) (*uint256.Int, error) {
	a, err := l.accountOrZero(ctx, account, token)
	if err != nil {
		return nil, err
	}
	return a.Collateral, nil
}

// GetTotalDebt returns the tenant's total debt for token.
func (l *Ledger) GetTotalDebt(ctx context.Context, token string) (*uint256.Int, error) {
	g, err := l.aggregateOrZero(ctx, token)
	if err != nil {
		return nil, err
	}
	return g.TotalDebt, nil
}

// GetTotalYield returns the tenant's total credited yield for token.
func (l *Ledger) GetTotalYield(ctx context.Context, token string) (*uint256.Int, error) {
	g, err := l.aggregateOrZero(ctx, token)
	if err != nil {
		return nil, err
	}
	return g.TotalYield, nil
}

// GetTotalCollateral returns the tenant's total collateral cost basis for token.
func (l *Ledger) GetTotalCollateral(ctx context.Context, token string) (*uint256.Int, error) {
	g, err := l.aggregateOrZero(ctx, token)
	if err != nil {
		return nil, err
	}
	return g.TotalCollateral, nil
}

// GetTotalRevenueShares returns the unclaimed revenue shares for token.
func (l *Ledger) GetTotalRevenueShares(ctx context.Context, token string) (*uint256.Int, error) {
	g, err := l.aggregateOrZero(ctx, token)
	if err != nil {
		return nil, err
	}
	return g.TotalRevenueShares, nil
}

// GetTotalRevenueShareValue returns what the unclaimed revenue shares are
// worth at the current index, rounded down.
func (l *Ledger) GetTotalRevenueShareValue(ctx context.Context, token string) (*uint256.Int, error) {
	g, err := l.aggregateOrZero(ctx, token)
	if err != nil {
		return nil, err
	}
	index, err := oracle.Read(ctx, l.oracle, token)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulIndexDown(g.TotalRevenueShares, index)
}

// GetAccount returns a snapshot of the account row.
func (l *Ledger) GetAccount(ctx context.Context, account, token string) (*position.Account, error) {
	key, err := accountKey(ctx, account, token)
	if err != nil {
		return nil, err
	}
	return l.store.GetAccount(ctx, key)
}

// GetAggregate returns a snapshot of the tenant's aggregate row for token.
func (l *Ledger) GetAggregate(ctx context.Context, token string) (*position.Aggregate, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return l.store.GetAggregate(ctx, position.AggregateKey(tenantID, token))
}

// ListAccounts pages through the tenant's accounts for token, ordered by name.
func (l *Ledger) ListAccounts(ctx context.Context, token string, opts position.ListOpts) ([]*position.Account, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return l.store.ListAccounts(ctx, position.AggregateKey(tenantID, token), opts)
}

// VerifyAggregate re-sums every account row for token and compares the
// result with the aggregate row. It is an audit and never repairs anything.
func (l *Ledger) VerifyAggregate(ctx context.Context, token string) error {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return err
	}
	key := position.AggregateKey(tenantID, token)

	unlock := l.locks.lock(key.String())
	defer unlock()

	agg, err := l.store.GetAggregate(ctx, key)
	if errors.Is(err, ErrAggregateNotFound) {
		agg = position.NewAggregate(key)
	} else if err != nil {
		return err
	}

	sum := position.NewAggregate(key)
	sum.TotalRevenueShares = agg.TotalRevenueShares
	const page = 500
	for offset := 0; ; offset += page {
		accounts, err := l.store.ListAccounts(ctx, key, position.ListOpts{Limit: page, Offset: offset})
		if err != nil {
			return err
		}
		for _, a := range accounts {
			if err := addInto(sum, a); err != nil {
				return err
			}
		}
		if len(accounts) < page {
			break
		}
	}

	if !sum.Equal(agg) {
		return fmt.Errorf("%w: %s: debt %s vs %s, collateral %s vs %s, shares %s vs %s, yield %s vs %s",
			ErrAggregateDrift, key,
			fixedpoint.Format(agg.TotalDebt), fixedpoint.Format(sum.TotalDebt),
			fixedpoint.Format(agg.TotalCollateral), fixedpoint.Format(sum.TotalCollateral),
			fixedpoint.Format(agg.TotalCollateralShares), fixedpoint.Format(sum.TotalCollateralShares),
			fixedpoint.Format(agg.TotalYield), fixedpoint.Format(sum.TotalYield),
		)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func accountKey(ctx context.Context, account, token string) (position.Key, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return position.Key{}, err
	}
	if account == "" {
		return position.Key{}, ValidationError{Field: "account", Message: "account is required"}
	}
	if token == "" {
		return position.Key{}, ValidationError{Field: "token", Message: "token is required"}
	}
	return position.Key{TenantID: tenantID, Account: account, Token: token}, nil
}

func (l *Ledger) accountOrZero(ctx context.Context, account, token string) (*position.Account, error) {
	key, err := accountKey(ctx, account, token)
	if err != nil {
		return nil, err
	}
	a, err := l.store.GetAccount(ctx, key)
	if errors.Is(err, ErrAccountNotFound) {
		return position.NewAccount(key), nil
	}
	return a, err
}

func (l *Ledger) aggregateOrZero(ctx context.Context, token string) (*position.Aggregate, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	key := position.AggregateKey(tenantID, token)
	g, err := l.store.GetAggregate(ctx, key)
	if errors.Is(err, ErrAggregateNotFound) {
		return position.NewAggregate(key), nil
	}
	return g, err
}

func addInto(sum *position.Aggregate, a *position.Account) error {
	var err error
	if sum.TotalCollateralShares, err = fixedpoint.Add(sum.TotalCollateralShares, a.CollateralShares); err != nil {
		return err
	}
	if sum.TotalCollateral, err = fixedpoint.Add(sum.TotalCollateral, a.Collateral); err != nil {
		return err
	}
	if sum.TotalDebt, err = fixedpoint.Add(sum.TotalDebt, a.Debt); err != nil {
		return err
	}
	sum.TotalYield, err = fixedpoint.Add(sum.TotalYield, a.YieldAccrued)
	return err
}
