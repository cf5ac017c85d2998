// Package yieldledger provides a share-based yield accounting ledger for Go
// applications.
//
// Yieldledger is a library, not a service. A tenant (the integrating
// protocol) posts yield-bearing collateral for its accounts and draws
// advances against it. The ledger converts collateral into index-pegged
// shares, charges an origination fee into a tenant-owned revenue pool, and
// pays debt down from yield as the external index grows. It never moves
// tokens; every operation returns the amount the custodian should move.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/yieldledger"
//	    "github.com/xraph/yieldledger/oracle"
//	    "github.com/xraph/yieldledger/store/postgres"
//	)
//
//	s := postgres.New(db)
//	l := yieldledger.New(s, myIndexOracle)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	ctx = yieldledger.WithTenant(ctx, "protocol-a")
//	net, err := l.GetAdvance(ctx, "alice", "ayUSD", uint256.NewInt(100), uint256.NewInt(20))
//
// # Fixed point
//
// Every amount is a uint256 scaled by 10^27 (see package fixedpoint).
// Raw inputs such as collateral and repayment amounts are whole token units
// and are scaled on entry. Share value is computed rounding up; share minting
// rounds down.
//
// # Yield and debt
//
// An account's yield is the excess of its share value over its cost basis.
// Yield is observed lazily, on the next GetAdvance, RepayAdvanceWithDeposit,
// WithdrawCollateral or GetDebt for that account, and is spent on debt first.
// Collateral can only be withdrawn once debt is zero.
//
// # Configuration decisions
//
// DebtPolicy, ResidualPolicy and RevenueClaimMode select between the
// variants a deployment may need. The defaults record the gross advance as
// debt, discard residual share value on withdrawal, and claim revenue as a
// share count.
//
// # TypeID
//
// Every emitted event carries a TypeID:
//
//	adv_01h2xcejqtf2nbrexx3vqjhp41  // advance issued
//	yld_01h2xcejqtf2nbrexx3vqjhp41  // yield applied
//	wdr_01h455vb4pex5vsknk084sn02q  // collateral withdrawn
package yieldledger
