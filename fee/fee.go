// Package fee computes origination fees for advances.
//
// The fee is a flat base percentage of the advance plus a surcharge that grows
// linearly with how much of the posted collateral the advance draws down:
//
//	fee = advance * (base + 100*advance/collateral) / 100
//
// Evaluated in raw token units with floor division, before any scaling.
package fee

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/xraph/yieldledger/fixedpoint"
)

var (
	// ErrZeroCollateral is returned when the collateral is zero.
	ErrZeroCollateral = errors.New("fee: collateral must be positive")

	// ErrFeeExceedsAdvance is returned when the fee would be larger than the
	// advance it is charged on.
	ErrFeeExceedsAdvance = errors.New("fee: fee exceeds advance")
)

var hundred = uint256.NewInt(100)

// Schedule parameterises the fee curve.
type Schedule struct {
	// BasePercent is the flat fee charged on every advance, in percent.
	BasePercent uint64 `json:"base_percent" mapstructure:"base_percent" yaml:"base_percent"`
}

// Default is the 10% base schedule.
var Default = Schedule{BasePercent: 10}

// Compute returns the fee for an advance against collateral, both raw.
func (s Schedule) Compute(collateral, advance *uint256.Int) (*uint256.Int, error) {
	if collateral == nil || collateral.IsZero() {
		return nil, ErrZeroCollateral
	}
	if advance == nil || advance.IsZero() {
		return fixedpoint.Zero(), nil
	}

	// 100*advance/collateral
	ratio, err := fixedpoint.Mul(hundred, advance)
	if err != nil {
		return nil, err
	}
	ratio.Div(ratio, collateral)

	rate, err := fixedpoint.Add(uint256.NewInt(s.BasePercent), ratio)
	if err != nil {
		return nil, err
	}
	f, err := fixedpoint.Mul(advance, rate)
	if err != nil {
		return nil, err
	}
	f.Div(f, hundred)

	if f.Gt(advance) {
		return nil, fmt.Errorf("%w: fee %s on advance %s", ErrFeeExceedsAdvance, f.Dec(), advance.Dec())
	}
	return f, nil
}

// Compute applies the Default schedule.
func Compute(collateral, advance *uint256.Int) (*uint256.Int, error) {
	return Default.Compute(collateral, advance)
}
