package fixedpoint

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Parse parses a base-10 integer string that is already at the internal scale.
func Parse(s string) (*uint256.Int, error) {
	if s == "" {
		return Zero(), nil
	}
	z, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("fixedpoint: parse %q: %w", s, err)
	}
	return z, nil
}

// MustParse is like Parse but panics on error. Use for constants and tests.
func MustParse(s string) *uint256.Int {
	z, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return z
}

// ToDecimal converts a scaled value to a human-readable decimal.
func ToDecimal(v *uint256.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.ToBig(), -Decimals)
}

// FromDecimal lifts a human-readable decimal ("14.5") into the internal scale.
// Negative values and values with more than Decimals fractional digits are
// rejected.
func FromDecimal(d decimal.Decimal) (*uint256.Int, error) {
	if d.IsNegative() {
		return nil, fmt.Errorf("fixedpoint: negative amount %s", d.String())
	}
	shifted := d.Shift(Decimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("fixedpoint: %s has more than %d fractional digits", d.String(), Decimals)
	}
	z, overflow := uint256.FromBig(shifted.BigInt())
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Format renders a scaled value as a decimal string, e.g. 14e27 -> "14".
func Format(v *uint256.Int) string {
	return ToDecimal(v).String()
}
