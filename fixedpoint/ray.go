// Package fixedpoint implements RAY-scaled (10^27) integer arithmetic for the
// yield ledger.
//
// Every quantity the ledger stores is an unsigned 256-bit integer at Scale.
// All operations are checked: overflow and subtraction underflow fail with
// ErrOverflow instead of wrapping. Products that feed a division are computed
// with a 512-bit intermediate, so a ray times an index never overflows before
// it is scaled back down.
package fixedpoint

import (
	"errors"

	"github.com/holiman/uint256"
)

// Decimals is the number of decimal digits carried by Scale.
const Decimals = 27

var (
	// ErrOverflow is returned when a result does not fit in 256 bits or a
	// subtraction would go below zero.
	ErrOverflow = errors.New("fixedpoint: arithmetic overflow")

	// ErrDivisionByZero is returned when a divisor is zero.
	ErrDivisionByZero = errors.New("fixedpoint: division by zero")
)

// Scale is 10^27, the RAY unit. An index of exactly Scale means 1.0.
var Scale = uint256.MustFromDecimal("1000000000000000000000000000")

// One returns a fresh copy of Scale.
func One() *uint256.Int { return new(uint256.Int).Set(Scale) }

// Zero returns a fresh zero value.
func Zero() *uint256.Int { return new(uint256.Int) }

// ToFixed lifts a raw token amount into the internal scale.
func ToFixed(raw *uint256.Int) (*uint256.Int, error) {
	if raw == nil {
		return Zero(), nil
	}
	z, overflow := new(uint256.Int).MulOverflow(raw, Scale)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// MulIndex converts shares to their value at index, rounding up.
// Share value must never be under-reported.
func MulIndex(shares, index *uint256.Int) (*uint256.Int, error) {
	return mulDiv(shares, index, Scale, true)
}

// MulIndexDown converts shares to their value at index, rounding down.
// Used when the value is paid out.
func MulIndexDown(shares, index *uint256.Int) (*uint256.Int, error) {
	return mulDiv(shares, index, Scale, false)
}

// DivIndex converts an amount to shares at index, rounding down.
// Minted shares must never be over-credited.
func DivIndex(amount, index *uint256.Int) (*uint256.Int, error) {
	return mulDiv(amount, Scale, index, false)
}

// DivIndexUp converts an amount to shares at index, rounding up. It sizes the
// shares needed to fully back an amount.
func DivIndexUp(amount, index *uint256.Int) (*uint256.Int, error) {
	return mulDiv(amount, Scale, index, true)
}

// Add returns a + b.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Sub returns a - b. It fails with ErrOverflow when b > a.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Mul returns a * b.
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Div returns floor(a / b).
func Div(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	return new(uint256.Int).Div(a, b), nil
}

// SaturatingSub returns a - b, or zero when b >= a.
func SaturatingSub(a, b *uint256.Int) *uint256.Int {
	if !a.Gt(b) {
		return Zero()
	}
	return new(uint256.Int).Sub(a, b)
}

// Min returns a copy of the smaller of a and b.
func Min(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int).Set(b)
}

// mulDiv computes x*y/d with a 512-bit intermediate.
func mulDiv(x, y, d *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	if roundUp && !new(uint256.Int).MulMod(x, y, d).IsZero() {
		if z, overflow = z.AddOverflow(z, uint256.NewInt(1)); overflow {
			return nil, ErrOverflow
		}
	}
	return z, nil
}
