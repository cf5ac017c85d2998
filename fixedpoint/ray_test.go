package fixedpoint

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ray(n uint64) *uint256.Int {
	z, err := ToFixed(uint256.NewInt(n))
	if err != nil {
		panic(err)
	}
	return z
}

func TestToFixed(t *testing.T) {
	got, err := ToFixed(uint256.NewInt(14))
	require.NoError(t, err)
	assert.Equal(t, "14000000000000000000000000000", got.Dec())

	maxVal := new(uint256.Int).SetAllOne()
	_, err = ToFixed(maxVal)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestMulIndexRoundsUp(t *testing.T) {
	tests := []struct {
		name   string
		shares *uint256.Int
		index  *uint256.Int
		want   string
	}{
		{"unit index", ray(100), One(), ray(100).Dec()},
		{"double index", ray(100), ray(2), ray(200).Dec()},
		{"exact fraction", uint256.NewInt(2), MustParse("1500000000000000000000000000"), "3"},
		{"inexact rounds up", uint256.NewInt(1), MustParse("1500000000000000000000000000"), "2"},
		{"zero shares", Zero(), ray(3), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MulIndex(tt.shares, tt.index)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Dec())
		})
	}
}

func TestMulIndexDownRoundsDown(t *testing.T) {
	got, err := MulIndexDown(uint256.NewInt(1), MustParse("1500000000000000000000000000"))
	require.NoError(t, err)
	assert.Equal(t, "1", got.Dec())
}

func TestDivIndexRoundsDown(t *testing.T) {
	index := MustParse("3000000000000000000000000000") // 3.0

	got, err := DivIndex(uint256.NewInt(10), index)
	require.NoError(t, err)
	assert.Equal(t, "3", got.Dec())

	up, err := DivIndexUp(uint256.NewInt(10), index)
	require.NoError(t, err)
	assert.Equal(t, "4", up.Dec())

	_, err = DivIndex(uint256.NewInt(10), Zero())
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestDivThenMulNeverExceedsAmount(t *testing.T) {
	indexes := []string{
		"1000000000000000000000000000",
		"1000000000000000000000000001",
		"1333333333333333333333333333",
		"2718281828459045235360287471",
	}
	for _, idx := range indexes {
		index := MustParse(idx)
		amount := ray(977)
		shares, err := DivIndex(amount, index)
		require.NoError(t, err)
		back, err := MulIndexDown(shares, index)
		require.NoError(t, err)
		assert.True(t, !back.Gt(amount), "index %s: %s > %s", idx, back.Dec(), amount.Dec())
	}
}

func TestShareValueStaysNearCostBasis(t *testing.T) {
	indexes := []string{
		"1000000000000000000000000000",
		"1000000000000000000000000001",
		"1333333333333333333333333333",
		"1500000000000000000000000000",
		"1999999999999999999999999999",
		"2718281828459045235360287471",
	}
	amounts := []*uint256.Int{
		uint256.NewInt(1),
		uint256.NewInt(7),
		ray(90),
		ray(977),
		MustParse("123456789012345678901234567891"),
	}
	for _, idx := range indexes {
		index := MustParse(idx)
		// Minting floors and valuation ceils, so value > amount - index/Scale.
		slack := new(uint256.Int).Add(index, new(uint256.Int).SubUint64(Scale, 1))
		slack.Div(slack, Scale).SubUint64(slack, 1)
		if index.Lt(ray(2)) {
			assert.LessOrEqual(t, slack.Uint64(), uint64(1), "index %s", idx)
		}

		for _, amount := range amounts {
			shares, err := DivIndex(amount, index)
			require.NoError(t, err)
			value, err := MulIndex(shares, index)
			require.NoError(t, err)
			floor := new(uint256.Int).Add(value, slack)
			assert.False(t, floor.Lt(amount), "index %s amount %s: value %s", idx, amount.Dec(), value.Dec())
			assert.False(t, value.Gt(amount), "index %s amount %s: value %s", idx, amount.Dec(), value.Dec())
		}
	}
}

func TestCheckedArithmetic(t *testing.T) {
	maxVal := new(uint256.Int).SetAllOne()

	_, err := Add(maxVal, uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = Sub(uint256.NewInt(1), uint256.NewInt(2))
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = Mul(maxVal, uint256.NewInt(2))
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = Div(uint256.NewInt(1), Zero())
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = MulIndex(maxVal, maxVal)
	assert.ErrorIs(t, err, ErrOverflow)

	diff, err := Sub(uint256.NewInt(5), uint256.NewInt(2))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), diff.Uint64())

	assert.True(t, SaturatingSub(uint256.NewInt(2), uint256.NewInt(5)).IsZero())
	assert.Equal(t, uint64(2), Min(uint256.NewInt(2), uint256.NewInt(5)).Uint64())
}

func TestFormatAndParse(t *testing.T) {
	assert.Equal(t, "14", Format(ray(14)))
	assert.Equal(t, "0.5", Format(MustParse("500000000000000000000000000")))
	assert.Equal(t, "0", Format(nil))

	v, err := FromDecimal(decimal.RequireFromString("14.5"))
	require.NoError(t, err)
	assert.Equal(t, "14500000000000000000000000000", v.Dec())

	_, err = FromDecimal(decimal.RequireFromString("-1"))
	assert.Error(t, err)

	_, err = Parse("not-a-number")
	assert.Error(t, err)
}
