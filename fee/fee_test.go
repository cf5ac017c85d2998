package fee

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/yieldledger/fixedpoint"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name       string
		collateral uint64
		advance    uint64
		want       uint64
	}{
		{"20 against 100", 100, 20, 6},
		{"100 against 1000", 1000, 100, 20},
		{"tiny draw", 1_000_000, 1, 0},
		{"zero advance", 100, 0, 0},
		{"ninety percent draw", 100, 90, 90},
		{"surcharge floors", 3, 1, 0}, // 1*(10+33)/100
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(uint256.NewInt(tt.collateral), uint256.NewInt(tt.advance))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Uint64())
		})
	}
}

func TestComputeRejectsZeroCollateral(t *testing.T) {
	_, err := Compute(uint256.NewInt(0), uint256.NewInt(5))
	assert.ErrorIs(t, err, ErrZeroCollateral)

	_, err = Compute(nil, uint256.NewInt(5))
	assert.ErrorIs(t, err, ErrZeroCollateral)
}

func TestComputeRejectsFeeAboveAdvance(t *testing.T) {
	_, err := Compute(uint256.NewInt(100), uint256.NewInt(92)) // 92*102/100 = 93
	assert.ErrorIs(t, err, ErrFeeExceedsAdvance)

	_, err = Compute(uint256.NewInt(10), uint256.NewInt(500))
	assert.ErrorIs(t, err, ErrFeeExceedsAdvance)
}

func TestComputeOverflow(t *testing.T) {
	huge := new(uint256.Int).SetAllOne()
	_, err := Compute(huge, huge)
	assert.ErrorIs(t, err, fixedpoint.ErrOverflow)
}

func TestFeeNeverExceedsAdvanceUpToNinetyPercent(t *testing.T) {
	for collateral := uint64(1); collateral <= 200; collateral++ {
		for advance := uint64(1); advance*10 <= collateral*9; advance++ {
			f, err := Compute(uint256.NewInt(collateral), uint256.NewInt(advance))
			require.NoError(t, err, "collateral=%d advance=%d", collateral, advance)
			assert.LessOrEqual(t, f.Uint64(), advance)
		}
	}
}

func TestScheduleBasePercent(t *testing.T) {
	s := Schedule{BasePercent: 0}
	got, err := s.Compute(uint256.NewInt(100), uint256.NewInt(20))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), got.Uint64()) // 20*(0+20)/100
}
