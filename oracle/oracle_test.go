package oracle_test

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/yieldledger/fixedpoint"
	"github.com/xraph/yieldledger/oracle"
)

func TestReadValidatesFloor(t *testing.T) {
	ctx := context.Background()
	o := oracle.NewStatic()
	o.SetRatio("ayUSD", 3, 2)
	o.Set("broken", uint256.NewInt(1))

	index, err := oracle.Read(ctx, o, "ayUSD")
	require.NoError(t, err)
	assert.Equal(t, "1.5", fixedpoint.Format(index))

	_, err = oracle.Read(ctx, o, "broken")
	assert.ErrorIs(t, err, oracle.ErrInvalidIndex)

	_, err = oracle.Read(ctx, o, "missing")
	assert.ErrorIs(t, err, oracle.ErrUnknownToken)
}

func TestReadReturnsCopy(t *testing.T) {
	o := oracle.NewStatic()
	o.Set("t", fixedpoint.One())

	index, err := oracle.Read(context.Background(), o, "t")
	require.NoError(t, err)
	index.SetUint64(0)

	again, err := oracle.Read(context.Background(), o, "t")
	require.NoError(t, err)
	assert.True(t, again.Eq(fixedpoint.Scale))
}

func TestStaticNilIndex(t *testing.T) {
	o := oracle.NewStatic()
	require.NotPanics(t, func() { o.Set("t", nil) })

	_, err := oracle.Read(context.Background(), o, "t")
	assert.ErrorIs(t, err, oracle.ErrInvalidIndex)

	o.Set("t", fixedpoint.One())
	index, err := oracle.Read(context.Background(), o, "t")
	require.NoError(t, err)
	assert.True(t, index.Eq(fixedpoint.Scale))
}

func TestStaticSetCopies(t *testing.T) {
	o := oracle.NewStatic()
	src := fixedpoint.One()
	o.Set("t", src)
	src.SetUint64(0)

	index, err := oracle.Read(context.Background(), o, "t")
	require.NoError(t, err)
	assert.True(t, index.Eq(fixedpoint.Scale))
}

func TestFuncPropagatesErrors(t *testing.T) {
	boom := errors.New("feed down")
	f := oracle.Func(func(context.Context, string) (*uint256.Int, error) { return nil, boom })

	_, err := oracle.Read(context.Background(), f, "t")
	assert.ErrorIs(t, err, boom)

	nilIndex := oracle.Func(func(context.Context, string) (*uint256.Int, error) { return nil, nil })
	_, err = oracle.Read(context.Background(), nilIndex, "t")
	assert.ErrorIs(t, err, oracle.ErrInvalidIndex)
}

func TestGuardRejectsRegression(t *testing.T) {
	ctx := context.Background()
	src := oracle.NewStatic()
	g := oracle.NewGuard(src)

	src.SetRatio("t", 2, 1)
	_, err := g.CurrentIndex(ctx, "t")
	require.NoError(t, err)

	src.SetRatio("t", 2, 1)
	_, err = g.CurrentIndex(ctx, "t")
	require.NoError(t, err, "equal index is allowed")

	src.SetRatio("t", 3, 2)
	_, err = g.CurrentIndex(ctx, "t")
	assert.ErrorIs(t, err, oracle.ErrInvalidIndex)

	src.SetRatio("other", 3, 2)
	_, err = g.CurrentIndex(ctx, "other")
	assert.NoError(t, err, "high-water marks are per token")
}
