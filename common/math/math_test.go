package math

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalPercentageGainOrLoss(t *testing.T) {
	t.Parallel()
	v, err := DecimalPercentageGainOrLoss(decimal.NewFromInt(110), decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.NewFromInt(10)))
	_, err = DecimalPercentageGainOrLoss(decimal.NewFromInt(1), decimal.Zero)
	assert.ErrorIs(t, err, ErrZeroValue)
}

func TestCalculateCompoundAnnualGrowthRate(t *testing.T) {
	t.Parallel()
	v, err := CalculateCompoundAnnualGrowthRate(100, 121, 1, 2)
	require.NoError(t, err)
	assert.InDelta(t, 10, v, 1e-9)
	_, err = CalculateCompoundAnnualGrowthRate(0, 121, 1, 2)
	assert.ErrorIs(t, err, ErrZeroValue)
}

func TestDecimalCalmarRatio(t *testing.T) {
	t.Parallel()
	v, err := DecimalCalmarRatio(decimal.NewFromInt(10), decimal.NewFromInt(-20))
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.NewFromFloat(0.5)))
	v, err = DecimalCalmarRatio(decimal.NewFromInt(-5), decimal.NewFromInt(-20))
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.NewFromFloat(-0.25)))
	_, err = DecimalCalmarRatio(decimal.NewFromInt(10), decimal.Zero)
	assert.ErrorIs(t, err, ErrZeroValue)
}

func TestSampleStandardDeviation(t *testing.T) {
	t.Parallel()
	_, err := SampleStandardDeviation([]float64{1})
	assert.ErrorIs(t, err, ErrNoValues)
	v, err := SampleStandardDeviation([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.NoError(t, err)
	assert.InDelta(t, 2.138, v, 0.001)
	avg, err := ArithmeticAverage([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 2.0, avg)
}
