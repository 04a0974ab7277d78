package math

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoValues is returned when a calculation receives an empty set
	ErrNoValues = errors.New("no values received")
	// ErrZeroValue is returned when a divisor would be zero
	ErrZeroValue = errors.New("cannot calculate with zero value")
)

var oneHundred = decimal.NewFromInt(100)

// DecimalPercentageGainOrLoss returns the percentage rise over a certain
// period
func DecimalPercentageGainOrLoss(priceNow, priceThen decimal.Decimal) (decimal.Decimal, error) {
	if priceThen.IsZero() {
		return decimal.Zero, ErrZeroValue
	}
	return priceNow.Sub(priceThen).Div(priceThen).Mul(oneHundred), nil
}

// CalculateCompoundAnnualGrowthRate Calculates CAGR.
// Using days, intervals per year would be 365 and number of intervals would
// be the number of days
func CalculateCompoundAnnualGrowthRate(openValue, closeValue, intervalsPerYear, numberOfIntervals float64) (float64, error) {
	if openValue == 0 || numberOfIntervals == 0 {
		return 0, ErrZeroValue
	}
	k := math.Pow(closeValue/openValue, intervalsPerYear/numberOfIntervals) - 1
	return k * 100, nil
}

// DecimalCalmarRatio is the annual rate of return versus the maximum
// drawdown, both as percentages
func DecimalCalmarRatio(annualReturn, drawdownPercent decimal.Decimal) (decimal.Decimal, error) {
	if drawdownPercent.IsZero() {
		return decimal.Zero, ErrZeroValue
	}
	return annualReturn.Div(drawdownPercent.Abs()), nil
}

// ArithmeticAverage is the basic form of averaging
func ArithmeticAverage(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoValues
	}
	var sumOfValues float64
	for x := range values {
		sumOfValues += values[x]
	}
	return sumOfValues / float64(len(values)), nil
}

// SampleStandardDeviation measures the dispersion of a dataset relative to
// its mean, using n-1 degrees of freedom
func SampleStandardDeviation(values []float64) (float64, error) {
	if len(values) < 2 {
		return 0, ErrNoValues
	}
	mean, err := ArithmeticAverage(values)
	if err != nil {
		return 0, err
	}
	var combined float64
	for i := range values {
		combined += math.Pow(values[i]-mean, 2)
	}
	return math.Sqrt(combined / float64(len(values)-1)), nil
}
