package safe

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrDivisionByZero is returned when attempting to divide by zero.
var ErrDivisionByZero = errors.New("division by zero")

// percentageMultiplier is the multiplier for percentage calculations.
const percentageMultiplier = 100

// hundredDecimal is the pre-allocated decimal multiplier for percentage calculations.
var hundredDecimal = decimal.NewFromInt(percentageMultiplier)

// Divide performs decimal division with zero check.
// Returns ErrDivisionByZero if denominator is zero.
func Divide(numerator, denominator decimal.Decimal) (decimal.Decimal, error) {
	if denominator.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}

	return numerator.Div(denominator), nil
}

// Percentage computes (numerator / denominator) * 100 with zero check.
// Returns ErrDivisionByZero if denominator is zero.
func Percentage(numerator, denominator decimal.Decimal) (decimal.Decimal, error) {
	if denominator.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}

	return numerator.Div(denominator).Mul(hundredDecimal), nil
}

// Ratio computes numerator/denominator over int64 counters and returns the
// result as a float64. A zero denominator yields 0 rather than an error, so
// counter snapshots taken before any traffic read as a clean 0 rate.
func Ratio(numerator, denominator int64) float64 {
	if denominator == 0 {
		return 0
	}

	result, err := Divide(decimal.NewFromInt(numerator), decimal.NewFromInt(denominator))
	if err != nil {
		return 0
	}

	return result.InexactFloat64()
}
