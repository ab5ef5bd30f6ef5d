// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/feedmix/pkg/constants"
)

// RoundWeight rounds a weight to the report precision.
func RoundWeight(val float64) float64 {
	scale := math.Pow10(constants.WeightPrecision)
	return math.Round(val*scale) / scale
}

// TruncateCurrency drops the fractional part of an amount, as the exports do.
func TruncateCurrency(val float64) int64 {
	return int64(val)
}

// IsZero checks if a weight is effectively zero (within tolerance)
func IsZero(val float64) bool {
	return math.Abs(val) <= constants.WeightTolerance
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * constants.PercentageMultiplier
}
