// Package format renders amounts for display.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/feedmix/pkg/constants"
)

// Currency returns a whole-unit amount with the currency symbol and thousands separators (e.g., "-Rp 1,234").
func Currency(amount float64) string {
	formatted := formatPositiveCurrency(math.Abs(amount))
	if amount < 0 && formatted != "0" {
		return "-" + constants.CurrencySymbol + " " + formatted
	}
	return constants.CurrencySymbol + " " + formatted
}

// NumericCurrency returns a whole-unit amount without a currency symbol but with separators (e.g., "-1,234").
func NumericCurrency(amount float64) string {
	formatted := formatPositiveCurrency(math.Abs(amount))
	if amount < 0 && formatted != "0" {
		return "-" + formatted
	}
	return formatted
}

// Weight returns a weight in kilograms at the report precision (e.g., "0.4000 kg").
func Weight(kg float64) string {
	if math.Abs(kg) < 0.5*math.Pow10(-constants.WeightPrecision) {
		kg = 0
	}
	return fmt.Sprintf("%.*f kg", constants.WeightPrecision, kg)
}

func formatPositiveCurrency(value float64) string {
	intPart := fmt.Sprintf("%.0f", value)

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	return intPart
}
