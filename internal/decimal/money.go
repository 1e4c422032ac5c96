// Package decimal holds the rounding rules for settlement and purchase
// amounts: cents for money, six places for prices per kilogram.
package decimal

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

var hundred = decimal.NewFromInt(100)

// FromString parses an amount, accepting a comma decimal separator
// ("1234,56") as printed on local forms. Thousands separators are rejected.
func FromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return decimal.NewFromString(s)
}

// Div divides a by b, rounds to 2 places
func Div(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return Zero
	}
	return a.Div(b).Round(2)
}

// ApplyRate computes amount * (rate/100) rounded to cents (IVA 10.5%, retenciones)
func ApplyRate(amount, ratePercent decimal.Decimal) decimal.Decimal {
	if ratePercent.IsZero() {
		return Zero
	}
	return amount.Mul(ratePercent).Div(hundred).Round(2)
}

// Subtotal computes kilos * price per kilo, rounded to cents
func Subtotal(kilos int64, pricePerKg decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(kilos).Mul(pricePerKg).Round(2)
}

// PerTonToPerKg converts a price per ton into a price per kilo (6 places)
func PerTonToPerKg(pricePerTon decimal.Decimal) decimal.Decimal {
	return pricePerTon.Div(decimal.NewFromInt(1000)).Round(6)
}

// Sum sums a slice of decimals
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// IsPositive returns true if decimal is greater than zero
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(Zero)
}

// RoundCents rounds to 2 decimals
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
