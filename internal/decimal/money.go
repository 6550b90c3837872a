package decimal

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

// ErrZeroDivisor is returned when dividing by zero
var ErrZeroDivisor = errors.New("division by zero")

// Places is the number of decimal places money is rounded and formatted to
const Places = 2

// FromString parses decimal from string, ignoring surrounding whitespace
func FromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

// MustFromString parses decimal from string, panics on error
func MustFromString(s string) decimal.Decimal {
	d, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Div divides a by b, rounds to 2 places
func Div(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return Zero, ErrZeroDivisor
	}
	return a.Div(b).Round(Places), nil
}

// Convert converts a home-currency amount to a foreign currency using a
// rate expressed as home units per foreign unit, rounded to 2 places
func Convert(amount, rate decimal.Decimal) (decimal.Decimal, error) {
	return Div(amount, rate)
}

// Sum sums a slice of decimals
func Sum(values ...decimal.Decimal) decimal.Decimal {
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

// Format renders a money amount with exactly two decimal digits
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// FormatExact renders a decimal without padding or rounding
func FormatExact(d decimal.Decimal) string {
	return d.String()
}
