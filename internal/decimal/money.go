// Package decimal wraps shopspring/decimal with the conventions the invoice
// model relies on: money at two decimal places, weights at three, and source
// values that fail coercion degrading to zero instead of aborting the parse.
package decimal

import (
	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

// FromStringOrZero parses a decimal from a string, degrading to zero on
// failure. Source values that fail format coercion default rather than abort.
func FromStringOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero
	}
	return d
}

// ExtendedPrice computes unit price times quantity at money precision.
func ExtendedPrice(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

// IsNonNegative returns true if decimal is >= zero
func IsNonNegative(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(Zero)
}
