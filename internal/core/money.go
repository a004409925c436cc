// Package core provides decimal amount helpers.
//
// Amounts are carried as decimal.Decimal end to end; float64 never appears
// in a calculation.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of decimal places every reported amount is
// rounded to.
const AmountPlaces = 2

// Round2 rounds half away from zero to two decimal places.
//
// Examples:
//
//	Round2(1.005)  -> 1.01
//	Round2(-1.005) -> -1.01
//	Round2(2.344)  -> 2.34
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountPlaces)
}

// Sum adds the given values as they are, without rounding.
func Sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// ParseAmount parses a decimal amount written with a dot separator.
// Empty input reads as zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}
