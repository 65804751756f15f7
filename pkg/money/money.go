// Package money provides ISO 4217 currency lookups and helpers for
// converting between decimal amounts and minor-unit integers.
package money

import (
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Known reports whether code names an ISO 4217 currency.
func Known(code string) bool {
	return gomoney.GetCurrency(strings.ToUpper(code)) != nil
}

// Fraction returns the number of minor-unit digits for a currency,
// e.g. 2 for EUR and 0 for JPY.
func Fraction(code string) (int, error) {
	c := gomoney.GetCurrency(strings.ToUpper(code))
	if c == nil {
		return 0, fmt.Errorf("unknown currency code %q", code)
	}
	return c.Fraction, nil
}

// MinorUnits converts a decimal amount into the currency's minor units,
// rounding half away from zero. 12.345 EUR becomes 1235.
func MinorUnits(amount decimal.Decimal, code string) (int64, error) {
	fraction, err := Fraction(code)
	if err != nil {
		return 0, err
	}
	return amount.Shift(int32(fraction)).Round(0).IntPart(), nil
}

// FromMinorUnits converts a minor-unit integer back into a decimal amount.
func FromMinorUnits(units int64, code string) (decimal.Decimal, error) {
	fraction, err := Fraction(code)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromInt(units).Shift(int32(-fraction)), nil
}

// Format renders an amount with the currency's grapheme and grouping,
// e.g. Format(decimal for 1234.50, "EUR") == "€1,234.50".
func Format(amount decimal.Decimal, code string) (string, error) {
	units, err := MinorUnits(amount, code)
	if err != nil {
		return "", err
	}
	return gomoney.New(units, strings.ToUpper(code)).Display(), nil
}
