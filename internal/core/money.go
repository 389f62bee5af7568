// Package core provides money parsing and handling utilities.
//
// Amounts are shopspring decimals so sums of imported values never drift; the
// entry form is limited to cents, imports keep whatever precision the file has.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// MinAmount is the smallest amount the entry form accepts.
var MinAmount = decimal.New(1, -2)

// ParseAmount converts a form value to a decimal amount with half-up rounding to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs, exponents
// and anything below MinAmount are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil
//	ParseAmount("0")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := parseUnsigned(s)
	if err != nil {
		return decimal.Zero, err
	}
	d = d.Round(2)
	if d.LessThan(MinAmount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseBudget is ParseAmount without the lower bound: zero is a valid budget.
func ParseBudget(s string) (decimal.Decimal, error) {
	d, err := parseUnsigned(s)
	if err != nil {
		return decimal.Zero, ErrInvalidBudget
	}
	return d.Round(2), nil
}

func parseUnsigned(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if s == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with a dot separator and at least two decimals.
func FormatAmount(d decimal.Decimal) string {
	if d.Equal(d.Round(2)) {
		return d.StringFixed(2)
	}
	return d.String()
}
