// Package core provides money parsing and maasser arithmetic.
//
// Amounts are decimals in currency units. The maasser rate is applied exactly,
// so a stored MaasserDue is always reproducible from its Amount.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// MaasserRate is the share of income owed: 10%.
var MaasserRate = decimal.New(1, -1)

// MaasserFor returns the obligation generated by an income amount.
func MaasserFor(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(MaasserRate)
}

// ParseAmount converts a user-entered decimal string to a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up to cents. Signs, exponents, grouping separators and zero are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil
//	ParseAmount("0")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	if parts[0] == "" && (len(parts) == 1 || parts[1] == "") {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
