// Package core holds the Spendly domain: users, subscriptions, budgets,
// the error taxonomy and the money helpers shared by every layer.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits stored for every amount.
const MoneyPlaces = 2

// MaxMoney is the largest amount a DECIMAL(10,2) column holds.
var MaxMoney = decimal.RequireFromString("99999999.99")

// ParseMoney parses a decimal string into an exact amount rounded half-up to
// two places. Both dot and comma separators are accepted.
//
//	ParseMoney("12.34")  -> 12.34
//	ParseMoney("12,345") -> 12.35
//	ParseMoney("-1")     -> ErrInvalidInput
func ParseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, Invalid("price is required")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, Invalid("price %q is not a valid amount", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Invalid("price %q is not a valid amount", s)
	}
	d = RoundMoney(d)
	if d.IsNegative() {
		return decimal.Zero, Invalid("price must not be negative")
	}
	if d.GreaterThan(MaxMoney) {
		return decimal.Zero, Invalid("price exceeds the maximum of %s", FormatMoney(MaxMoney))
	}
	return d, nil
}

// RoundMoney normalizes an amount to two fractional digits.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// FormatMoney renders an amount with exactly two fractional digits.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}

// ClampZero returns d, or zero when d is negative.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// SumPrices adds up the price of every subscription.
func SumPrices(subs []Subscription) decimal.Decimal {
	total := decimal.Zero
	for _, s := range subs {
		total = total.Add(s.Price)
	}
	return RoundMoney(total)
}
