package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BudgetPatch lists the budget fields a caller may change. Nil fields are left untouched.
type BudgetPatch struct {
	MonthlyLimit   *decimal.Decimal
	CurrentSpent   *decimal.Decimal // explicit override only
	AllowOverLimit *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p BudgetPatch) IsEmpty() bool {
	return p.MonthlyLimit == nil && p.CurrentSpent == nil && p.AllowOverLimit == nil
}

// Apply merges the patch into b field by field and returns the result.
func (p BudgetPatch) Apply(b Budget) Budget {
	if p.MonthlyLimit != nil {
		b.MonthlyLimit = RoundMoney(*p.MonthlyLimit)
	}
	if p.CurrentSpent != nil {
		b.CurrentSpent = RoundMoney(*p.CurrentSpent)
	}
	if p.AllowOverLimit != nil {
		b.AllowOverLimit = *p.AllowOverLimit
	}
	return b
}

// SubscriptionPatch lists the subscription fields a caller may change.
type SubscriptionPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	RenewalDate *Date
	Category    *string
}

// IsEmpty reports whether the patch changes nothing.
func (p SubscriptionPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil &&
		p.RenewalDate == nil && p.Category == nil
}

// Apply merges the patch into s field by field and returns the result.
// Owner and id are never touched.
func (p SubscriptionPatch) Apply(s Subscription) Subscription {
	if p.Name != nil {
		s.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		s.Description = strings.TrimSpace(*p.Description)
	}
	if p.Price != nil {
		s.Price = RoundMoney(*p.Price)
	}
	if p.RenewalDate != nil {
		s.RenewalDate = *p.RenewalDate
	}
	if p.Category != nil {
		s.Category = strings.TrimSpace(*p.Category)
	}
	return s
}
