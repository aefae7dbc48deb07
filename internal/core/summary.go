package core

import "github.com/shopspring/decimal"

const (
	StatusOverLimit   = "Over Limit"
	StatusWithinLimit = "Within Limit"
)

// Advisory texts attached to a budget summary.
const (
	InsightOverAllowed = "You're over your monthly limit, but overspending is allowed. Review your subscriptions to get back on track."
	InsightOverBlocked = "You've exceeded your monthly limit. New subscriptions are blocked until you free up budget or allow overspending."
	InsightWithin      = "You're within your monthly budget. Keep it up!"
)

// BudgetSummary is the derived view of a budget.
type BudgetSummary struct {
	MonthlyLimit   decimal.Decimal
	CurrentSpent   decimal.Decimal
	Remaining      decimal.Decimal
	LimitExceeded  bool
	AllowOverLimit bool
	Status         string
	Insight        string
}

// Summarize derives the summary of b. It has no side effects.
func Summarize(b Budget) BudgetSummary {
	exceeded := b.CurrentSpent.GreaterThan(b.MonthlyLimit)
	s := BudgetSummary{
		MonthlyLimit:   b.MonthlyLimit,
		CurrentSpent:   b.CurrentSpent,
		Remaining:      ClampZero(RoundMoney(b.MonthlyLimit.Sub(b.CurrentSpent))),
		LimitExceeded:  exceeded,
		AllowOverLimit: b.AllowOverLimit,
		Status:         StatusWithinLimit,
		Insight:        InsightWithin,
	}
	if exceeded {
		s.Status = StatusOverLimit
		s.Insight = InsightOverBlocked
		if b.AllowOverLimit {
			s.Insight = InsightOverAllowed
		}
	}
	return s
}

// DueReport partitions subscriptions by renewal proximity.
type DueReport struct {
	DueSoon []Subscription
	Overdue []Subscription
}

// Empty reports whether nothing is due or overdue.
func (r DueReport) Empty() bool {
	return len(r.DueSoon) == 0 && len(r.Overdue) == 0
}

// CategoryAmount is an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// CostSummary aggregates a user's current spend.
type CostSummary struct {
	TotalSpent        decimal.Decimal
	MonthlyLimit      decimal.Decimal
	Remaining         decimal.Decimal
	SubscriptionCount int
	ByCategory        []CategoryAmount
	AISummary         string
}

// CategoryGrowth is the month over month change of one category, in percent.
type CategoryGrowth struct {
	Name    string
	Percent decimal.Decimal
}

// MonthlyReport compares the current month against the previous one.
type MonthlyReport struct {
	Month            string
	CurrentTotal     decimal.Decimal
	PreviousTotal    decimal.Decimal
	ChangePercent    decimal.Decimal
	ByCategory       []CategoryAmount
	CategoryGrowth   []CategoryGrowth
	TopGrowth        string
	TopSubscriptions []Subscription
	AISummary        string
}

// Reminder is the per-user payload handed to the reminder dispatcher.
type Reminder struct {
	UserID   int64
	Username string
	Email    string
	Subject  string
	Body     string
	Due      DueReport
}
