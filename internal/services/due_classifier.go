package services

import (
	"spendly/internal/core"
)

// DefaultDueWindowDays is how far ahead a renewal counts as due soon.
const DefaultDueWindowDays = 7

// ClassifyDue partitions subs relative to today. A renewal on
// [today, today+windowDays] is due soon, one before today is overdue.
// Subscriptions without a usable renewal date are skipped. The function is
// pure: the input slice is not modified.
func ClassifyDue(subs []core.Subscription, today core.Date, windowDays int) core.DueReport {
	if windowDays < 0 {
		windowDays = 0
	}
	horizon := today.AddDays(windowDays)

	report := core.DueReport{
		DueSoon: []core.Subscription{},
		Overdue: []core.Subscription{},
	}
	for _, s := range subs {
		d := s.RenewalDate
		switch {
		case d.IsZero():
			continue
		case d.Before(today):
			report.Overdue = append(report.Overdue, s)
		case !d.After(horizon):
			report.DueSoon = append(report.DueSoon, s)
		}
	}
	return report
}
