package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSummarize(t *testing.T) {
	cases := []struct {
		name      string
		limit     string
		spent     string
		allow     bool
		remaining string
		exceeded  bool
		status    string
		insight   string
	}{
		{"within", "1000.00", "600.00", false, "400.00", false, StatusWithinLimit, InsightWithin},
		{"at limit", "1000.00", "1000.00", false, "0.00", false, StatusWithinLimit, InsightWithin},
		{"over blocked", "1000.00", "1100.00", false, "0.00", true, StatusOverLimit, InsightOverBlocked},
		{"over allowed", "1000.00", "1100.00", true, "0.00", true, StatusOverLimit, InsightOverAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := Budget{
				MonthlyLimit:   decimal.RequireFromString(tc.limit),
				CurrentSpent:   decimal.RequireFromString(tc.spent),
				AllowOverLimit: tc.allow,
			}
			s := Summarize(b)
			if FormatMoney(s.Remaining) != tc.remaining {
				t.Fatalf("remaining: expected %s, got %s", tc.remaining, FormatMoney(s.Remaining))
			}
			if s.LimitExceeded != tc.exceeded || s.Status != tc.status || s.Insight != tc.insight {
				t.Fatalf("unexpected summary %+v", s)
			}
			again := Summarize(b)
			if !again.Remaining.Equal(s.Remaining) || again.Status != s.Status || again.Insight != s.Insight {
				t.Fatal("summary must be deterministic")
			}
		})
	}
}
