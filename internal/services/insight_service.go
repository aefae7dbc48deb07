package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"spendly/internal/cache"
	"spendly/internal/core"
	"spendly/internal/log"
)

// Summarizer turns a prompt into a short narrative. Best effort.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// InsightOptions tunes AI summary generation.
type InsightOptions struct {
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

// InsightService aggregates spend and asks the summarizer to narrate it.
type InsightService struct {
	store      Store
	summarizer Summarizer
	summaries  *cache.LRUCache[string]
	timeout    time.Duration
	logger     *log.Logger
}

func NewInsightService(store Store, summarizer Summarizer, opts InsightOptions, logger *log.Logger) *InsightService {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 15 * time.Minute
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &InsightService{
		store:      store,
		summarizer: summarizer,
		summaries:  cache.NewLRUCache[string](opts.CacheSize, opts.CacheTTL),
		timeout:    opts.Timeout,
		logger:     logger.WithComponent(log.ComponentInsight),
	}
}

// Cache exposes the summary cache so the owner can register it for cleanup.
func (s *InsightService) Cache() *cache.LRUCache[string] {
	return s.summaries
}

func (s *InsightService) load(ctx context.Context, userID int64) (core.Budget, []core.Subscription, error) {
	var (
		budget core.Budget
		subs   []core.Subscription
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := s.store.GetBudget(gctx, userID)
		budget = b
		return err
	})
	g.Go(func() error {
		list, err := s.store.ListSubscriptions(gctx, userID)
		subs = list
		return err
	})
	err := g.Wait()
	return budget, subs, err
}

// CostSummary reports how the user's spend is distributed.
func (s *InsightService) CostSummary(ctx context.Context, userID int64) (core.CostSummary, error) {
	budget, subs, err := s.load(ctx, userID)
	if errors.Is(err, core.ErrNotFound) || (err == nil && len(subs) == 0) {
		return core.CostSummary{}, core.NotFound("No budget or subscriptions found for this user.")
	}
	if err != nil {
		return core.CostSummary{}, err
	}

	total := core.SumPrices(subs)
	summary := core.CostSummary{
		TotalSpent:        total,
		MonthlyLimit:      budget.MonthlyLimit,
		Remaining:         core.RoundMoney(budget.MonthlyLimit.Sub(total)),
		SubscriptionCount: len(subs),
		ByCategory:        spendByCategory(subs),
	}

	prompt := fmt.Sprintf(`You are Spendly, an AI financial assistant.
Analyze the following user spending data and provide a short, friendly 4-sentence insight.

Monthly limit: %s. Total spent: %s. Remaining: %s. Spending by category: %s.

Mention:
- Overspending categories
- Saving suggestions
- Any pattern you observe`,
		core.FormatMoney(budget.MonthlyLimit), core.FormatMoney(total),
		core.FormatMoney(summary.Remaining), formatCategories(summary.ByCategory))

	summary.AISummary = s.summarize(ctx, userID, "cost", prompt)
	return summary, nil
}

// MonthlyReport compares spend renewing this month with the previous month.
// Current month means a renewal on or after the first of now's month.
func (s *InsightService) MonthlyReport(ctx context.Context, userID int64, now time.Time) (core.MonthlyReport, error) {
	subs, err := s.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return core.MonthlyReport{}, err
	}

	now = now.UTC()
	firstDay := core.UTCDate(now).FirstOfMonth()
	prevEnd := firstDay.AddDays(-1)
	prevStart := prevEnd.FirstOfMonth()

	var current, previous []core.Subscription
	for _, sub := range subs {
		d := sub.RenewalDate
		switch {
		case d.IsZero():
		case !d.Before(firstDay):
			current = append(current, sub)
		case !d.Before(prevStart) && !d.After(prevEnd):
			previous = append(previous, sub)
		}
	}

	report := core.MonthlyReport{
		Month:            now.Format("January 2006"),
		CurrentTotal:     core.SumPrices(current),
		PreviousTotal:    core.SumPrices(previous),
		ChangePercent:    decimal.Zero,
		ByCategory:       spendByCategory(current),
		CategoryGrowth:   []core.CategoryGrowth{},
		TopSubscriptions: topByPrice(current, 3),
	}
	if report.PreviousTotal.IsPositive() {
		report.ChangePercent = percentChange(report.CurrentTotal, report.PreviousTotal)
	}

	prevByCategory := map[string]decimal.Decimal{}
	for _, c := range spendByCategory(previous) {
		prevByCategory[c.Name] = c.Amount
	}
	top := -1
	for _, c := range report.ByCategory {
		g := core.CategoryGrowth{Name: c.Name}
		prev, ok := prevByCategory[c.Name]
		switch {
		case ok && prev.IsPositive():
			g.Percent = percentChange(c.Amount, prev)
		case c.Amount.IsPositive():
			g.Percent = decimal.NewFromInt(100)
		default:
			continue
		}
		report.CategoryGrowth = append(report.CategoryGrowth, g)
		if top < 0 || g.Percent.GreaterThan(report.CategoryGrowth[top].Percent) {
			top = len(report.CategoryGrowth) - 1
		}
	}
	if top >= 0 {
		report.TopGrowth = report.CategoryGrowth[top].Name
	}

	if len(subs) == 0 {
		return report, nil
	}

	topNames := make([]string, 0, len(report.TopSubscriptions))
	for _, t := range report.TopSubscriptions {
		topNames = append(topNames, fmt.Sprintf("%s (%s, %s)", t.Name, t.Category, core.FormatMoney(t.Price)))
	}
	growth := report.TopGrowth
	if growth == "" {
		growth = "None"
	}
	prompt := fmt.Sprintf(`Generate a financial summary comparing this month to last month.
Current month total: %s
Previous month total: %s
Change: %s%%
Category breakdown: %s
Top 3 subscriptions: %s
Category that increased most: %s
Provide 3-5 concise sentences in friendly and analytical tone.`,
		core.FormatMoney(report.CurrentTotal), core.FormatMoney(report.PreviousTotal),
		report.ChangePercent.StringFixed(2), formatCategories(report.ByCategory),
		strings.Join(topNames, "; "), growth)

	report.AISummary = s.summarize(ctx, userID, "monthly", prompt)
	return report, nil
}

// summarize returns a cached or fresh narrative, or "" when the summarizer fails.
func (s *InsightService) summarize(ctx context.Context, userID int64, kind, prompt string) string {
	if s.summarizer == nil {
		return ""
	}

	sum := sha256.Sum256([]byte(prompt))
	key := fmt.Sprintf("%s:%d:%s", kind, userID, hex.EncodeToString(sum[:8]))
	if text, ok := s.summaries.Get(key); ok {
		return text
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.summarizer.Summarize(ctx, prompt)
	if err != nil {
		s.logger.WarnContext(ctx, "AI summary unavailable",
			log.FieldUserID, userID,
			"kind", kind,
			log.FieldError, err)
		return ""
	}
	text = strings.TrimSpace(text)
	if text != "" {
		s.summaries.Set(key, text)
	}
	return text
}

// spendByCategory sums prices per category, largest first, ties by name.
func spendByCategory(subs []core.Subscription) []core.CategoryAmount {
	totals := map[string]decimal.Decimal{}
	for _, sub := range subs {
		totals[sub.Category] = totals[sub.Category].Add(sub.Price)
	}
	out := make([]core.CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, core.CategoryAmount{Name: name, Amount: core.RoundMoney(amount)})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func topByPrice(subs []core.Subscription, n int) []core.Subscription {
	sorted := append([]core.Subscription(nil), subs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Price.GreaterThan(sorted[j].Price)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func percentChange(current, previous decimal.Decimal) decimal.Decimal {
	return current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(2)
}

func formatCategories(cats []core.CategoryAmount) string {
	parts := make([]string, 0, len(cats))
	for _, c := range cats {
		parts = append(parts, fmt.Sprintf("%s: %s", c.Name, core.FormatMoney(c.Amount)))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
