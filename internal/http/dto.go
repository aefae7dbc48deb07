package http

import (
	"spendly/internal/core"
)

// Money is rendered as a string with two fixed decimals.

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func newUserResponse(u core.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type budgetCreateRequest struct {
	MonthlyLimit MoneyInput `json:"monthly_limit"`
}

type budgetUpdateRequest struct {
	MonthlyLimit   MoneyInput `json:"monthly_limit"`
	CurrentSpent   MoneyInput `json:"current_spent"`
	AllowOverLimit *bool      `json:"allow_over_limit"`
}

func (r budgetUpdateRequest) patch() core.BudgetPatch {
	return core.BudgetPatch{
		MonthlyLimit:   r.MonthlyLimit.Ptr(),
		CurrentSpent:   r.CurrentSpent.Ptr(),
		AllowOverLimit: r.AllowOverLimit,
	}
}

type budgetResponse struct {
	ID             int64  `json:"id"`
	UserID         int64  `json:"user_id"`
	MonthlyLimit   string `json:"monthly_limit"`
	CurrentSpent   string `json:"current_spent"`
	AllowOverLimit bool   `json:"allow_over_limit"`
}

func newBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:             b.ID,
		UserID:         b.UserID,
		MonthlyLimit:   core.FormatMoney(b.MonthlyLimit),
		CurrentSpent:   core.FormatMoney(b.CurrentSpent),
		AllowOverLimit: b.AllowOverLimit,
	}
}

type budgetSummaryResponse struct {
	MonthlyLimit   string `json:"monthly_limit"`
	CurrentSpent   string `json:"current_spent"`
	Remaining      string `json:"remaining"`
	LimitExceeded  bool   `json:"limit_exceeded"`
	AllowOverLimit bool   `json:"allow_over_limit"`
	Status         string `json:"status"`
	Insight        string `json:"insight"`
}

func newBudgetSummaryResponse(s core.BudgetSummary) budgetSummaryResponse {
	return budgetSummaryResponse{
		MonthlyLimit:   core.FormatMoney(s.MonthlyLimit),
		CurrentSpent:   core.FormatMoney(s.CurrentSpent),
		Remaining:      core.FormatMoney(s.Remaining),
		LimitExceeded:  s.LimitExceeded,
		AllowOverLimit: s.AllowOverLimit,
		Status:         s.Status,
		Insight:        s.Insight,
	}
}

type subscriptionCreateRequest struct {
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Price       MoneyInput `json:"price"`
	RenewalDate string     `json:"renewal_date"`
	Category    *string    `json:"category"`
}

func (r subscriptionCreateRequest) subscription() (core.Subscription, error) {
	if !r.Price.Set {
		return core.Subscription{}, core.Invalid("price is required")
	}
	date, err := core.ParseDate(r.RenewalDate)
	if err != nil {
		return core.Subscription{}, err
	}
	sub := core.Subscription{
		Name:        sanitizeInput(r.Name),
		Price:       r.Price.Value,
		RenewalDate: date,
	}
	if r.Description != nil {
		sub.Description = sanitizeInput(*r.Description)
	}
	if r.Category != nil {
		sub.Category = sanitizeInput(*r.Category)
	}
	return sub, nil
}

type subscriptionUpdateRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Price       MoneyInput `json:"price"`
	RenewalDate *string    `json:"renewal_date"`
	Category    *string    `json:"category"`
}

func (r subscriptionUpdateRequest) patch() (core.SubscriptionPatch, error) {
	p := core.SubscriptionPatch{
		Name:        sanitizePtr(r.Name),
		Description: sanitizePtr(r.Description),
		Price:       r.Price.Ptr(),
		Category:    sanitizePtr(r.Category),
	}
	if r.RenewalDate != nil {
		d, err := core.ParseDate(*r.RenewalDate)
		if err != nil {
			return core.SubscriptionPatch{}, err
		}
		p.RenewalDate = &d
	}
	return p, nil
}

type subscriptionResponse struct {
	ID          int64   `json:"id"`
	OwnerID     int64   `json:"owner_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       string  `json:"price"`
	RenewalDate string  `json:"renewal_date"`
	Category    string  `json:"category"`
}

func newSubscriptionResponse(s core.Subscription) subscriptionResponse {
	resp := subscriptionResponse{
		ID:          s.ID,
		OwnerID:     s.OwnerID,
		Name:        s.Name,
		Price:       core.FormatMoney(s.Price),
		RenewalDate: s.RenewalDate.String(),
		Category:    s.Category,
	}
	if s.Description != "" {
		d := s.Description
		resp.Description = &d
	}
	return resp
}

func newSubscriptionList(subs []core.Subscription) []subscriptionResponse {
	out := make([]subscriptionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, newSubscriptionResponse(s))
	}
	return out
}

type dueResponse struct {
	DueSoon []subscriptionResponse `json:"due_soon"`
	Overdue []subscriptionResponse `json:"overdue"`
}

type categoryAmountResponse struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

func newCategoryAmounts(cats []core.CategoryAmount) []categoryAmountResponse {
	out := make([]categoryAmountResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryAmountResponse{Category: c.Name, Amount: core.FormatMoney(c.Amount)})
	}
	return out
}

type costSummaryResponse struct {
	TotalSpent        string                   `json:"total_spent"`
	MonthlyLimit      string                   `json:"monthly_limit"`
	Remaining         string                   `json:"remaining"`
	SubscriptionCount int                      `json:"subscription_count"`
	ByCategory        []categoryAmountResponse `json:"category_breakdown"`
	AISummary         string                   `json:"ai_summary"`
}

func newCostSummaryResponse(s core.CostSummary) costSummaryResponse {
	return costSummaryResponse{
		TotalSpent:        core.FormatMoney(s.TotalSpent),
		MonthlyLimit:      core.FormatMoney(s.MonthlyLimit),
		Remaining:         core.FormatMoney(s.Remaining),
		SubscriptionCount: s.SubscriptionCount,
		ByCategory:        newCategoryAmounts(s.ByCategory),
		AISummary:         s.AISummary,
	}
}

type categoryGrowthResponse struct {
	Category string `json:"category"`
	Percent  string `json:"percent"`
}

type monthlyReportResponse struct {
	Month            string                   `json:"month"`
	CurrentTotal     string                   `json:"current_total"`
	PreviousTotal    string                   `json:"previous_total"`
	ChangePercent    string                   `json:"change_percent"`
	ByCategory       []categoryAmountResponse `json:"category_breakdown"`
	CategoryGrowth   []categoryGrowthResponse `json:"category_growth"`
	TopGrowth        string                   `json:"top_growth_category"`
	TopSubscriptions []subscriptionResponse   `json:"top_subscriptions"`
	AISummary        string                   `json:"ai_summary"`
}

func newMonthlyReportResponse(r core.MonthlyReport) monthlyReportResponse {
	growth := make([]categoryGrowthResponse, 0, len(r.CategoryGrowth))
	for _, g := range r.CategoryGrowth {
		growth = append(growth, categoryGrowthResponse{Category: g.Name, Percent: g.Percent.StringFixed(2)})
	}
	return monthlyReportResponse{
		Month:            r.Month,
		CurrentTotal:     core.FormatMoney(r.CurrentTotal),
		PreviousTotal:    core.FormatMoney(r.PreviousTotal),
		ChangePercent:    r.ChangePercent.StringFixed(2),
		ByCategory:       newCategoryAmounts(r.ByCategory),
		CategoryGrowth:   growth,
		TopGrowth:        r.TopGrowth,
		TopSubscriptions: newSubscriptionList(r.TopSubscriptions),
		AISummary:        r.AISummary,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type deleteBudgetResponse struct {
	Message              string `json:"message"`
	SubscriptionsRemoved int64  `json:"subscriptions_removed"`
}

type toggleResponse struct {
	AllowOverLimit bool `json:"allow_over_limit"`
}
