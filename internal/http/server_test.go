package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendly/internal/auth"
	"spendly/internal/core"
	"spendly/internal/log"
	"spendly/internal/middleware/trace"
	"spendly/internal/services"
	"spendly/internal/storage"
)

type fixedCategorizer struct{ label string }

func (c fixedCategorizer) Categorize(ctx context.Context, name, description string) string {
	return c.label
}

type fixedSummarizer struct{ text string }

func (s fixedSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	return s.text, nil
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

type testAPI struct {
	t      *testing.T
	srv    *Server
	issuer *auth.Issuer
}

func newTestAPI(t *testing.T, rateLimit bool) *testAPI {
	t.Helper()
	repo, err := storage.Open(context.Background(), storage.Config{
		Dialect:    storage.SQLite,
		SQLitePath: filepath.Join(t.TempDir(), "spendly.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	logger := log.Discard()
	issuer := auth.NewIssuer("test-secret-test-secret-test-secret", time.Hour)
	srv := NewServer(":0", Deps{
		Users:         services.NewUserService(repo, logger),
		Budgets:       services.NewBudgetService(repo, services.BudgetOptions{CascadeDelete: true}, logger),
		Subscriptions: services.NewSubscriptionService(repo, fixedCategorizer{label: "Entertainment"}, logger),
		Insights:      services.NewInsightService(repo, fixedSummarizer{text: "Spending looks healthy."}, services.InsightOptions{}, logger),
		Issuer:        issuer,
		Store:         repo,
		Logger:        logger,
		RateLimit:     rateLimit,
		Now:           func() time.Time { return testNow },
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testAPI{t: t, srv: srv, issuer: issuer}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(a.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.7:5555"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rec, req)
	return rec
}

// signup registers a user and returns a bearer token for it.
func (a *testAPI) signup(name string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": name,
		"email":    name + "@example.com",
		"password": "secret123",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/auth/login", "", map[string]string{
		"username": name + "@example.com",
		"password": "secret123",
	})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var tok tokenResponse
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &tok))
	return tok.AccessToken
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorBody](t, rec).Detail
}

func TestHealthAndReady(t *testing.T) {
	api := newTestAPI(t, false)

	rec := api.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(trace.RequestIDHeader))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	api.srv.deps.Store = failingPinger{}
	rec = api.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = api.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", detail(t, rec))
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t, false)

	rec := api.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": "ana", "email": "Ana@Example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decode[userResponse](t, rec)
	assert.Equal(t, "ana", user.Username)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.NotContains(t, rec.Body.String(), "password")

	t.Run("duplicate registration", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/auth/register", "", map[string]string{
			"username": "ana", "email": "other@example.com", "password": "secret123",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid registration", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/auth/register", "", map[string]string{
			"username": "bob", "email": "not-an-email", "password": "secret123",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("form login", func(t *testing.T) {
		form := url.Values{"username": {"ana@example.com"}, "password": {"secret123"}}
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		api.srv.Handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		tok := decode[tokenResponse](t, rec)
		assert.Equal(t, "bearer", tok.TokenType)
		assert.Equal(t, int64(3600), tok.ExpiresIn)

		me := api.do(http.MethodGet, "/auth/me", tok.AccessToken, nil)
		require.Equal(t, http.StatusOK, me.Code)
		assert.Equal(t, user, decode[userResponse](t, me))
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/auth/login", "", map[string]string{
			"username": "ana@example.com", "password": "wrong-password",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("missing credentials", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "ana@example.com"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t, false)

	ghost, err := api.issuer.Issue(core.User{ID: 4242, Username: "ghost", Email: "ghost@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "missing header", header: "", want: "Not authenticated"},
		{name: "wrong scheme", header: "Basic abc", want: "Not authenticated"},
		{name: "garbage token", header: "Bearer not.a.jwt", want: "Could not validate credentials"},
		{name: "unknown user", header: "Bearer " + ghost, want: "Could not validate credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/budget", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			api.srv.Handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			assert.Equal(t, tt.want, detail(t, rec))
		})
	}
}

func TestBudgetAndSubscriptionLedger(t *testing.T) {
	api := newTestAPI(t, false)
	token := api.signup("ana")

	// subscriptions need a budget first
	rec := api.do(http.MethodPost, "/subscriptions", token, map[string]any{
		"name": "Netflix", "price": "15.99", "renewal_date": "2025-06-12",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "You must create a budget first", detail(t, rec))

	rec = api.do(http.MethodGet, "/budget", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPost, "/budget", token, map[string]any{"monthly_limit": 50})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	budget := decode[budgetResponse](t, rec)
	assert.Equal(t, "50.00", budget.MonthlyLimit)
	assert.Equal(t, "0.00", budget.CurrentSpent)
	assert.False(t, budget.AllowOverLimit)

	rec = api.do(http.MethodPost, "/budget", token, map[string]any{"monthly_limit": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/subscriptions", token, map[string]any{
		"name": "Netflix", "description": "streaming", "price": "15.99", "renewal_date": "2025-06-12",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	netflix := decode[subscriptionResponse](t, rec)
	assert.Equal(t, "15.99", netflix.Price)
	assert.Equal(t, "Entertainment", netflix.Category)
	assert.Equal(t, "2025-06-12", netflix.RenewalDate)

	rec = api.do(http.MethodPost, "/subscriptions", token, map[string]any{
		"name": "Gym", "price": 30, "renewal_date": "2025-06-01", "category": "Health & Fitness",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	gym := decode[subscriptionResponse](t, rec)
	assert.Nil(t, gym.Description)
	assert.Equal(t, "Health & Fitness", gym.Category)

	t.Run("over limit is rejected", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/subscriptions", token, map[string]any{
			"name": "Cloud", "price": "10.00", "renewal_date": "2025-06-20",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, detail(t, rec), "exceeded")
	})

	t.Run("summary reflects spend", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/budget/summary", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		sum := decode[budgetSummaryResponse](t, rec)
		assert.Equal(t, "45.99", sum.CurrentSpent)
		assert.Equal(t, "4.01", sum.Remaining)
		assert.Equal(t, core.StatusWithinLimit, sum.Status)
	})

	t.Run("toggle allows overspend", func(t *testing.T) {
		rec := api.do(http.MethodPatch, "/budget/toggle-overlimit", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"allow_over_limit":true}`, rec.Body.String())

		rec = api.do(http.MethodPost, "/subscriptions", token, map[string]any{
			"name": "Cloud", "price": "10.00", "renewal_date": "2025-06-20",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = api.do(http.MethodGet, "/budget/summary", token, nil)
		sum := decode[budgetSummaryResponse](t, rec)
		assert.True(t, sum.LimitExceeded)
		assert.Equal(t, "0.00", sum.Remaining)
		assert.Equal(t, core.InsightOverAllowed, sum.Insight)
	})

	t.Run("price update moves the ledger", func(t *testing.T) {
		rec := api.do(http.MethodPut, "/subscriptions/"+itoa(gym.ID), token, map[string]any{"price": "20.00"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "20.00", decode[subscriptionResponse](t, rec).Price)

		rec = api.do(http.MethodGet, "/budget", token, nil)
		assert.Equal(t, "45.99", decode[budgetResponse](t, rec).CurrentSpent)
	})

	t.Run("search and due", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/subscriptions/search?name=net", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		found := decode[[]subscriptionResponse](t, rec)
		require.Len(t, found, 1)
		assert.Equal(t, netflix.ID, found[0].ID)

		rec = api.do(http.MethodGet, "/subscriptions/search?name=zzz", token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = api.do(http.MethodGet, "/subscriptions/due", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		due := decode[dueResponse](t, rec)
		require.Len(t, due.DueSoon, 1)
		assert.Equal(t, "Netflix", due.DueSoon[0].Name)
		require.Len(t, due.Overdue, 1)
		assert.Equal(t, "Gym", due.Overdue[0].Name)
	})

	t.Run("other users cannot see subscriptions", func(t *testing.T) {
		other := api.signup("ben")
		rec := api.do(http.MethodGet, "/subscriptions/"+itoa(netflix.ID), other, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = api.do(http.MethodDelete, "/subscriptions/"+itoa(netflix.ID), other, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid input", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/subscriptions/abc", token, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		rec = api.do(http.MethodPost, "/subscriptions", token, map[string]any{
			"name": "X", "price": "1", "renewal_date": "12/06/2025",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		rec = api.do(http.MethodPost, "/subscriptions", token, map[string]any{
			"name": "X", "renewal_date": "2025-06-12",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("delete subscription refunds", func(t *testing.T) {
		rec := api.do(http.MethodDelete, "/subscriptions/"+itoa(netflix.ID), token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Subscription deleted successfully"}`, rec.Body.String())

		rec = api.do(http.MethodGet, "/budget", token, nil)
		assert.Equal(t, "30.00", decode[budgetResponse](t, rec).CurrentSpent)

		rec = api.do(http.MethodGet, "/subscriptions/"+itoa(netflix.ID), token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete budget cascades", func(t *testing.T) {
		rec := api.do(http.MethodDelete, "/budget", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[deleteBudgetResponse](t, rec)
		assert.Equal(t, "Budget deleted successfully", resp.Message)
		assert.Equal(t, int64(2), resp.SubscriptionsRemoved)

		rec = api.do(http.MethodGet, "/subscriptions", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}

func TestInsightEndpoints(t *testing.T) {
	api := newTestAPI(t, false)
	token := api.signup("ana")

	rec := api.do(http.MethodGet, "/ai/cost-summary", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodGet, "/ai/monthly-report", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[monthlyReportResponse](t, rec)
	assert.Equal(t, "0.00", empty.CurrentTotal)
	assert.Empty(t, empty.AISummary)

	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/budget", token, map[string]any{"monthly_limit": "100"}).Code)
	for _, sub := range []map[string]any{
		{"name": "Netflix", "price": "15.99", "renewal_date": "2025-06-12"},
		{"name": "Spotify", "price": "9.99", "renewal_date": "2025-05-03"},
	} {
		require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/subscriptions", token, sub).Code)
	}

	rec = api.do(http.MethodGet, "/ai/cost-summary", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cost := decode[costSummaryResponse](t, rec)
	assert.Equal(t, "25.98", cost.TotalSpent)
	assert.Equal(t, "74.02", cost.Remaining)
	assert.Equal(t, 2, cost.SubscriptionCount)
	assert.Equal(t, "Spending looks healthy.", cost.AISummary)
	require.Len(t, cost.ByCategory, 1)
	assert.Equal(t, "Entertainment", cost.ByCategory[0].Category)

	rec = api.do(http.MethodGet, "/ai/monthly-report", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[monthlyReportResponse](t, rec)
	assert.Equal(t, "15.99", report.CurrentTotal)
	assert.Equal(t, "9.99", report.PreviousTotal)
	assert.Equal(t, "Spending looks healthy.", report.AISummary)
	require.NotEmpty(t, report.TopSubscriptions)
	assert.Equal(t, "Netflix", report.TopSubscriptions[0].Name)
}

func TestRateLimitPerRoute(t *testing.T) {
	api := newTestAPI(t, true)

	for i := 0; i < 5; i++ {
		rec := api.do(http.MethodPost, "/auth/register", "", `{}`)
		require.NotEqual(t, http.StatusTooManyRequests, rec.Code, "request %d", i)
	}

	rec := api.do(http.MethodPost, "/auth/register", "", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, detail(t, rec), "Rate limit exceeded")

	// login has its own budget
	rec = api.do(http.MethodPost, "/auth/login", "", `{}`)
	assert.NotEqual(t, http.StatusTooManyRequests, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
