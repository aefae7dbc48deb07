package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"spendly/internal/auth"
	"spendly/internal/cache"
	"spendly/internal/log"
	"spendly/internal/middleware/ratelimit"
	"spendly/internal/middleware/security"
	"spendly/internal/middleware/trace"
	"spendly/internal/services"
)

const (
	cacheCleanupInterval = 10 * time.Minute
	readyTimeout         = 2 * time.Second
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the API delegates to.
type Deps struct {
	Users         *services.UserService
	Budgets       *services.BudgetService
	Subscriptions *services.SubscriptionService
	Insights      *services.InsightService
	Issuer        *auth.Issuer
	Store         Pinger

	Logger   *log.Logger
	Detector *security.Detector

	// RateLimit enables the per-route, per-client limits.
	RateLimit     bool
	DueWindowDays int
	Now           func() time.Time
}

type Server struct {
	http.Server
	deps     Deps
	logger   *log.Logger
	detector *security.Detector
	limiters *ratelimit.Set
	cacheMgr *cache.Manager
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.DueWindowDays <= 0 {
		deps.DueWindowDays = services.DefaultDueWindowDays
	}
	detector := deps.Detector
	if detector == nil {
		detector, _ = security.NewDetector()
	}

	s := &Server{
		deps:     deps,
		logger:   deps.Logger.WithComponent(log.ComponentHTTP),
		detector: detector,
		limiters: ratelimit.NewSet(ratelimit.DefaultConfig()),
		cacheMgr: cache.NewManager(),
	}
	s.tracer = trace.NewMiddleware(deps.Logger, detector.ExtractClientIP)

	if deps.Insights != nil {
		s.cacheMgr.Register(deps.Insights.Cache())
	}
	s.cacheMgr.StartCleanup(cacheCleanupInterval)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = s.routes()
	handler = detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = s.recoverPanics(handler)
	handler = log.Middleware(s.logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		NotFoundError("Not Found").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "Method Not Allowed").Write(w)
	})

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	s.public(r, http.MethodPost, "/auth/register", 5, s.handleRegister)
	s.public(r, http.MethodPost, "/auth/login", 10, s.handleLogin)
	s.protected(r, http.MethodGet, "/auth/me", 15, s.handleMe)

	s.protected(r, http.MethodPost, "/budget", 3, s.handleCreateBudget)
	s.protected(r, http.MethodGet, "/budget", 10, s.handleGetBudget)
	s.protected(r, http.MethodPut, "/budget", 5, s.handleUpdateBudget)
	s.protected(r, http.MethodDelete, "/budget", 3, s.handleDeleteBudget)
	s.protected(r, http.MethodGet, "/budget/summary", 10, s.handleBudgetSummary)
	s.protected(r, http.MethodPatch, "/budget/toggle-overlimit", 5, s.handleToggleOverLimit)

	// Static paths are registered before {id} so they win the match.
	s.protected(r, http.MethodPost, "/subscriptions", 10, s.handleCreateSubscription)
	s.protected(r, http.MethodGet, "/subscriptions", 10, s.handleListSubscriptions)
	s.protected(r, http.MethodGet, "/subscriptions/search", 10, s.handleSearchSubscriptions)
	s.protected(r, http.MethodGet, "/subscriptions/due", 10, s.handleDueSubscriptions)
	s.protected(r, http.MethodGet, "/subscriptions/{id}", 10, s.handleGetSubscription)
	s.protected(r, http.MethodPut, "/subscriptions/{id}", 5, s.handleUpdateSubscription)
	s.protected(r, http.MethodDelete, "/subscriptions/{id}", 3, s.handleDeleteSubscription)

	s.protected(r, http.MethodGet, "/ai/cost-summary", 5, s.handleCostSummary)
	s.protected(r, http.MethodGet, "/ai/monthly-report", 5, s.handleMonthlyReport)

	return r
}

func (s *Server) public(r *mux.Router, method, path string, perMinute int, h http.HandlerFunc) {
	r.Handle(path, s.limited(method, path, perMinute, h)).Methods(method)
}

func (s *Server) protected(r *mux.Router, method, path string, perMinute int, h http.HandlerFunc) {
	r.Handle(path, s.limited(method, path, perMinute, s.requireAuth(h))).Methods(method)
}

// limited applies the route's own per-client budget.
func (s *Server) limited(method, path string, perMinute int, next http.Handler) http.Handler {
	if !s.deps.RateLimit {
		return next
	}
	limiter := s.limiters.For(method+" "+path, perMinute)
	return limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(next)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheMgr.Stop()
		s.limiters.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// TraceMetrics exposes request counters for diagnostics.
func (s *Server) TraceMetrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

type statusResponse struct {
	Status string `json:"status"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeJSON(w, http.StatusOK, statusResponse{Status: "ready"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.deps.Store.Ping(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, "Database unavailable").Write(w)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ready"})
}
