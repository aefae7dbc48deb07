package http

import (
	"errors"
	"net/http"
	"runtime/debug"
	"strings"

	"spendly/internal/auth"
	"spendly/internal/core"
	"spendly/internal/log"
)

const bearerPrefix = "bearer "

// recoverPanics turns a handler panic into a logged 500.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panic",
					"panic", rec,
					log.FieldPath, r.URL.Path,
					"stack", string(debug.Stack()))
				InternalServerError().Write(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireAuth verifies the bearer token and that its user still exists,
// then stores the identity in the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			UnauthorizedError("Not authenticated").Write(w)
			return
		}
		token := strings.TrimSpace(header[len(bearerPrefix):])

		id, err := s.deps.Issuer.Verify(token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		u, err := s.deps.Users.Get(r.Context(), id.UserID)
		if errors.Is(err, core.ErrNotFound) {
			UnauthorizedError("Could not validate credentials").Write(w)
			return
		}
		if err != nil {
			writeError(w, r, err)
			return
		}

		id.Email = u.Email
		id.Username = u.Username
		ctx := auth.WithIdentity(r.Context(), id)
		ctx = log.WithLogger(ctx, log.FromContext(ctx).With(log.FieldUserID, u.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

// currentUserID returns the caller verified by requireAuth.
func currentUserID(r *http.Request) int64 {
	id, _ := auth.IdentityFromContext(r.Context())
	return id.UserID
}
