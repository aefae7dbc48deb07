package http

import (
	"net/http"

	"spendly/internal/core"
	"spendly/internal/log"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := s.deps.Users.Register(r.Context(), sanitizeInput(req.Username), sanitizeInput(req.Email), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserResponse(u))
}

// handleLogin accepts a JSON body or form fields. The email travels in the
// "username" field; "email" is accepted as well.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeError(w, r, core.Invalid("Invalid login request"))
		return
	}

	email := p.Get("username")
	if email == "" {
		email = p.Get("email")
	}
	password := p.Raw("password")
	if email == "" || password == "" {
		writeError(w, r, core.Invalid("username and password are required"))
		return
	}

	u, err := s.deps.Users.Authenticate(r.Context(), email, password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := s.deps.Issuer.Issue(u)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.FromContext(r.Context()).WithComponent(log.ComponentAuth).InfoContext(r.Context(), "User logged in",
		log.FieldUserID, u.ID)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.deps.Issuer.TTL().Seconds()),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Users.Get(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}
