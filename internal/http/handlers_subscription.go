package http

import (
	"net/http"

	"spendly/internal/core"
	"spendly/internal/services"
)

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := req.subscription()
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.deps.Subscriptions.Create(r.Context(), currentUserID(r), sub)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSubscriptionResponse(created))
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.deps.Subscriptions.List(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSubscriptionList(subs))
}

func (s *Server) handleSearchSubscriptions(w http.ResponseWriter, r *http.Request) {
	term := sanitizeInput(r.URL.Query().Get("name"))
	subs, err := s.deps.Subscriptions.Search(r.Context(), currentUserID(r), term)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSubscriptionList(subs))
}

// handleDueSubscriptions reports the caller's renewals inside the reminder
// window and the ones already past.
func (s *Server) handleDueSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.deps.Subscriptions.List(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	report := services.ClassifyDue(subs, core.UTCDate(s.deps.Now()), s.deps.DueWindowDays)
	writeJSON(w, http.StatusOK, dueResponse{
		DueSoon: newSubscriptionList(report.DueSoon),
		Overdue: newSubscriptionList(report.Overdue),
	})
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := s.deps.Subscriptions.Get(r.Context(), id, currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSubscriptionResponse(sub))
}

func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req subscriptionUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.deps.Subscriptions.Update(r.Context(), id, currentUserID(r), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSubscriptionResponse(updated))
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Subscriptions.Delete(r.Context(), id, currentUserID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Subscription deleted successfully"})
}
