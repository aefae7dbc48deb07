package http

import (
	"net/http"

	"spendly/internal/core"
)

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !req.MonthlyLimit.Set {
		writeError(w, r, core.Invalid("monthly_limit is required"))
		return
	}

	b, err := s.deps.Budgets.CreateBudget(r.Context(), currentUserID(r), req.MonthlyLimit.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newBudgetResponse(b))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Budgets.GetBudget(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBudgetResponse(b))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	b, err := s.deps.Budgets.UpdateBudget(r.Context(), currentUserID(r), req.patch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBudgetResponse(b))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	removed, err := s.deps.Budgets.DeleteBudget(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteBudgetResponse{
		Message:              "Budget deleted successfully",
		SubscriptionsRemoved: removed,
	})
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Budgets.GetSummary(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newBudgetSummaryResponse(summary))
}

func (s *Server) handleToggleOverLimit(w http.ResponseWriter, r *http.Request) {
	allowed, err := s.deps.Budgets.ToggleOverLimit(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{AllowOverLimit: allowed})
}
