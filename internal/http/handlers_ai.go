package http

import "net/http"

func (s *Server) handleCostSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Insights.CostSummary(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCostSummaryResponse(summary))
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Insights.MonthlyReport(r.Context(), currentUserID(r), s.deps.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newMonthlyReportResponse(report))
}
