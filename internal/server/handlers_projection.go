package server

import (
	"net/http"

	"github.com/rjmcleod/finch/internal/common"
)

// handleProjection handles GET /api/projection.
// Query parameters: monthly_income, monthly_expenses.
func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	income, ok := parseFloatQuery(r, "monthly_income", 0)
	if !ok {
		WriteError(w, http.StatusBadRequest, "monthly_income must be a number")
		return
	}
	expenses, ok := parseFloatQuery(r, "monthly_expenses", 0)
	if !ok {
		WriteError(w, http.StatusBadRequest, "monthly_expenses must be a number")
		return
	}
	if income < 0 || expenses < 0 {
		WriteError(w, http.StatusBadRequest, "income and expenses must be non-negative")
		return
	}

	userID := common.ResolveUserID(r.Context())
	series, err := s.app.ProjectionService.ProjectForUser(r.Context(), userID, income, expenses)
	if err != nil {
		s.logger.Error().Err(err).Str("user", userID).Msg("Projection failed")
		WriteError(w, http.StatusInternalServerError, "Failed to compute projection")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"years": series,
	})
}

// handleProjectionChart handles GET /api/projection/chart, returning a PNG
// of the income/expenses/net series.
func (s *Server) handleProjectionChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	income, ok := parseFloatQuery(r, "monthly_income", 0)
	if !ok {
		WriteError(w, http.StatusBadRequest, "monthly_income must be a number")
		return
	}
	expenses, ok := parseFloatQuery(r, "monthly_expenses", 0)
	if !ok {
		WriteError(w, http.StatusBadRequest, "monthly_expenses must be a number")
		return
	}

	userID := common.ResolveUserID(r.Context())
	series, err := s.app.ProjectionService.ProjectForUser(r.Context(), userID, income, expenses)
	if err != nil {
		s.logger.Error().Err(err).Str("user", userID).Msg("Projection failed")
		WriteError(w, http.StatusInternalServerError, "Failed to compute projection")
		return
	}

	png, err := s.app.ProjectionService.RenderChart(series)
	if err != nil {
		s.logger.Error().Err(err).Msg("Chart render failed")
		WriteError(w, http.StatusInternalServerError, "Failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// handleDebtSummary handles GET /api/projection/debt-summary.
func (s *Server) handleDebtSummary(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	userID := common.ResolveUserID(r.Context())
	summary, err := s.app.ProjectionService.DebtSummary(r.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user", userID).Msg("Debt summary failed")
		WriteError(w, http.StatusInternalServerError, "Failed to compute debt summary")
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}
