package server

import (
	"net/http"

	"github.com/rjmcleod/finch/internal/common"
	"github.com/rjmcleod/finch/internal/models"
)

// handleHoldingList handles GET /api/holdings.
func (s *Server) handleHoldingList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	userID := common.ResolveUserID(r.Context())
	list, err := s.app.HoldingsService.ListHoldings(r.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list holdings")
		WriteError(w, http.StatusInternalServerError, "Failed to list holdings")
		return
	}
	if list == nil {
		list = []*models.Holding{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"holdings": list,
		"count":    len(list),
	})
}

// handleReconcileAll handles POST /api/holdings/reconcile.
// With an account_id query parameter only that account is reconciled.
func (s *Server) handleReconcileAll(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	userID := common.ResolveUserID(r.Context())

	var results []models.ReconcileResult
	var err error
	if account := r.URL.Query().Get("account_id"); account != "" {
		results, err = s.app.HoldingsService.ReconcileAccount(r.Context(), userID, account)
	} else {
		results, err = s.app.HoldingsService.ReconcileAll(r.Context(), userID)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Reconciliation failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []models.ReconcileResult{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

// handleReconcileTicker handles POST /api/holdings/{ticker}/reconcile.
func (s *Server) handleReconcileTicker(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	userID := common.ResolveUserID(r.Context())
	account := r.URL.Query().Get("account_id")

	result, err := s.app.HoldingsService.Reconcile(r.Context(), userID, ticker, account)
	if err != nil {
		s.logger.Error().Err(err).Str("ticker", ticker).Msg("Reconciliation failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
