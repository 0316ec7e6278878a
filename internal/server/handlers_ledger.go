package server

import (
	"net/http"
	"strings"

	"github.com/rjmcleod/finch/internal/common"
	"github.com/rjmcleod/finch/internal/models"
)

// handleTransactionList handles GET /api/transactions.
func (s *Server) handleTransactionList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	userID := common.ResolveUserID(r.Context())
	txs, err := s.app.LedgerService.ListTransactions(r.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list transactions")
		WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}
	if txs == nil {
		txs = []*models.Transaction{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// handleTransactionBuy handles POST /api/transactions/buy.
func (s *Server) handleTransactionBuy(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.BuyRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	userID := common.ResolveUserID(r.Context())
	tx, err := s.app.LedgerService.RecordBuy(r.Context(), userID, req)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, tx)
}

// handleTransactionSell handles POST /api/transactions/sell.
func (s *Server) handleTransactionSell(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.SellRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	userID := common.ResolveUserID(r.Context())
	tx, err := s.app.LedgerService.RecordSell(r.Context(), userID, req)
	if err != nil {
		if strings.Contains(err.Error(), "insufficient holdings") {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, tx)
}

// handleTransactionItem handles PATCH and DELETE on /api/transactions/{id}.
func (s *Server) handleTransactionItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	userID := common.ResolveUserID(r.Context())

	switch r.Method {
	case http.MethodPatch, http.MethodPut:
		var update models.Transaction
		if !DecodeJSON(w, r, &update) {
			return
		}
		tx, err := s.app.LedgerService.UpdateTransaction(r.Context(), userID, id, update)
		if err != nil {
			if strings.Contains(err.Error(), "not found") {
				WriteError(w, http.StatusNotFound, err.Error())
				return
			}
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, tx)

	case http.MethodDelete:
		if err := s.app.LedgerService.DeleteTransaction(r.Context(), userID, id); err != nil {
			if strings.Contains(err.Error(), "not found") {
				WriteError(w, http.StatusNotFound, err.Error())
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})

	default:
		RequireMethod(w, r, http.MethodPatch, http.MethodPut, http.MethodDelete)
	}
}

// handleTransactionImport handles POST /api/transactions/import with a CSV body.
func (s *Server) handleTransactionImport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "CSV body is required")
		return
	}

	userID := common.ResolveUserID(r.Context())
	summary, err := s.app.LedgerService.ImportCSV(r.Context(), userID, http.MaxBytesReader(w, r.Body, 8<<20))
	if err != nil {
		s.logger.Error().Err(err).Msg("CSV import failed")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}
