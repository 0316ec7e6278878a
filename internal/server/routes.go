package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/rjmcleod/finch/internal/app"
	"github.com/rjmcleod/finch/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Projection
	mux.HandleFunc("/api/projection", s.handleProjection)
	mux.HandleFunc("/api/projection/chart", s.handleProjectionChart)
	mux.HandleFunc("/api/projection/debt-summary", s.handleDebtSummary)

	// Ledger
	mux.HandleFunc("/api/transactions/buy", s.handleTransactionBuy)
	mux.HandleFunc("/api/transactions/sell", s.handleTransactionSell)
	mux.HandleFunc("/api/transactions/import", s.handleTransactionImport)
	mux.HandleFunc("/api/transactions/", s.handleTransactionItem)
	mux.HandleFunc("/api/transactions", s.handleTransactionList)

	// Holdings
	mux.HandleFunc("/api/holdings/reconcile", s.handleReconcileAll)
	mux.HandleFunc("/api/holdings/", s.routeHoldings)
	mux.HandleFunc("/api/holdings", s.handleHoldingList)

	// Plan entities
	mux.HandleFunc("/api/plan/liabilities/", s.handleLiabilityItem)
	mux.HandleFunc("/api/plan/liabilities", s.handleLiabilities)
	mux.HandleFunc("/api/plan/events/", s.handleLifeEventItem)
	mux.HandleFunc("/api/plan/events", s.handleLifeEvents)
	mux.HandleFunc("/api/plan/goals/", s.handleGoalItem)
	mux.HandleFunc("/api/plan/goals", s.handleGoals)
	mux.HandleFunc("/api/plan/settings", s.handleSettings)
}

// routeHoldings dispatches /api/holdings/{ticker}/reconcile and
// account-level reconciliation.
func (s *Server) routeHoldings(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/holdings/")
	if path == "" {
		s.handleHoldingList(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 2 && parts[1] == "reconcile" {
		s.handleReconcileTicker(w, r, parts[0])
		return
	}

	WriteError(w, http.StatusNotFound, "Not found")
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.Version,
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"environment":      s.app.Config.Environment,
		"storage_internal": s.app.Config.Storage.Internal.Path,
		"storage_finance":  s.app.Config.Storage.Finance.Path,
		"logging_level":    s.app.Config.Logging.Level,
		"chart_width":      s.app.Config.Projection.ChartWidth,
		"chart_height":     s.app.Config.Projection.ChartHeight,
	})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	uptime := time.Since(s.app.StartupTime).Round(time.Second)
	payload := map[string]interface{}{
		"version":    common.VersionString(),
		"uptime":     uptime.String(),
		"started_at": s.app.StartupTime,
	}
	if v, err := s.app.Storage.KeyValueStore().GetSystemKV(r.Context(), app.SchemaVersionKey); err == nil {
		payload["schema_version"] = v
	}
	if v, err := s.app.Storage.KeyValueStore().GetSystemKV(r.Context(), app.LastStartupKey); err == nil {
		payload["last_startup"] = v
	}
	WriteJSON(w, http.StatusOK, payload)
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}
