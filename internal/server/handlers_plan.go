package server

import (
	"net/http"
	"strings"

	"github.com/rjmcleod/finch/internal/common"
	"github.com/rjmcleod/finch/internal/models"
)

// --- Liabilities ---

// handleLiabilities handles GET and POST /api/plan/liabilities.
func (s *Server) handleLiabilities(w http.ResponseWriter, r *http.Request) {
	userID := common.ResolveUserID(r.Context())

	switch r.Method {
	case http.MethodGet:
		list, err := s.app.PlanService.ListLiabilities(r.Context(), userID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Failed to list liabilities")
			return
		}
		if list == nil {
			list = []*models.Liability{}
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"liabilities": list, "count": len(list)})

	case http.MethodPost:
		var l models.Liability
		if !DecodeJSON(w, r, &l) {
			return
		}
		created, err := s.app.PlanService.AddLiability(r.Context(), userID, &l)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, created)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleLiabilityItem handles PATCH and DELETE on /api/plan/liabilities/{id}.
func (s *Server) handleLiabilityItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/plan/liabilities/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	userID := common.ResolveUserID(r.Context())

	switch r.Method {
	case http.MethodPatch, http.MethodPut:
		var update models.Liability
		if !DecodeJSON(w, r, &update) {
			return
		}
		updated, err := s.app.PlanService.UpdateLiability(r.Context(), userID, id, update)
		if err != nil {
			writePlanError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		if err := s.app.PlanService.DeleteLiability(r.Context(), userID, id); err != nil {
			writePlanError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})

	default:
		RequireMethod(w, r, http.MethodPatch, http.MethodPut, http.MethodDelete)
	}
}

// --- Life events ---

// handleLifeEvents handles GET and POST /api/plan/events.
func (s *Server) handleLifeEvents(w http.ResponseWriter, r *http.Request) {
	userID := common.ResolveUserID(r.Context())

	switch r.Method {
	case http.MethodGet:
		list, err := s.app.PlanService.ListLifeEvents(r.Context(), userID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Failed to list life events")
			return
		}
		if list == nil {
			list = []*models.LifeEvent{}
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"events": list, "count": len(list)})

	case http.MethodPost:
		var e models.LifeEvent
		if !DecodeJSON(w, r, &e) {
			return
		}
		created, err := s.app.PlanService.AddLifeEvent(r.Context(), userID, &e)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, created)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleLifeEventItem handles PATCH and DELETE on /api/plan/events/{id}.
func (s *Server) handleLifeEventItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/plan/events/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	userID := common.ResolveUserID(r.Context())

	switch r.Method {
	case http.MethodPatch, http.MethodPut:
		var update models.LifeEvent
		if !DecodeJSON(w, r, &update) {
			return
		}
		updated, err := s.app.PlanService.UpdateLifeEvent(r.Context(), userID, id, update)
		if err != nil {
			writePlanError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		if err := s.app.PlanService.DeleteLifeEvent(r.Context(), userID, id); err != nil {
			writePlanError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})

	default:
		RequireMethod(w, r, http.MethodPatch, http.MethodPut, http.MethodDelete)
	}
}

// --- Goals ---

// handleGoals handles GET and POST /api/plan/goals.
func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	userID := common.ResolveUserID(r.Context())

	switch r.Method {
	case http.MethodGet:
		list, err := s.app.PlanService.ListGoals(r.Context(), userID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Failed to list goals")
			return
		}
		if list == nil {
			list = []*models.Goal{}
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"goals": list, "count": len(list)})

	case http.MethodPost:
		var g models.Goal
		if !DecodeJSON(w, r, &g) {
			return
		}
		created, err := s.app.PlanService.AddGoal(r.Context(), userID, &g)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, created)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleGoalItem handles PATCH and DELETE on /api/plan/goals/{id}.
func (s *Server) handleGoalItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/plan/goals/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	userID := common.ResolveUserID(r.Context())

	switch r.Method {
	case http.MethodPatch, http.MethodPut:
		var update models.Goal
		if !DecodeJSON(w, r, &update) {
			return
		}
		updated, err := s.app.PlanService.UpdateGoal(r.Context(), userID, id, update)
		if err != nil {
			writePlanError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		if err := s.app.PlanService.DeleteGoal(r.Context(), userID, id); err != nil {
			writePlanError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})

	default:
		RequireMethod(w, r, http.MethodPatch, http.MethodPut, http.MethodDelete)
	}
}

// --- Settings ---

// handleSettings handles GET and PUT /api/plan/settings.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	userID := common.ResolveUserID(r.Context())

	switch r.Method {
	case http.MethodGet:
		settings, err := s.app.PlanService.GetSettings(r.Context(), userID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Failed to load settings")
			return
		}
		WriteJSON(w, http.StatusOK, settings)

	case http.MethodPut, http.MethodPost:
		var settings models.UserSettings
		if !DecodeJSON(w, r, &settings) {
			return
		}
		saved, err := s.app.PlanService.SaveSettings(r.Context(), userID, settings)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, saved)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodPost)
	}
}

// writePlanError maps service errors to status codes: unknown IDs become
// 404, everything else 400.
func writePlanError(w http.ResponseWriter, err error) {
	if strings.Contains(err.Error(), "not found") {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteError(w, http.StatusBadRequest, err.Error())
}
