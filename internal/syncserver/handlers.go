package syncserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/julianstephens/tripkit/internal/models"
)

// maxBodyBytes caps request bodies. Plans carry their itinerary inline.
const maxBodyBytes = 4 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"ok": false, "error": "database unavailable"})
		return
	}
	writeOK(w)
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	plans, err := s.repo.ListPlans(r.Context(), userID)
	if err != nil {
		serverError(w, r, "list plans", err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.repo.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		serverError(w, r, "get plan", err)
		return
	}
	if plan == nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) upsertPlan(w http.ResponseWriter, r *http.Request) {
	var plan models.TravelPlan
	if !decodeBody(w, r, &plan) {
		return
	}
	if plan.ID == "" || plan.UserID == "" {
		writeError(w, http.StatusBadRequest, "id and user_id are required")
		return
	}
	if err := s.repo.UpsertPlan(r.Context(), plan); err != nil {
		serverError(w, r, "upsert plan", err)
		return
	}
	writeOK(w)
}

func (s *Server) patchPlan(w http.ResponseWriter, r *http.Request) {
	s.patch(w, r, planPatchColumns, s.repo.PatchPlan)
}

func (s *Server) deletePlan(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeletePlan(r.Context(), chi.URLParam(r, "id")); err != nil {
		serverError(w, r, "delete plan", err)
		return
	}
	writeOK(w)
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	planID := strings.TrimSpace(r.URL.Query().Get("travel_plan_id"))
	if planID == "" {
		writeError(w, http.StatusBadRequest, "travel_plan_id is required")
		return
	}
	expenses, err := s.repo.ListExpenses(r.Context(), planID)
	if err != nil {
		serverError(w, r, "list expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) upsertExpense(w http.ResponseWriter, r *http.Request) {
	var e models.Expense
	if !decodeBody(w, r, &e) {
		return
	}
	if e.ID == "" || e.TravelPlanID == "" {
		writeError(w, http.StatusBadRequest, "id and travel_plan_id are required")
		return
	}
	err := s.repo.UpsertExpense(r.Context(), e)
	switch {
	case errors.Is(err, ErrUnknownPlan):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		serverError(w, r, "upsert expense", err)
	default:
		writeOK(w)
	}
}

func (s *Server) patchExpense(w http.ResponseWriter, r *http.Request) {
	s.patch(w, r, expensePatchColumns, s.repo.PatchExpense)
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteExpense(r.Context(), chi.URLParam(r, "id")); err != nil {
		serverError(w, r, "delete expense", err)
		return
	}
	writeOK(w)
}

// patch applies the known columns of the request body. An empty body or one
// with only unknown keys is a successful no-op.
func (s *Server) patch(w http.ResponseWriter, r *http.Request, columns map[string]columnKind,
	apply func(ctx context.Context, id string, set []Assignment) error) {
	var updates map[string]interface{}
	if !decodeBody(w, r, &updates) {
		return
	}
	set, err := buildAssignments(columns, updates)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(set) == 0 {
		writeOK(w)
		return
	}
	err = apply(r.Context(), chi.URLParam(r, "id"), set)
	switch {
	case errors.Is(err, ErrUnknownPlan):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		serverError(w, r, "patch", err)
	default:
		writeOK(w)
	}
}
