package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/tally/internal/types"
	"github.com/hyperengineering/tally/internal/validation"
)

// ListGoals handles GET /api/v1/trackables/{id}/goals, newest first.
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)
	id := chi.URLParam(r, "id")

	if _, err := sc.store.GetTrackable(r.Context(), sc.account.ID, id); err != nil {
		storeFailure(w, r, "list_goals", err)
		return
	}
	goals, err := sc.store.ListGoals(r.Context(), sc.account.ID, id)
	if err != nil {
		storeFailure(w, r, "list_goals", err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

// CreateGoal handles POST /api/v1/trackables/{id}/goals
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	var req types.GoalRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if errs := validation.ValidateGoal(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	created, err := sc.store.CreateGoal(r.Context(), sc.account.ID, types.Goal{
		TrackableID:  chi.URLParam(r, "id"),
		TargetValue:  req.TargetValue,
		TargetPeriod: types.Period(req.TargetPeriod),
	})
	if err != nil {
		storeFailure(w, r, "create_goal", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateGoal handles PATCH /api/v1/goals/{id}
func (h *Handler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	var req types.UpdateGoalRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if errs := validation.ValidateUpdateGoal(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	existing, err := sc.store.GetGoal(r.Context(), sc.account.ID, chi.URLParam(r, "id"))
	if err != nil {
		storeFailure(w, r, "update_goal", err)
		return
	}
	updated := *existing
	if req.TargetValue != nil {
		updated.TargetValue = *req.TargetValue
	}
	if req.TargetPeriod != nil {
		updated.TargetPeriod = types.Period(*req.TargetPeriod)
	}

	saved, err := sc.store.UpdateGoal(r.Context(), sc.account.ID, updated)
	if err != nil {
		storeFailure(w, r, "update_goal", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteGoal handles DELETE /api/v1/goals/{id}
func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	if err := sc.store.DeleteGoal(r.Context(), sc.account.ID, chi.URLParam(r, "id")); err != nil {
		storeFailure(w, r, "delete_goal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
