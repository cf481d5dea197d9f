package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/tally/internal/types"
	"github.com/hyperengineering/tally/internal/validation"
)

// ListTrackables handles GET /api/v1/trackables
func (h *Handler) ListTrackables(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	trackables, err := sc.store.ListTrackables(r.Context(), sc.account.ID)
	if err != nil {
		storeFailure(w, r, "list_trackables", err)
		return
	}
	writeJSON(w, http.StatusOK, trackables)
}

// CreateTrackable handles POST /api/v1/trackables
func (h *Handler) CreateTrackable(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	var req types.CreateTrackableRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if errs := validation.ValidateCreateTrackable(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	created, err := sc.store.CreateTrackable(r.Context(), sc.account.ID, types.Trackable{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
	})
	if err != nil {
		storeFailure(w, r, "create_trackable", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetTrackable handles GET /api/v1/trackables/{id}
func (h *Handler) GetTrackable(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	t, err := sc.store.GetTrackable(r.Context(), sc.account.ID, chi.URLParam(r, "id"))
	if err != nil {
		storeFailure(w, r, "get_trackable", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateTrackable handles PATCH /api/v1/trackables/{id}. Absent fields are
// left unchanged.
func (h *Handler) UpdateTrackable(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	var req types.UpdateTrackableRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if errs := validation.ValidateUpdateTrackable(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	existing, err := sc.store.GetTrackable(r.Context(), sc.account.ID, chi.URLParam(r, "id"))
	if err != nil {
		storeFailure(w, r, "update_trackable", err)
		return
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.Color != nil {
		updated.Color = *req.Color
	}
	if req.Icon != nil {
		updated.Icon = *req.Icon
	}

	saved, err := sc.store.UpdateTrackable(r.Context(), sc.account.ID, updated)
	if err != nil {
		storeFailure(w, r, "update_trackable", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteTrackable handles DELETE /api/v1/trackables/{id}. Entries and goals
// go with it.
func (h *Handler) DeleteTrackable(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	if err := sc.store.DeleteTrackable(r.Context(), sc.account.ID, chi.URLParam(r, "id")); err != nil {
		storeFailure(w, r, "delete_trackable", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
