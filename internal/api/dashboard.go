package api

import (
	"errors"
	"net/http"

	"github.com/hyperengineering/tally/internal/analytics"
	"github.com/hyperengineering/tally/internal/store"
	"github.com/hyperengineering/tally/internal/types"
	"github.com/hyperengineering/tally/internal/validation"
)

// DashboardItem is one card on the dashboard.
type DashboardItem struct {
	Trackable types.Trackable     `json:"trackable"`
	Stats     analytics.Stats     `json:"stats"`
	Goal      *types.Goal         `json:"goal"`
	Progress  *analytics.Progress `json:"progress"`
}

// DashboardResponse is the resolved dashboard: the effective settings and
// the selected trackables in display order.
type DashboardResponse struct {
	Settings types.DashboardSettings `json:"settings"`
	Items    []DashboardItem         `json:"items"`
}

// effectiveSettings returns the saved settings, or the all-trackables
// default when none were saved, together with the owner's trackables. Saved
// ids of trackables that no longer exist are dropped.
func effectiveSettings(r *http.Request, sc scope) (types.DashboardSettings, []types.Trackable, error) {
	trackables, err := sc.store.ListTrackables(r.Context(), sc.account.ID)
	if err != nil {
		return types.DashboardSettings{}, nil, err
	}
	saved, err := sc.store.GetDashboardSettings(r.Context(), sc.account.ID)
	if errors.Is(err, store.ErrNotFound) {
		return analytics.DefaultSettings(trackables), trackables, nil
	}
	if err != nil {
		return types.DashboardSettings{}, nil, err
	}
	return analytics.PruneSettings(*saved, trackables), trackables, nil
}

func knownIDs(trackables []types.Trackable) map[string]bool {
	known := make(map[string]bool, len(trackables))
	for _, t := range trackables {
		known[t.ID] = true
	}
	return known
}

func (h *Handler) saveSettings(w http.ResponseWriter, r *http.Request, sc scope, s types.DashboardSettings, action string) {
	saved, err := sc.store.SaveDashboardSettings(r.Context(), sc.account.ID, s)
	if err != nil {
		storeFailure(w, r, action, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// GetDashboardSettings handles GET /api/v1/dashboard/settings
func (h *Handler) GetDashboardSettings(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	settings, _, err := effectiveSettings(r, sc)
	if err != nil {
		storeFailure(w, r, "get_dashboard_settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// PutDashboardSettings handles PUT /api/v1/dashboard/settings
func (h *Handler) PutDashboardSettings(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	var req types.DashboardSettingsRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	trackables, err := sc.store.ListTrackables(r.Context(), sc.account.ID)
	if err != nil {
		storeFailure(w, r, "put_dashboard_settings", err)
		return
	}
	known := knownIDs(trackables)
	var c validation.Collector
	c.Add(validation.ValidateKnownIDs("selected_trackables", req.SelectedTrackables, known))
	c.Add(validation.ValidateKnownIDs("trackable_order", req.TrackableOrder, known))
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", c.Errors())
		return
	}

	settings := types.DashboardSettings{
		SelectedTrackables: req.SelectedTrackables,
		TrackableOrder:     req.TrackableOrder,
	}
	if settings.SelectedTrackables == nil {
		settings.SelectedTrackables = []string{}
	}
	if settings.TrackableOrder == nil {
		settings.TrackableOrder = []string{}
	}
	h.saveSettings(w, r, sc, settings, "put_dashboard_settings")
}

// ResetDashboardSettings handles POST /api/v1/dashboard/settings/reset.
// Saved settings are dropped and the default is returned.
func (h *Handler) ResetDashboardSettings(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	if err := sc.store.DeleteDashboardSettings(r.Context(), sc.account.ID); err != nil {
		storeFailure(w, r, "reset_dashboard_settings", err)
		return
	}
	trackables, err := sc.store.ListTrackables(r.Context(), sc.account.ID)
	if err != nil {
		storeFailure(w, r, "reset_dashboard_settings", err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.DefaultSettings(trackables))
}

// ToggleTrackable handles POST /api/v1/dashboard/settings/toggle
func (h *Handler) ToggleTrackable(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	var req types.ToggleRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	settings, trackables, err := effectiveSettings(r, sc)
	if err != nil {
		storeFailure(w, r, "toggle_trackable", err)
		return
	}
	if verr := validation.ValidateKnownIDs("trackable_id", []string{req.TrackableID}, knownIDs(trackables)); verr != nil {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", []validation.ValidationError{*verr})
		return
	}

	h.saveSettings(w, r, sc, analytics.ToggleSelection(settings, req.TrackableID, req.Selected), "toggle_trackable")
}

// MoveTrackable handles POST /api/v1/dashboard/settings/move. The dragged
// trackable takes the target's place in the full display order.
func (h *Handler) MoveTrackable(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	var req types.MoveRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	settings, trackables, err := effectiveSettings(r, sc)
	if err != nil {
		storeFailure(w, r, "move_trackable", err)
		return
	}
	known := knownIDs(trackables)
	var c validation.Collector
	c.Add(validation.ValidateKnownIDs("trackable_id", []string{req.TrackableID}, known))
	c.Add(validation.ValidateKnownIDs("target_id", []string{req.TargetID}, known))
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", c.Errors())
		return
	}

	all := make([]string, len(trackables))
	for i, t := range trackables {
		all[i] = t.ID
	}
	order := make([]string, 0, len(trackables))
	for _, t := range analytics.ResolveOrder(trackables, all, settings.TrackableOrder) {
		order = append(order, t.ID)
	}

	settings.TrackableOrder = analytics.MoveBefore(order, req.TrackableID, req.TargetID)
	settings.IsDefault = false
	h.saveSettings(w, r, sc, settings, "move_trackable")
}

// Dashboard handles GET /api/v1/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	settings, trackables, err := effectiveSettings(r, sc)
	if err != nil {
		storeFailure(w, r, "dashboard", err)
		return
	}
	entries, err := sc.store.ListEntries(r.Context(), sc.account.ID, types.EntryFilter{})
	if err != nil {
		storeFailure(w, r, "dashboard", err)
		return
	}
	byTrackable := make(map[string][]types.Entry)
	for _, e := range entries {
		byTrackable[e.TrackableID] = append(byTrackable[e.TrackableID], e)
	}
	goals, err := sc.store.ListGoals(r.Context(), sc.account.ID, "")
	if err != nil {
		storeFailure(w, r, "dashboard", err)
		return
	}
	active := analytics.ActiveGoals(goals)

	resp := DashboardResponse{Settings: settings, Items: []DashboardItem{}}
	for _, t := range analytics.ResolveOrder(trackables, settings.SelectedTrackables, settings.TrackableOrder) {
		own := byTrackable[t.ID]
		item := DashboardItem{
			Trackable: t,
			Stats:     analytics.ComputeStats(own, sc.today),
		}
		if goal, ok := active[t.ID]; ok {
			progress := analytics.ComputeProgress(goal, own, sc.today)
			item.Goal = &goal
			item.Progress = &progress
		}
		resp.Items = append(resp.Items, item)
	}
	writeJSON(w, http.StatusOK, resp)
}
