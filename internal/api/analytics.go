package api

import (
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/tally/internal/analytics"
	"github.com/hyperengineering/tally/internal/types"
)

// ProgressResponse is the active goal of a trackable with its standing and
// trend. Goal and Progress are null when the trackable has no goal.
type ProgressResponse struct {
	Goal     *types.Goal             `json:"goal"`
	Progress *analytics.Progress     `json:"progress"`
	Series   []analytics.SeriesPoint `json:"series"`
}

// trackableEntries loads a trackable's entries after confirming the owner
// can see it.
func trackableEntries(w http.ResponseWriter, r *http.Request, sc scope, action string) ([]types.Entry, bool) {
	id := chi.URLParam(r, "id")
	if _, err := sc.store.GetTrackable(r.Context(), sc.account.ID, id); err != nil {
		storeFailure(w, r, action, err)
		return nil, false
	}
	entries, err := sc.store.ListEntries(r.Context(), sc.account.ID, types.EntryFilter{TrackableID: id})
	if err != nil {
		storeFailure(w, r, action, err)
		return nil, false
	}
	return entries, true
}

// Stats handles GET /api/v1/trackables/{id}/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	entries, ok := trackableEntries(w, r, sc, "stats")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analytics.ComputeStats(entries, sc.today))
}

// Progress handles GET /api/v1/trackables/{id}/progress
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	entries, ok := trackableEntries(w, r, sc, "progress")
	if !ok {
		return
	}
	goals, err := sc.store.ListGoals(r.Context(), sc.account.ID, chi.URLParam(r, "id"))
	if err != nil {
		storeFailure(w, r, "progress", err)
		return
	}

	resp := ProgressResponse{Series: []analytics.SeriesPoint{}}
	if goal, ok := analytics.ActiveGoal(goals); ok {
		progress := analytics.ComputeProgress(goal, entries, sc.today)
		resp.Goal = &goal
		resp.Progress = &progress
		resp.Series = analytics.ProgressSeries(goal, entries, sc.today)
	}
	writeJSON(w, http.StatusOK, resp)
}

// TrackableCalendar handles GET /api/v1/trackables/{id}/calendar
func (h *Handler) TrackableCalendar(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	entries, ok := trackableEntries(w, r, sc, "calendar")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analytics.BuildCalendar(entries, sc.today))
}

// Calendar handles GET /api/v1/calendar, the year-to-date overview across
// all trackables.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	entries, err := sc.store.ListEntries(r.Context(), sc.account.ID, types.EntryFilter{
		From: civil.Date{Year: sc.today.Year, Month: 1, Day: 1},
		To:   sc.today,
	})
	if err != nil {
		storeFailure(w, r, "calendar", err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.BuildCalendar(entries, sc.today))
}
