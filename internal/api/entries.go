package api

import (
	"context"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/tally/internal/store"
	"github.com/hyperengineering/tally/internal/types"
	"github.com/hyperengineering/tally/internal/validation"
)

// rangeFilter reads the optional from/to query parameters.
func rangeFilter(w http.ResponseWriter, r *http.Request) (types.EntryFilter, bool) {
	var filter types.EntryFilter
	var c validation.Collector
	if v := r.URL.Query().Get("from"); v != "" {
		d, verr := validation.ParseDate("from", v)
		c.Add(verr)
		filter.From = d
	}
	if v := r.URL.Query().Get("to"); v != "" {
		d, verr := validation.ParseDate("to", v)
		c.Add(verr)
		filter.To = d
	}
	if !c.HasErrors() && filter.From != (civil.Date{}) && filter.To != (civil.Date{}) && filter.To.Before(filter.From) {
		c.Add(&validation.ValidationError{Field: "to", Message: "must not be before from"})
	}
	if c.HasErrors() {
		WriteProblemWithErrors(w, r, "Invalid date range", c.Errors())
		return types.EntryFilter{}, false
	}
	return filter, true
}

// ListTrackableEntries handles GET /api/v1/trackables/{id}/entries
func (h *Handler) ListTrackableEntries(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)
	id := chi.URLParam(r, "id")

	filter, ok := rangeFilter(w, r)
	if !ok {
		return
	}
	if _, err := sc.store.GetTrackable(r.Context(), sc.account.ID, id); err != nil {
		storeFailure(w, r, "list_entries", err)
		return
	}

	filter.TrackableID = id
	entries, err := sc.store.ListEntries(r.Context(), sc.account.ID, filter)
	if err != nil {
		storeFailure(w, r, "list_entries", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ListEntries handles GET /api/v1/entries across all trackables.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	filter, ok := rangeFilter(w, r)
	if !ok {
		return
	}
	entries, err := sc.store.ListEntries(r.Context(), sc.account.ID, filter)
	if err != nil {
		storeFailure(w, r, "list_entries", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// entryDate parses the {date} path parameter and rejects dates after the
// last writable day: the request's today, capped by the server clock.
func entryDate(w http.ResponseWriter, r *http.Request, today civil.Date) (civil.Date, bool) {
	d, ok := dateParam(w, r, "date", chi.URLParam(r, "date"))
	if !ok {
		return civil.Date{}, false
	}
	if verr := validation.ValidateNotFuture("date", d, today); verr != nil {
		WriteProblemWithErrors(w, r, "Cannot check in for a future date", []validation.ValidationError{*verr})
		return civil.Date{}, false
	}
	return d, true
}

// findEntry returns the entry for (trackableID, date), or nil when there is none.
func findEntry(ctx context.Context, s store.Store, ownerID, trackableID string, date civil.Date) (*types.Entry, error) {
	entries, err := s.ListEntries(ctx, ownerID, types.EntryFilter{
		TrackableID: trackableID,
		From:        date,
		To:          date,
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	e := entries[len(entries)-1]
	return &e, nil
}

// CheckIn handles PUT /api/v1/trackables/{id}/entries/{date}. The entry for
// that day is created or overwritten; completed defaults to true.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)
	id := chi.URLParam(r, "id")

	date, ok := entryDate(w, r, sc.latestWritable())
	if !ok {
		return
	}

	var req types.CheckInRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if req.Notes != nil {
		if errs := validation.ValidateNotes(*req.Notes); len(errs) > 0 {
			WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
			return
		}
	}

	entry := types.Entry{TrackableID: id, Date: date, Completed: true}
	if req.Completed != nil {
		entry.Completed = *req.Completed
	}
	if req.Notes != nil {
		entry.Notes = *req.Notes
	} else {
		existing, err := findEntry(r.Context(), sc.store, sc.account.ID, id, date)
		if err != nil {
			storeFailure(w, r, "check_in", err)
			return
		}
		if existing != nil {
			entry.Notes = existing.Notes
		}
	}

	saved, err := sc.store.UpsertEntry(r.Context(), sc.account.ID, entry)
	if err != nil {
		storeFailure(w, r, "check_in", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// Uncheck handles DELETE /api/v1/trackables/{id}/entries/{date}
func (h *Handler) Uncheck(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)

	date, ok := dateParam(w, r, "date", chi.URLParam(r, "date"))
	if !ok {
		return
	}
	if err := sc.store.DeleteEntry(r.Context(), sc.account.ID, chi.URLParam(r, "id"), date); err != nil {
		storeFailure(w, r, "uncheck", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateNotes handles PUT /api/v1/trackables/{id}/entries/{date}/notes.
// Completion is preserved; a day without an entry is checked in with the
// notes attached.
func (h *Handler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	sc := requestScope(r)
	id := chi.URLParam(r, "id")

	date, ok := entryDate(w, r, sc.latestWritable())
	if !ok {
		return
	}

	var req types.NotesRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if errs := validation.ValidateNotes(req.Notes); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)
		return
	}

	existing, err := findEntry(r.Context(), sc.store, sc.account.ID, id, date)
	if err != nil {
		storeFailure(w, r, "update_notes", err)
		return
	}
	entry := types.Entry{TrackableID: id, Date: date, Completed: true, Notes: req.Notes}
	if existing != nil {
		entry.Completed = existing.Completed
	}

	saved, err := sc.store.UpsertEntry(r.Context(), sc.account.ID, entry)
	if err != nil {
		storeFailure(w, r, "update_notes", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
