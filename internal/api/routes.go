package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health", h.Health)

		// Protected routes: account, then today, then the account's store
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.accounts))
			r.Use(TodayMiddleware(h.now))
			r.Use(StoreMiddleware(h.records, h.isDemo))

			r.Get("/trackables", h.ListTrackables)
			r.Post("/trackables", h.CreateTrackable)
			r.Route("/trackables/{id}", func(r chi.Router) {
				r.Get("/", h.GetTrackable)
				r.Patch("/", h.UpdateTrackable)
				r.Delete("/", h.DeleteTrackable)

				r.Get("/entries", h.ListTrackableEntries)
				r.Put("/entries/{date}", h.CheckIn)
				r.Delete("/entries/{date}", h.Uncheck)
				r.Put("/entries/{date}/notes", h.UpdateNotes)

				r.Get("/goals", h.ListGoals)
				r.Post("/goals", h.CreateGoal)

				r.Get("/stats", h.Stats)
				r.Get("/progress", h.Progress)
				r.Get("/calendar", h.TrackableCalendar)
			})

			r.Get("/entries", h.ListEntries)

			r.Patch("/goals/{id}", h.UpdateGoal)
			r.Delete("/goals/{id}", h.DeleteGoal)

			r.Get("/calendar", h.Calendar)

			r.Get("/dashboard", h.Dashboard)
			r.Get("/dashboard/settings", h.GetDashboardSettings)
			r.Put("/dashboard/settings", h.PutDashboardSettings)
			r.Post("/dashboard/settings/reset", h.ResetDashboardSettings)
			r.Post("/dashboard/settings/toggle", h.ToggleTrackable)
			r.Post("/dashboard/settings/move", h.MoveTrackable)
		})
	})

	return r
}
