package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/session", apiHandler.SessionHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Device-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			// The generation pipeline
			r.Post("/exercises/generate", apiHandler.GenerateHandler)
			r.Post("/journal/reflect", apiHandler.ReflectHandler)

			// Plan history
			r.Get("/history", apiHandler.ListHistoryHandler)
			r.Get("/history/{entryID}", apiHandler.GetHistoryEntryHandler)

			// Exercise feedback and completions
			r.Get("/feedback", apiHandler.ListFeedbackHandler)
			r.Put("/feedback/{exerciseID}", apiHandler.SetFeedbackHandler)
			r.Delete("/feedback/{exerciseID}", apiHandler.ClearFeedbackHandler)
			r.Get("/completions", apiHandler.ListCompletionsHandler)
			r.Post("/completions", apiHandler.AddCompletionHandler)

			// Journal and mood logs
			r.Get("/journal", apiHandler.ListJournalHandler)
			r.Get("/moods", apiHandler.ListMoodsHandler)
			r.Post("/moods", apiHandler.AddMoodHandler)

			// Profile and settings
			r.Get("/profile", apiHandler.GetProfileHandler)
			r.Put("/profile", apiHandler.PutProfileHandler)
			r.Get("/settings", apiHandler.GetSettingsHandler)
			r.Put("/settings", apiHandler.PutSettingsHandler)
		})
	})

	return r
}
