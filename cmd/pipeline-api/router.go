package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/inkwell-systems/invoice-pipeline/cmd/pipeline-api/handlers"
	"github.com/inkwell-systems/invoice-pipeline/internal/bootstrap"
	"github.com/inkwell-systems/invoice-pipeline/internal/observability"
)

// NewRouter builds the trigger API routes.
func NewRouter(logger *observability.Logger, app *bootstrap.App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	eventsHandler := handlers.NewEventsHandler(logger, app.Coordinator)

	r.Get("/healthz", handlers.Health)
	r.Route("/v1/events", func(r chi.Router) {
		r.Post("/upload", eventsHandler.Upload)
		r.Post("/completion", eventsHandler.Completion)
	})

	return r
}
