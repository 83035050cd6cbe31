package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates and configures the HTTP router with all routes and middleware.
// An empty origins list allows every origin.
func NewRouter(h *Handlers, origins []string, logger *slog.Logger) chi.Router {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(EchoRequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(logger))
	r.Use(Recoverer(logger))
	r.Use(middleware.Compress(5))
	r.Use(DefaultJSON)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length"},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	r.Route("/presets", func(r chi.Router) {
		r.Get("/", h.Presets)
		r.Route("/{presetId}", func(r chi.Router) {
			r.Get("/", h.Preset)
			r.Get("/summary", h.Summary)
			r.Get("/items", h.Items)
			r.Get("/aggregate", h.Aggregate)
		})
	})

	r.Route("/compose", func(r chi.Router) {
		r.Get("/merge", h.Merge)
		r.Get("/join", h.Join)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "endpoint not found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	})

	return r
}
