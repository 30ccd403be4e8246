package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Assay/internal/screening"
	"github.com/MikeSquared-Agency/Assay/internal/store"
)

func NewRouter(sc Screener, runs store.RunStore, defaults screening.Request, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))

	runsHandler := NewRunsHandler(sc, runs, defaults)
	frontier := NewFrontierHandler(sc)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/runs", runsHandler.List)
		r.Get("/runs/{id}", runsHandler.Get)
		r.Get("/frontier", frontier.Get)
		r.Post("/optimality", frontier.Optimality)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Post("/runs", runsHandler.Create)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
