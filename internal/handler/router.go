package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/takezou621/sedori-platform-sub006/pkg/health"
	"github.com/takezou621/sedori-platform-sub006/pkg/middleware"
)

// NewRouter assembles the service's HTTP surface: public search, admin index
// management, health, and metrics.
func NewRouter(search *SearchHandler, admin *AdminHandler, healthHandler *health.Handler, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestLogging(log))
	r.Use(middleware.PrometheusMetrics("search"))
	r.Use(chimiddleware.RealIP)

	r.Get("/health", healthHandler.LivenessHandler())
	r.Get("/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/search", func(r chi.Router) {
			r.Get("/", search.Search)
			r.Get("/suggestions", search.Suggest)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/index/{productID}", admin.IndexProduct)
			r.Delete("/index/{productID}", admin.RemoveProduct)
			r.Post("/index-all", admin.IndexAll)
			r.Post("/reindex", admin.Reindex)
			r.Get("/reindex/status", admin.ReindexStatus)
		})
	})

	return r
}
