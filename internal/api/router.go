package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Tally/internal/store"
)

type RouterConfig struct {
	AdminToken      string
	RateLimitPerMin int
}

func NewRouter(s store.Store, e Scorer, rc Recalculator, c CatalogSource, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(cfg.RateLimitPerMin))

	score := NewScoreHandler(e)
	results := NewResultsHandler(s, rc)
	couples := NewCouplesHandler(rc)
	admin := NewAdminHandler(rc, c, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/score", score.Score)

		r.Get("/results/{respondent}", results.Get)
		r.Post("/results/{respondent}/recalculate", results.Recalculate)

		r.Get("/couples/{pairing}/compatibility", couples.Compatibility)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminToken))
			r.Post("/admin/recalculate", admin.RecalculateAll)
			r.Post("/admin/catalog/reload", admin.ReloadCatalog)
			r.Get("/admin/catalog", admin.Catalog)
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
