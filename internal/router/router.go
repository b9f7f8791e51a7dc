package router

import (
	"net/http"

	"retail-report-api/internal/handler"
	"retail-report-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds the configuration for creating a router.
type Config struct {
	HealthHandler      *handler.HealthHandler
	ReportHandler      *handler.ReportHandler
	AdminHandler       *handler.AdminHandler
	AdminKeyMiddleware func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-Admin-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler())

	if cfg.HealthHandler != nil {
		r.Get("/api/status", cfg.HealthHandler.Status)
		r.Get("/api/v1/health", cfg.HealthHandler.Health)
		r.Get("/api/v1/ready", cfg.HealthHandler.Ready)
	}

	// Report endpoints, uncached baselines plus cache-aside variants
	if cfg.ReportHandler != nil {
		r.Route("/api", func(r chi.Router) {
			r.Get("/retail-report", cfg.ReportHandler.RetailReport)
			r.Get("/retail-report-cached", cfg.ReportHandler.RetailReportCached)
			r.Get("/active-shoppers", cfg.ReportHandler.ActiveShoppers)
			r.Get("/active-shoppers-cached", cfg.ReportHandler.ActiveShoppersCached)
			r.Get("/popular-items", cfg.ReportHandler.PopularItems)
			r.Get("/popular-items-cached", cfg.ReportHandler.PopularItemsCached)
			r.Get("/customers/{user_id}", cfg.ReportHandler.CustomerDetail)
		})
	}

	// Admin endpoints (key-gated when a key is configured)
	if cfg.AdminHandler != nil {
		r.Group(func(r chi.Router) {
			if cfg.AdminKeyMiddleware != nil {
				r.Use(cfg.AdminKeyMiddleware)
			}

			r.Post("/api/redis/load-sample-data", cfg.AdminHandler.LoadSampleData)
			r.Post("/api/clear-data", cfg.AdminHandler.ClearData)
			r.Post("/api/cache/invalidate", cfg.AdminHandler.InvalidateCache)
			r.Get("/api/redis-stats", cfg.AdminHandler.RedisStats)
		})
	}

	return r
}
