package router

import (
	"net/http"

	"stockcount-api/internal/handler"
	"stockcount-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler          *handler.Handler
	InventoryHandler *handler.InventoryHandler
	CacheHandler     *handler.CacheHandler
	PendingHandler   *handler.PendingHandler
	ReportHandler    *handler.ReportHandler
	LogHandler       *handler.LogHandler
	AuthHandler      *handler.AuthHandler
	AdminHandler     *handler.AdminHandler
	AuthMiddleware   func(http.Handler) http.Handler
	Recovery         func(http.Handler) http.Handler
}

// PublicPaths are served without authentication.
var PublicPaths = []string{"/api/status", "/api/v1/health", "/api/v1/ready"}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	recovery := cfg.Recovery
	if recovery == nil {
		recovery = middleware.NewRecovery(nil)
	}

	// Global middleware stack (applies to ALL routes)
	r.Use(recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Served-From", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
				r.Get("/ready", cfg.Handler.Ready)
			}

			if h := cfg.InventoryHandler; h != nil {
				r.Post("/sync", h.Sync)
				r.Get("/status/summary", h.Summary)
				r.Get("/status/rows", h.Rows)
				r.Get("/status/rows.xlsx", h.RowsXLSX)
				r.Get("/records/{barcode}", h.Record)
				r.Get("/results", h.Results)
				r.Get("/results/{barcode}", h.Result)
				r.Post("/products/names", h.Names)
				r.Get("/rounds", h.Rounds)
			}

			if h := cfg.CacheHandler; h != nil {
				r.Route("/cache", func(r chi.Router) {
					r.Get("/", h.Overview)
					r.Get("/{table}", h.Table)
					r.Get("/{table}/meta", h.Meta)
					r.Delete("/{table}", h.Clear)
				})
			}

			if h := cfg.PendingHandler; h != nil {
				r.Route("/pending", func(r chi.Router) {
					r.Get("/", h.List)
					r.Post("/", h.Add)
					r.Delete("/", h.Clear)
					r.Post("/submit", h.Submit)
					r.Delete("/{barcode}", h.Remove)
				})
			}

			if h := cfg.ReportHandler; h != nil {
				r.Get("/reports/recent", h.Recent)
				r.Get("/reports/recent.xlsx", h.RecentXLSX)
			}

			if h := cfg.LogHandler; h != nil {
				r.Get("/audit", h.GetAuditLogs)
				r.Delete("/audit", h.ClearAuditLogs)
			}

			if h := cfg.AuthHandler; h != nil {
				r.Post("/users/verify", h.Verify)
			}

			if h := cfg.AdminHandler; h != nil {
				r.Route("/admin", func(r chi.Router) {
					r.Get("/stats", h.GetStats)
					r.Get("/health", h.GetHealth)
				})
			}
		})
	})

	return r
}
