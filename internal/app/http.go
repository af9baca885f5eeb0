package app

import (
	"context"
	"net/http"

	"stockcount-api/internal/handler"
	"stockcount-api/internal/middleware"
	"stockcount-api/internal/router"

	"github.com/go-chi/chi/v5"
)

// Router builds the HTTP API over the application's components.
func (a *App) Router() *chi.Mux {
	svc := a.Service

	checks := map[string]handler.ReadyCheck{
		"storage": func(ctx context.Context) error {
			_, err := a.Snapshots.GetStats(ctx)
			return err
		},
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}
	}

	return router.New(router.Config{
		Handler:          handler.New(a.Config.App.Name, a.Config.App.Version, checks),
		InventoryHandler: handler.NewInventoryHandler(svc),
		CacheHandler:     handler.NewCacheHandler(svc),
		PendingHandler:   handler.NewPendingHandler(svc),
		ReportHandler:    handler.NewReportHandler(svc),
		LogHandler:       handler.NewLogHandler(a.Journal),
		AuthHandler:      handler.NewAuthHandler(svc),
		AdminHandler: handler.NewAdminHandler(handler.AdminConfig{
			InventoryService: svc,
			Snapshots:        a.Snapshots,
			Pending:          a.Pending,
			Names:            a.Names,
			Journal:          a.Journal,
			Scheduler:        a.Scheduler,
			StorageType:      a.Config.Storage.Type,
		}),
		AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthConfig{
			APIKeys: a.Config.App.APIKeys,
			Public:  router.PublicPaths,
		}),
		Recovery: middleware.NewRecovery(a.Journal),
	})
}

// Server builds the HTTP server from the server config.
func (a *App) Server() *http.Server {
	return &http.Server{
		Addr:         a.Config.Server.Address(),
		Handler:      a.Router(),
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}
