package main

import (
	"context"
	"log"

	"stockcount-api/internal/app"
	"stockcount-api/internal/config"
)

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, app.Options{})
}

func main() {
	log.SetFlags(log.LstdFlags)
	if err := newRootCmd(openApp).Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
