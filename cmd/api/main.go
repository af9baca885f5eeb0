package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"stockcount-api/internal/app"
	"stockcount-api/internal/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting stockcount API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)
	if len(cfg.App.APIKeys) == 0 {
		log.Println("Warning: API_KEYS is empty, authentication disabled")
	}

	application, err := app.New(context.Background(), cfg, app.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	application.Start()

	srv := application.Server()

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// Close stops background workers before storage is released
	if err := application.Close(); err != nil {
		log.Printf("Close error: %v", err)
	}

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}
