package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cloth/auth"
	"cloth/config"
	"cloth/controller"
	"cloth/handler"
	"cloth/kvstore"
	"cloth/pkg/logger"
	"cloth/repository"
	"cloth/service"

	"github.com/labstack/echo/v4"
)

// @title Cloth Feature Flag API
// @version 1.0
// @description Feature flag management backed by a single-writer key-value store.
// @BasePath /api
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Logger.Level, cfg.Logger.Mode)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Infow("Starting Cloth service",
		"version", cfg.Application.Version,
		"port", cfg.HTTPServer.Port,
		"storage", cfg.Storage.Backend,
		"log_level", cfg.Logger.Level,
		"log_mode", cfg.Logger.Mode,
	)

	// Open the storage partition
	partition, err := kvstore.Open(cfg, log)
	if err != nil {
		log.Fatalw("Failed to open storage", "error", err, "backend", cfg.Storage.Backend)
	}
	defer partition.Close()

	// Initialize repositories
	flagRepo := repository.NewFlagRepository(partition)
	auditRepo := repository.NewAuditRepository(partition)

	// Initialize services
	flagService := service.NewFlagService(flagRepo, auditRepo, log)

	// Initialize controllers
	controllers := handler.Controllers{
		Flag:   controller.NewFlagController(flagService, log),
		Health: controller.NewHealthController(cfg.Application.Name, cfg.Application.Version),
	}

	var verifier *auth.Verifier
	if cfg.Auth.Enabled {
		verifier = newVerifier(cfg, log)
	}

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	// Register routes
	handler.RegisterRoutes(e, controllers, verifier, cfg, log)

	// Start server in a goroutine
	serverAddr := fmt.Sprintf(":%d", cfg.HTTPServer.Port)
	go func() {
		log.Infow("Starting HTTP server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Infow("Shutting down server gracefully...")

	// Create a deadline for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Application.GracefulShutdownTimeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := e.Shutdown(ctx); err != nil {
		log.Errorw("Failed to shutdown server gracefully", "error", err)
	}

	if err := partition.Close(); err != nil {
		log.Errorw("Failed to close storage", "error", err)
	}

	log.Infow("Server shutdown completed successfully")
}

func newVerifier(cfg *config.Config, log *logger.Logger) *auth.Verifier {
	fetcher := auth.NewCachingKeySetFetcher(
		auth.NewHTTPKeySetFetcher(cfg.Auth.KeysURL, &http.Client{Timeout: cfg.Auth.FetchTimeout}),
		cfg.Auth.KeysCacheTTL,
	)

	log.Infow("Token verification configured",
		"keysURL", cfg.Auth.KeysURL,
		"header", cfg.Auth.Header,
		"keysCacheTTL", cfg.Auth.KeysCacheTTL,
	)

	return auth.NewVerifier(auth.Config{
		Audience:     cfg.Auth.Audience,
		Header:       cfg.Auth.Header,
		FetchTimeout: cfg.Auth.FetchTimeout,
	}, fetcher, log.With("component", "auth"))
}
