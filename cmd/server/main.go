package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/saylink/backend/internal/realtime"
	"github.com/anonto42/saylink/backend/internal/router"
	"github.com/anonto42/saylink/backend/pkg/config"
	"github.com/anonto42/saylink/backend/pkg/firebase"
	"github.com/anonto42/saylink/backend/validators"
	"github.com/labstack/echo/v4"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger := config.NewLogger(cfg)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

// run owns every resource it opens, so deferred closes happen before main exits
func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := router.Options{
		JWTSecret:      cfg.JWTSecret,
		MetricsEnabled: cfg.MetricsEnabled,
		WSSendBuffer:   cfg.WSSendBuffer,
		Logger:         logger,
	}

	// Initialize stores
	var stores *router.Stores
	if cfg.Store == config.StoreMemory {
		logger.Warn("Using in-memory stores; nothing will be persisted")
		stores = router.NewMemoryStores()
	} else {
		db, err := config.InitDB(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("initialize databases: %w", err)
		}
		defer db.CloseDB() // Ensure database connections are closed when main exits

		setupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		stores, err = router.NewDatabaseStores(setupCtx, db.Postgres, db.Mongo.Database(cfg.MongoDatabase), logger)
		cancel()
		if err != nil {
			return fmt.Errorf("prepare databases: %w", err)
		}
	}

	// Initialize Firebase when configured; JWTs are used otherwise
	if cfg.FirebaseCredentialsPath != "" {
		firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			return fmt.Errorf("initialize firebase: %w", err)
		}
		opts.FirebaseAuth = firebaseApp.AuthClient
		logger.Info("Firebase app and auth client initialized")
	}

	// Shared presence when valkey is configured
	if cfg.ValkeyAddr != "" {
		client, err := realtime.DialValkey(cfg.ValkeyAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		opts.Presence = realtime.NewValkeyPresence(client)
		logger.Info("Valkey presence enabled", "addr", cfg.ValkeyAddr)
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Setup global middleware
	config.SetupMiddleware(e, logger)

	// Validator
	e.Validator = validators.NewValidator()

	// Setup routes and dependencies
	router.SetupRoutes(e, stores, opts)

	// Start server
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "env", cfg.Env, "store", cfg.Store)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped unexpectedly", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
