// Package main is the entry point for Stonks, a simulated stock-trading service.
// Players register an account with a starting balance, buy and sell fictional
// symbols at the live table price, and watch their portfolio analytics move as
// the reconciliation loop redraws prices from an external randomness source.
//
// The application follows clean architecture principles:
// - Domain layer is pure (no infrastructure dependencies)
// - Dependency injection via DI container
// - Repository pattern for data access
// - Service layer for business logic
// - HTTP handlers for API endpoints
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/stonks/internal/config"
	"github.com/aristath/stonks/internal/di"
	"github.com/aristath/stonks/internal/server"
	"github.com/aristath/stonks/pkg/logger"
)

// main is the application entry point. It orchestrates the startup sequence:
// 1. Loads configuration from environment variables (.env supported)
// 2. Initializes logging system
// 3. Wires all dependencies via DI container (databases, stores, services, jobs)
// 4. Starts HTTP server for API endpoints and streams
// 5. Starts the scheduler, which drives the reconciliation tick
// 6. Waits for shutdown signal and performs graceful shutdown
//
// The application uses a 4-database architecture:
// - accounts.db: Balances and holdings (sqlite account store)
// - prices.db: Current price table and per-tick history
// - ledger.db: Append-only trade journal
// - cache.db: External API responses (news feed)
func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger with config level
	// Pretty mode enables human-readable output for development
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	// Money crosses the API as JSON numbers, never as quoted strings
	decimal.MarshalJSONWithoutQuotes = true

	log.Info().
		Str("data_dir", cfg.DataDir).
		Dur("tick_interval", cfg.TickInterval).
		Str("account_store", cfg.AccountStore).
		Str("randomness", cfg.RandomnessSource).
		Int("symbols", len(cfg.Symbols)).
		Msg("Starting Stonks")

	// Wire all dependencies using DI container
	// This opens the databases, seeds missing symbols, loads the durable price
	// table and registers every scheduled job (the scheduler is not started yet).
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	container, jobs, err := di.Wire(startupCtx, cfg, log)
	startupCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Container: container,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Start the scheduler, then run one tick right away so clients connecting
	// now see fresh prices instead of waiting a full interval
	container.Scheduler.Start()
	go func() {
		if err := jobs.Reconcile.Run(); err != nil {
			log.Warn().Err(err).Msg("Initial reconcile failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Close sessions first so event streams end and Shutdown does not wait on them
	container.Sessions.CloseAll()

	// Graceful shutdown
	// The HTTP server is given up to 10 seconds to finish in-flight requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stops the loop (awaiting any in-flight tick), then the scheduler, then
	// closes the databases so WAL checkpoints are written
	container.Close()

	log.Info().Msg("Server stopped")
}
