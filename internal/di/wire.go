// Package di provides dependency injection wiring and initialization.
package di

import (
	"context"
	"fmt"

	"github.com/aristath/stonks/internal/config"
	"github.com/rs/zerolog"
)

// Wire initializes all dependencies and returns a fully configured container
// This is the main entry point for dependency injection
// Order of operations:
// 1. Initialize databases
// 2. Initialize stores and clients
// 3. Initialize services (seeds and loads the price table)
// 4. Register jobs
// The scheduler is returned stopped; callers Start it.
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, *JobInstances, error) {
	// Step 1: Initialize databases
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	// Step 2: Initialize stores
	if err := InitializeStores(ctx, container, cfg, log); err != nil {
		closeDatabases(container)
		return nil, nil, fmt.Errorf("failed to initialize stores: %w", err)
	}

	// Step 3: Initialize services
	if err := InitializeServices(ctx, container, cfg, log); err != nil {
		closeDatabases(container)
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Step 4: Register jobs
	jobs, err := RegisterJobs(container, cfg, log)
	if err != nil {
		container.Loop.Close()
		closeDatabases(container)
		return nil, nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, jobs, nil
}

// Close stops background work and closes the databases.
// In-flight ticks are awaited before the databases are closed.
func (c *Container) Close() {
	if c.Loop != nil {
		c.Loop.Close()
	}
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.Sessions != nil {
		c.Sessions.CloseAll()
	}
	closeDatabases(c)
}
