// Package di provides dependency injection for database connections.
package di

import (
	"fmt"
	"path/filepath"

	"github.com/aristath/stonks/internal/config"
	"github.com/aristath/stonks/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the four databases and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	specs := []struct {
		name    string
		profile database.DatabaseProfile
		target  **database.DB
	}{
		{"accounts", database.ProfileLedger, &container.AccountsDB}, // Balances must survive crashes
		{"prices", database.ProfileStandard, &container.PricesDB},
		{"ledger", database.ProfileLedger, &container.LedgerDB}, // Append-only audit trail
		{"cache", database.ProfileCache, &container.CacheDB},    // Ephemeral, rebuilt on demand
	}

	var opened []*database.DB
	closeAll := func() {
		for _, db := range opened {
			db.Close()
		}
	}

	for _, spec := range specs {
		db, err := database.New(database.Config{
			Path:    filepath.Join(cfg.DataDir, spec.name+".db"),
			Profile: spec.profile,
			Name:    spec.name,
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to initialize %s database: %w", spec.name, err)
		}
		opened = append(opened, db)
		*spec.target = db
	}

	for _, db := range opened {
		if err := db.Migrate(); err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
		}
	}

	log.Info().Int("count", len(opened)).Msg("All databases initialized and schemas applied")

	return container, nil
}

// closeDatabases closes every open database, ignoring errors
func closeDatabases(container *Container) {
	for _, db := range container.Databases() {
		db.Close()
	}
}
