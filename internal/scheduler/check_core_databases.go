package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/aristath/stonks/internal/database"
	"github.com/rs/zerolog"
)

// CheckCoreDatabasesJob verifies integrity of the SQLite databases
type CheckCoreDatabasesJob struct {
	log       zerolog.Logger
	databases map[string]*database.DB
	timeout   time.Duration
}

// NewCheckCoreDatabasesJob creates a new CheckCoreDatabasesJob
func NewCheckCoreDatabasesJob(databases map[string]*database.DB, log zerolog.Logger) *CheckCoreDatabasesJob {
	return &CheckCoreDatabasesJob{
		log:       log.With().Str("job", "check_core_databases").Logger(),
		databases: databases,
		timeout:   30 * time.Second,
	}
}

// Name returns the job name
func (j *CheckCoreDatabasesJob) Name() string {
	return "check_core_databases"
}

// Run executes the check core databases job
func (j *CheckCoreDatabasesJob) Run() error {
	names := make([]string, 0, len(j.databases))
	for name := range j.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		db := j.databases[name]
		if db == nil {
			j.log.Warn().Str("database", name).Msg("Database not initialized, skipping")
			continue
		}

		if err := j.checkDatabaseIntegrity(db.Conn()); err != nil {
			// Corruption cannot be auto-recovered
			j.log.Error().
				Err(err).
				Str("database", name).
				Msg("Database integrity check failed")
			return fmt.Errorf("database %s is corrupted: %w", name, err)
		}

		j.log.Debug().Str("database", name).Msg("Database integrity OK")
	}

	j.log.Info().Msg("All databases integrity check passed")
	return nil
}

// checkDatabaseIntegrity runs SQLite's PRAGMA quick_check
func (j *CheckCoreDatabasesJob) checkDatabaseIntegrity(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check returned: %s", result)
	}
	return nil
}
