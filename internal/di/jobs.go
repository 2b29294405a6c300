// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/aristath/stonks/internal/clientdata"
	"github.com/aristath/stonks/internal/config"
	"github.com/aristath/stonks/internal/reliability"
	"github.com/aristath/stonks/internal/scheduler"
	"github.com/rs/zerolog"
)

// Job schedules
const (
	scheduleClientDataCleanup = "@hourly"
	schedulePruneHistory      = "0 30 * * * *" // Half past every hour
	scheduleWALCheckpoints    = "@every 15m"
	scheduleCoreDatabases     = "@every 6h"
)

// RegisterJobs creates the scheduler and registers every background job.
// Returns JobInstances for manual triggering via the API.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	container.Scheduler = scheduler.New(log)
	instances := &JobInstances{}

	// Job 1: Price reconciliation, the heartbeat of the simulation
	instances.Reconcile = container.Loop
	if err := container.Scheduler.AddJob(fmt.Sprintf("@every %s", cfg.TickInterval), instances.Reconcile); err != nil {
		return nil, err
	}

	// Job 2: Expired client cache rows
	instances.ClientDataCleanup = clientdata.NewCleanupJob(container.ClientDataRepo, log)
	if err := container.Scheduler.AddJob(scheduleClientDataCleanup, instances.ClientDataCleanup); err != nil {
		return nil, err
	}

	// Job 3: Price history retention
	instances.PruneHistory = scheduler.NewPrunePriceHistoryJob(container.PriceRepo, cfg.PriceHistoryRetention, log)
	if err := container.Scheduler.AddJob(schedulePruneHistory, instances.PruneHistory); err != nil {
		return nil, err
	}

	// Job 4-5: Database maintenance
	instances.WALCheckpoints = scheduler.NewCheckWALCheckpointsJob(container.Databases(), log)
	if err := container.Scheduler.AddJob(scheduleWALCheckpoints, instances.WALCheckpoints); err != nil {
		return nil, err
	}
	instances.CoreDatabases = scheduler.NewCheckCoreDatabasesJob(container.Databases(), log)
	if err := container.Scheduler.AddJob(scheduleCoreDatabases, instances.CoreDatabases); err != nil {
		return nil, err
	}

	// Job 6: Off-site backups (optional)
	if cfg.BackupSchedule != "" && container.BackupService != nil {
		instances.Backup = reliability.NewBackupJob(container.BackupService, cfg.BackupRetentionDays, log)
		if err := container.Scheduler.AddJob(cfg.BackupSchedule, instances.Backup); err != nil {
			return nil, err
		}
	}

	log.Info().Strs("jobs", container.Scheduler.JobNames()).Msg("Jobs registered")

	return instances, nil
}
