/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the HTTP server for access to services.
 */
package di

import (
	"github.com/aristath/stonks/internal/clientdata"
	"github.com/aristath/stonks/internal/clients/newsapi"
	"github.com/aristath/stonks/internal/database"
	"github.com/aristath/stonks/internal/domain"
	"github.com/aristath/stonks/internal/events"
	"github.com/aristath/stonks/internal/modules/charts"
	"github.com/aristath/stonks/internal/modules/identity"
	"github.com/aristath/stonks/internal/modules/ledger"
	"github.com/aristath/stonks/internal/modules/news"
	"github.com/aristath/stonks/internal/modules/portfolio"
	"github.com/aristath/stonks/internal/modules/prices"
	"github.com/aristath/stonks/internal/reconcile"
	"github.com/aristath/stonks/internal/reliability"
	"github.com/aristath/stonks/internal/scheduler"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Databases: accounts, prices (current table and history), ledger (trade journal), cache
 * - Stores: account and price stores, each wrapped with transient-failure retries
 * - Clients: randomness (random.org or local), news feed, optional S3
 * - Services: portfolio, ledger, charts, news, sessions, the reconciliation loop
 * - Scheduler: cron-driven jobs, including the reconcile tick
 */
type Container struct {
	// Databases
	AccountsDB *database.DB // Accounts and holdings (sqlite account store)
	PricesDB   *database.DB // Current price table and tick history
	LedgerDB   *database.DB // Append-only trade journal
	CacheDB    *database.DB // External API responses with expiry

	// Stores
	AccountStore   domain.AccountStore     // Retrying wrapper around the configured backend
	PriceRepo      *prices.Repository      // Durable price table and history
	PriceStore     domain.PriceStore       // Retrying wrapper around PriceRepo
	TradeRepo      *ledger.TradeRepository // Trade journal
	ClientDataRepo *clientdata.Repository  // Cached client responses

	// Clients
	Randomness domain.RandomnessSource // Draws price changes
	NewsClient *newsapi.Client         // Decorative news feed
	S3Client   *s3.Client              // Optional; set when S3_BUCKET is configured

	// Core
	EventBus     *events.Bus
	EventManager *events.Manager
	PriceTable   *prices.Table // Live in-memory prices, replaced once per tick
	Oracle       *prices.Oracle
	Sessions     *identity.Registry

	// Services
	PortfolioService *portfolio.Service
	LedgerService    *ledger.Service
	ChartsService    *charts.Service
	NewsService      *news.Service
	Loop             *reconcile.Loop
	BackupService    *reliability.BackupService // Optional

	Scheduler *scheduler.Scheduler
}

// Databases returns the open databases keyed by name
func (c *Container) Databases() map[string]*database.DB {
	dbs := make(map[string]*database.DB, 4)
	for _, db := range []*database.DB{c.AccountsDB, c.PricesDB, c.LedgerDB, c.CacheDB} {
		if db != nil {
			dbs[db.Name()] = db
		}
	}
	return dbs
}

// JobInstances holds the registered jobs for manual triggering via the API
type JobInstances struct {
	Reconcile         scheduler.Job
	ClientDataCleanup scheduler.Job
	PruneHistory      scheduler.Job
	WALCheckpoints    scheduler.Job
	CoreDatabases     scheduler.Job
	Backup            scheduler.Job // nil unless BACKUP_SCHEDULE is set
}
