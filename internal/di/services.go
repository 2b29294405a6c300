// Package di provides dependency injection for services.
package di

import (
	"context"
	"fmt"

	"github.com/aristath/stonks/internal/config"
	"github.com/aristath/stonks/internal/events"
	"github.com/aristath/stonks/internal/modules/charts"
	"github.com/aristath/stonks/internal/modules/identity"
	"github.com/aristath/stonks/internal/modules/ledger"
	"github.com/aristath/stonks/internal/modules/news"
	"github.com/aristath/stonks/internal/modules/portfolio"
	"github.com/aristath/stonks/internal/modules/prices"
	"github.com/aristath/stonks/internal/reconcile"
	"github.com/aristath/stonks/internal/reliability"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// InitializeServices seeds the price table and builds the business services
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)

	// Seed symbols that have never been priced, then load the durable table
	base := make(map[string]decimal.Decimal, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		base[s.Symbol] = s.BasePrice
	}
	seeded, err := container.PriceRepo.SeedMissing(ctx, base)
	if err != nil {
		return fmt.Errorf("failed to seed prices: %w", err)
	}
	current, err := container.PriceStore.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load prices: %w", err)
	}
	container.PriceTable = prices.NewTable(current)
	log.Info().Int("symbols", len(current)).Int("seeded", seeded).Msg("Price table loaded")

	container.Oracle = prices.NewOracle(container.Randomness, cfg.RandomnessTimeout, log)
	container.Sessions = identity.NewRegistry(container.EventManager, log)

	container.PortfolioService = portfolio.NewService(
		container.AccountStore,
		container.PriceTable,
		container.EventManager,
		cfg.StartingBalance,
		log,
	)

	container.LedgerService = ledger.NewService(
		container.AccountStore,
		container.PriceTable,
		container.TradeRepo,
		container.PortfolioService,
		container.EventManager,
		log,
	)

	container.ChartsService = charts.NewService(container.PriceRepo, container.PriceTable, log)
	container.NewsService = news.NewService(container.NewsClient, log)

	container.Loop = reconcile.NewLoop(reconcile.Deps{
		Store:     container.PriceStore,
		Oracle:    container.Oracle,
		Table:     container.PriceTable,
		History:   container.PriceRepo,
		Analytics: container.PortfolioService,
		Sessions:  container.Sessions,
		Events:    container.EventManager,
	}, log)

	if container.S3Client != nil {
		container.BackupService = reliability.NewBackupService(
			[]reliability.Snapshotter{container.AccountsDB, container.PricesDB, container.LedgerDB},
			manager.NewUploader(container.S3Client),
			container.S3Client,
			cfg.S3.Bucket,
			cfg.S3.Prefix,
			cfg.DataDir,
			log,
		)
	}

	log.Info().Msg("Services initialized")

	return nil
}
