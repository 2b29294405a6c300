// Package di provides dependency injection for stores and external clients.
package di

import (
	"context"
	"fmt"

	"github.com/aristath/stonks/internal/clientdata"
	"github.com/aristath/stonks/internal/clients/localrand"
	"github.com/aristath/stonks/internal/clients/newsapi"
	"github.com/aristath/stonks/internal/clients/randomorg"
	"github.com/aristath/stonks/internal/config"
	"github.com/aristath/stonks/internal/domain"
	"github.com/aristath/stonks/internal/modules/ledger"
	"github.com/aristath/stonks/internal/modules/portfolio"
	"github.com/aristath/stonks/internal/modules/prices"
	"github.com/aristath/stonks/internal/reliability"
	"github.com/rs/zerolog"
)

// InitializeStores creates the repositories, the account and price stores and
// the external clients. Stores are wrapped with the configured retry policy.
func InitializeStores(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	policy := reliability.RetryPolicy{
		Attempts:  cfg.StoreRetryAttempts,
		BaseDelay: cfg.StoreRetryBaseDelay,
		MaxDelay:  cfg.StoreRetryMaxDelay,
	}

	if cfg.S3.Enabled() {
		client, err := reliability.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		container.S3Client = client
	}

	var accounts domain.AccountStore
	switch cfg.AccountStore {
	case config.AccountStoreMemory:
		accounts = portfolio.NewMemoryAccountStore()
	case config.AccountStoreS3:
		if container.S3Client == nil {
			return fmt.Errorf("account store s3 requires S3_BUCKET")
		}
		accounts = portfolio.NewS3AccountStore(container.S3Client, cfg.S3.Bucket, cfg.S3.Prefix, log)
	default:
		accounts = portfolio.NewSQLiteAccountStore(container.AccountsDB.Conn(), log)
	}
	container.AccountStore = reliability.NewRetryingAccountStore(accounts, policy, log)

	container.PriceRepo = prices.NewRepository(container.PricesDB.Conn(), log)
	container.PriceStore = reliability.NewRetryingPriceStore(container.PriceRepo, policy, log)
	container.TradeRepo = ledger.NewTradeRepository(container.LedgerDB.Conn(), log)
	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())

	switch cfg.RandomnessSource {
	case config.RandomnessLocal:
		container.Randomness = localrand.New()
	default:
		container.Randomness = randomorg.NewClient(cfg.RandomOrgURL, cfg.RandomOrgPerMin, log)
	}

	container.NewsClient = newsapi.NewClient(newsapi.Config{
		URL:    cfg.NewsAPIURL,
		APIKey: cfg.NewsAPIKey,
		Host:   cfg.NewsAPIHost,
		TTL:    cfg.NewsCacheTTL,
	}, container.ClientDataRepo, log)

	log.Info().
		Str("account_store", cfg.AccountStore).
		Str("randomness", cfg.RandomnessSource).
		Bool("s3", container.S3Client != nil).
		Msg("Stores and clients initialized")

	return nil
}
