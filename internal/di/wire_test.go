package di

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/stonks/internal/config"
	"github.com/aristath/stonks/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(dataDir string) *config.Config {
	return &config.Config{
		DataDir:               dataDir,
		TickInterval:          10 * time.Second,
		RandomnessTimeout:     time.Second,
		RandomnessSource:      config.RandomnessLocal,
		AccountStore:          config.AccountStoreSQLite,
		StartingBalance:       decimal.NewFromInt(10000),
		Symbols:               config.DefaultSymbols(),
		NewsCacheTTL:          time.Minute,
		StoreRetryAttempts:    1,
		StoreRetryBaseDelay:   time.Millisecond,
		PriceHistoryRetention: time.Hour,
		BackupRetentionDays:   14,
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t.TempDir())
	log := zerolog.Nop()

	container, jobs, err := Wire(context.Background(), cfg, log)
	require.NoError(t, err)
	require.NotNil(t, container)
	require.NotNil(t, jobs)
	t.Cleanup(container.Close)

	// Verify container is fully populated
	assert.NotNil(t, container.AccountsDB)
	assert.NotNil(t, container.PricesDB)
	assert.NotNil(t, container.LedgerDB)
	assert.NotNil(t, container.CacheDB)
	assert.NotNil(t, container.PortfolioService)
	assert.NotNil(t, container.LedgerService)
	assert.NotNil(t, container.Loop)
	assert.NotNil(t, container.Sessions)
	assert.Nil(t, container.S3Client)
	assert.Nil(t, container.BackupService)
	assert.Len(t, container.Databases(), 4)

	// Every tracked symbol is seeded at its base price
	snapshot := container.PriceTable.Snapshot()
	assert.Len(t, snapshot, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		assert.True(t, s.BasePrice.Equal(snapshot[s.Symbol]), s.Symbol)
	}

	// Verify jobs are registered
	assert.Nil(t, jobs.Backup)
	assert.ElementsMatch(t, []string{
		"reconcile_prices",
		"client_data_cleanup",
		"prune_price_history",
		"check_wal_checkpoints",
		"check_core_databases",
	}, container.Scheduler.JobNames())
}

func TestWire_RejectsUnopenableDataDir(t *testing.T) {
	cfg := testConfig("/dev/null/stonks")

	_, _, err := Wire(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestWire_StatePersistsAcrossRestarts(t *testing.T) {
	cfg := testConfig(t.TempDir())
	ctx := context.Background()

	container, _, err := Wire(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)

	_, err = container.PortfolioService.Register(ctx, "alice")
	require.NoError(t, err)

	result, err := container.LedgerService.Execute(ctx, "alice", domain.TransactionIntent{
		Symbol:   "SigmaStock",
		Side:     domain.SideBuy,
		Quantity: 5,
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(9500).Equal(result.Account.Balance))

	_, err = container.Loop.Tick(ctx)
	require.NoError(t, err)
	afterTick := container.PriceTable.Snapshot()

	container.Close()

	restarted, _, err := Wire(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(restarted.Close)

	// Prices resume from the last committed tick, not the base prices
	reloaded := restarted.PriceTable.Snapshot()
	require.Len(t, reloaded, len(afterTick))
	for symbol, price := range afterTick {
		assert.True(t, price.Equal(reloaded[symbol]), symbol)
	}

	account, err := restarted.PortfolioService.Account(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(9500).Equal(account.Balance))
	require.Len(t, account.Holdings, 1)
	assert.Equal(t, int64(5), account.Holdings[0].Quantity)

	trades, err := restarted.TradeRepo.ListByUser(ctx, "alice", "", 10)
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}
