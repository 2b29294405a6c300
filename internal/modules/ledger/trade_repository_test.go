package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/stonks/internal/domain"
	testutil "github.com/aristath/stonks/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTrade(id, user, symbol string, side domain.Side, qty int64, price string, at time.Time) Trade {
	return Trade{
		ID:           id,
		UserID:       user,
		Symbol:       symbol,
		Side:         side,
		Quantity:     qty,
		Price:        dec(price),
		BalanceAfter: dec("1000"),
		ExecutedAt:   at,
	}
}

func TestTradeRepository(t *testing.T) {
	repo := NewTradeRepository(testutil.NewMemoryDB(t, "ledger"), zerolog.Nop())
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newTrade("t1", "alice", "SigmaStock", domain.SideBuy, 10, "100", base)))
	require.NoError(t, repo.Create(ctx, newTrade("t2", "alice", "SigmaStock", domain.SideSell, 4, "110.5", base.Add(time.Minute))))
	require.NoError(t, repo.Create(ctx, newTrade("t3", "alice", "MemeCorp", domain.SideBuy, 1, "5", base.Add(2*time.Minute))))
	require.NoError(t, repo.Create(ctx, newTrade("t4", "bob", "SigmaStock", domain.SideBuy, 1, "100", base)))

	trades, err := repo.ListByUser(ctx, "alice", "", 10)
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, "t3", trades[0].ID, "newest first")
	assert.Equal(t, base.Add(2*time.Minute), trades[0].ExecutedAt)

	trades, err = repo.ListByUser(ctx, "alice", "SigmaStock", 1)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "t2", trades[0].ID)
	assert.True(t, trades[0].Price.Equal(dec("110.5")))
	assert.Equal(t, domain.SideSell, trades[0].Side)

	trade, err := repo.GetByID(ctx, "alice", "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), trade.Quantity)

	_, err = repo.GetByID(ctx, "alice", "t4")
	assert.ErrorIs(t, err, ErrTradeNotFound, "other users' trades are invisible")

	summary, err := repo.Summary(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.TotalTrades)
	assert.Equal(t, int64(2), summary.BuyCount)
	assert.Equal(t, int64(1), summary.SellCount)
	assert.True(t, summary.TotalBought.Equal(dec("1005")))
	assert.True(t, summary.TotalSold.Equal(dec("442")))
}

func TestTradeRepository_DuplicateID(t *testing.T) {
	repo := NewTradeRepository(testutil.NewMemoryDB(t, "ledger"), zerolog.Nop())
	ctx := context.Background()

	trade := newTrade("dup", "alice", "SigmaStock", domain.SideBuy, 1, "1", time.Now())
	require.NoError(t, repo.Create(ctx, trade))
	assert.Error(t, repo.Create(ctx, trade))
}
