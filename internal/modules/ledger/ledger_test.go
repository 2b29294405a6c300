package ledger

import (
	"testing"

	"github.com/aristath/stonks/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func startingAccount() domain.Account {
	return domain.NewAccount("alice", domain.DefaultStartingBalance)
}

func TestApply_Scenario(t *testing.T) {
	account := startingAccount()

	account, err := Apply(account, "SigmaStock", domain.SideBuy, 10, dec("100"))
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(dec("9000")))
	require.Len(t, account.Holdings, 1)
	assert.Equal(t, int64(10), account.Holdings[0].Quantity)
	assert.True(t, account.Holdings[0].AvgPrice.Equal(dec("100")))

	account, err = Apply(account, "SigmaStock", domain.SideBuy, 5, dec("120"))
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(dec("8400")))
	require.Len(t, account.Holdings, 1)
	assert.Equal(t, int64(15), account.Holdings[0].Quantity)
	assert.Equal(t, "106.67", account.Holdings[0].AvgPrice.StringFixed(2))

	// 8400 + 15 * 110
	account, err = Apply(account, "SigmaStock", domain.SideSell, 15, dec("110"))
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(dec("10050")), "got %s", account.Balance)
	assert.Empty(t, account.Holdings)
}

func TestApply_BuyAddsNewHoldingInOrder(t *testing.T) {
	account := startingAccount()

	account, err := Apply(account, "MemeCorp", domain.SideBuy, 3, dec("10"))
	require.NoError(t, err)
	account, err = Apply(account, "GrindSet", domain.SideBuy, 2, dec("20"))
	require.NoError(t, err)

	require.Len(t, account.Holdings, 2)
	assert.Equal(t, "MemeCorp", account.Holdings[0].Symbol)
	assert.Equal(t, "GrindSet", account.Holdings[1].Symbol)
	assert.True(t, account.Balance.Equal(dec("9930")))
}

func TestApply_BuyExactBalance(t *testing.T) {
	account := domain.NewAccount("bob", dec("500"))

	account, err := Apply(account, "SigmaStock", domain.SideBuy, 5, dec("100"))
	require.NoError(t, err)
	assert.True(t, account.Balance.IsZero())
}

func TestApply_PartialSellKeepsAvgPrice(t *testing.T) {
	account := startingAccount()
	account, err := Apply(account, "SigmaStock", domain.SideBuy, 10, dec("100"))
	require.NoError(t, err)

	account, err = Apply(account, "SigmaStock", domain.SideSell, 4, dec("150"))
	require.NoError(t, err)

	require.Len(t, account.Holdings, 1)
	assert.Equal(t, int64(6), account.Holdings[0].Quantity)
	assert.True(t, account.Holdings[0].AvgPrice.Equal(dec("100")))
	assert.True(t, account.Balance.Equal(dec("9600")))
}

func TestApply_RoundTrip(t *testing.T) {
	prices := []string{"0.01", "1.23", "99.99", "106.67", "5000"}
	quantities := []int64{1, 3, 7, 19}

	for _, p := range prices {
		for _, q := range quantities {
			before := domain.NewAccount("carol", dec("1000000"))
			before.Holdings = []domain.Holding{{Symbol: "Other", Quantity: 2, AvgPrice: dec("3")}}

			mid, err := Apply(before, "SigmaStock", domain.SideBuy, q, dec(p))
			require.NoError(t, err)
			after, err := Apply(mid, "SigmaStock", domain.SideSell, q, dec(p))
			require.NoError(t, err)

			assert.True(t, after.Balance.Equal(before.Balance), "price %s qty %d", p, q)
			assert.Equal(t, before.Holdings, after.Holdings)
		}
	}
}

func TestApply_Errors(t *testing.T) {
	held := startingAccount()
	held.Holdings = []domain.Holding{{Symbol: "SigmaStock", Quantity: 5, AvgPrice: dec("100")}}

	tests := []struct {
		name     string
		account  domain.Account
		symbol   string
		side     domain.Side
		quantity int64
		price    string
		wantErr  error
	}{
		{"insufficient funds", startingAccount(), "SigmaStock", domain.SideBuy, 101, "100", domain.ErrInsufficientFunds},
		{"no such holding", startingAccount(), "SigmaStock", domain.SideSell, 1, "100", domain.ErrNoSuchHolding},
		{"insufficient shares", held, "SigmaStock", domain.SideSell, 6, "100", domain.ErrInsufficientShares},
		{"zero quantity", held, "SigmaStock", domain.SideBuy, 0, "100", domain.ErrInvalidQuantity},
		{"negative quantity", held, "SigmaStock", domain.SideSell, -1, "100", domain.ErrInvalidQuantity},
		{"zero price", held, "SigmaStock", domain.SideBuy, 1, "0", domain.ErrInvalidPrice},
		{"bad side", held, "SigmaStock", domain.Side("HOLD"), 1, "100", domain.ErrInvalidSide},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := tt.account.Clone()

			got, err := Apply(tt.account, tt.symbol, tt.side, tt.quantity, dec(tt.price))

			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, domain.IsValidationError(err))
			assert.Equal(t, snapshot, got, "account must be unchanged")
			assert.Equal(t, snapshot, tt.account, "input must not be mutated")
		})
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	account := startingAccount()
	account.Holdings = []domain.Holding{
		{Symbol: "A", Quantity: 1, AvgPrice: dec("10")},
		{Symbol: "B", Quantity: 2, AvgPrice: dec("10")},
	}
	snapshot := account.Clone()

	_, err := Apply(account, "A", domain.SideSell, 1, dec("10"))
	require.NoError(t, err)
	_, err = Apply(account, "B", domain.SideBuy, 1, dec("30"))
	require.NoError(t, err)

	assert.Equal(t, snapshot, account)
}
