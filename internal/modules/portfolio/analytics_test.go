package portfolio

import (
	"testing"

	"github.com/aristath/stonks/internal/domain"
	testutil "github.com/aristath/stonks/internal/testing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCompute_Fixture(t *testing.T) {
	account := testutil.NewAccountFixture("alice")
	// SigmaStock 10 @ 90 = 900, SkibidiCoin 20 @ 40 = 800
	a := Compute(account, testutil.NewPriceFixtures())

	assert.True(t, a.TotalInvested.Equal(dec("1700")))
	require.Len(t, a.HoldingSplits, 2)
	assert.Equal(t, "SigmaStock", a.HoldingSplits[0].Symbol)
	assert.Equal(t, "52.94", a.HoldingSplits[0].Percentage.StringFixed(2))
	assert.Equal(t, "47.06", a.HoldingSplits[1].Percentage.StringFixed(2))

	// 5000 + 10*100 + 20*42.50
	assert.True(t, a.TotalValue.Equal(dec("6850")))
}

func TestCompute_EmptyAccount(t *testing.T) {
	a := Compute(domain.NewAccount("bob", dec("10000")), nil)

	assert.True(t, a.TotalInvested.IsZero())
	assert.Empty(t, a.HoldingSplits)
	assert.True(t, a.TotalValue.Equal(dec("10000")))
}

func TestCompute_ZeroInvestedGivesZeroSplits(t *testing.T) {
	// Cost basis can only be zero through degenerate data; splits must not divide by zero
	account := domain.NewAccount("carol", dec("1"))
	account.Holdings = []domain.Holding{{Symbol: "A", Quantity: 1, AvgPrice: decimal.Zero}}

	a := Compute(account, nil)
	require.Len(t, a.HoldingSplits, 1)
	assert.True(t, a.HoldingSplits[0].Percentage.IsZero())
}

func TestCompute_MissingPriceFallsBackToAvgPrice(t *testing.T) {
	account := domain.NewAccount("dave", dec("100"))
	account.Holdings = []domain.Holding{
		{Symbol: "Delisted", Quantity: 3, AvgPrice: dec("7")},
		{Symbol: "SigmaStock", Quantity: 1, AvgPrice: dec("50")},
	}

	a := Compute(account, map[string]decimal.Decimal{"SigmaStock": dec("60")})
	assert.True(t, a.TotalValue.Equal(dec("181")))

	positions := Positions(account, map[string]decimal.Decimal{"SigmaStock": dec("60")})
	require.Len(t, positions, 2)
	assert.True(t, positions[0].Stale)
	assert.False(t, positions[1].Stale)
	assert.True(t, positions[1].UnrealizedPnL.Equal(dec("10")))
}

func TestCompute_SplitsSumToHundred(t *testing.T) {
	account := domain.NewAccount("erin", decimal.Zero)
	quantities := []int64{1, 3, 7, 11, 13}
	prices := []string{"0.01", "33.33", "106.6666666666666667", "7.77", "1234.5"}
	for i := range quantities {
		account.Holdings = append(account.Holdings, domain.Holding{
			Symbol:   string(rune('A' + i)),
			Quantity: quantities[i],
			AvgPrice: dec(prices[i]),
		})
	}

	a := Compute(account, nil)

	sum := decimal.Zero
	for _, s := range a.HoldingSplits {
		sum = sum.Add(s.Percentage)
	}
	assert.True(t, sum.Sub(hundred).Abs().LessThan(dec("0.000001")), "sum %s", sum)
}
