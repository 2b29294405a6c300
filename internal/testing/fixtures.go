package testing

import (
	"github.com/aristath/stonks/internal/domain"
	"github.com/shopspring/decimal"
)

// NewPriceFixtures returns a small price table for tests
func NewPriceFixtures() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"SigmaStock":  decimal.NewFromInt(100),
		"SkibidiCoin": decimal.RequireFromString("42.50"),
		"RizzToken":   decimal.RequireFromString("7.25"),
	}
}

// NewAccountFixture returns an account holding two symbols
func NewAccountFixture(userID string) domain.Account {
	return domain.Account{
		UserID:  userID,
		Balance: decimal.NewFromInt(5000),
		Holdings: []domain.Holding{
			{Symbol: "SigmaStock", Quantity: 10, AvgPrice: decimal.NewFromInt(90)},
			{Symbol: "SkibidiCoin", Quantity: 20, AvgPrice: decimal.NewFromInt(40)},
		},
		Version: 1,
	}
}
