// Package portfolio derives account analytics and persists accounts.
package portfolio

import (
	"github.com/aristath/stonks/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// HoldingSplit is one holding's share of total invested cost basis
type HoldingSplit struct {
	Symbol     string          `json:"symbol"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Analytics are the aggregate figures derived from an account and a price snapshot
type Analytics struct {
	TotalInvested decimal.Decimal `json:"total_invested"`
	HoldingSplits []HoldingSplit  `json:"holding_splits"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// Compute derives analytics from one consistent snapshot of account and prices.
//
// TotalInvested is the sum of cost bases, not market value. Each split is the
// holding's cost basis as a percentage of TotalInvested, or zero when nothing is
// invested. TotalValue marks holdings to market, falling back to AvgPrice for
// symbols missing from prices.
func Compute(account domain.Account, prices map[string]decimal.Decimal) Analytics {
	totalInvested := decimal.Zero
	for _, h := range account.Holdings {
		totalInvested = totalInvested.Add(h.CostBasis())
	}

	splits := make([]HoldingSplit, 0, len(account.Holdings))
	for _, h := range account.Holdings {
		pct := decimal.Zero
		if totalInvested.IsPositive() {
			pct = h.CostBasis().Div(totalInvested).Mul(hundred)
		}
		splits = append(splits, HoldingSplit{Symbol: h.Symbol, Percentage: pct})
	}

	totalValue := account.Balance
	for _, h := range account.Holdings {
		price, _ := MarketPrice(h, prices)
		totalValue = totalValue.Add(price.Mul(decimal.NewFromInt(h.Quantity)))
	}

	return Analytics{
		TotalInvested: totalInvested,
		HoldingSplits: splits,
		TotalValue:    totalValue,
	}
}

// MarketPrice returns the table price for the holding, or its AvgPrice when the
// symbol is absent. The bool reports whether a table price was found.
func MarketPrice(h domain.Holding, prices map[string]decimal.Decimal) (decimal.Decimal, bool) {
	if p, ok := prices[h.Symbol]; ok {
		return p, true
	}
	return h.AvgPrice, false
}

// Position is a holding marked to market
type Position struct {
	Symbol        string          `json:"symbol"`
	Quantity      int64           `json:"quantity"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	MarketPrice   decimal.Decimal `json:"market_price"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	// Stale is set when no table price exists and AvgPrice stood in
	Stale bool `json:"stale"`
}

// Positions marks every holding to market in account order
func Positions(account domain.Account, prices map[string]decimal.Decimal) []Position {
	positions := make([]Position, 0, len(account.Holdings))
	for _, h := range account.Holdings {
		price, found := MarketPrice(h, prices)
		cost := h.CostBasis()
		value := price.Mul(decimal.NewFromInt(h.Quantity))
		positions = append(positions, Position{
			Symbol:        h.Symbol,
			Quantity:      h.Quantity,
			AvgPrice:      h.AvgPrice,
			MarketPrice:   price,
			CostBasis:     cost,
			MarketValue:   value,
			UnrealizedPnL: value.Sub(cost),
			Stale:         !found,
		})
	}
	return positions
}
