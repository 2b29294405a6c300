// Package ledger applies buy and sell transactions to accounts and journals them.
package ledger

import (
	"fmt"

	"github.com/aristath/stonks/internal/domain"
	"github.com/shopspring/decimal"
)

// Apply returns account with one transaction applied at unitPrice.
// The input account is never modified; on error it is returned unchanged
// alongside the error so no partial application is observable.
//
// Buy: balance -= unitPrice*quantity; the holding's AvgPrice becomes the
// quantity-weighted average of the existing and new lots.
// Sell: balance += unitPrice*quantity; AvgPrice is unchanged and a holding
// that reaches zero shares is removed.
func Apply(account domain.Account, symbol string, side domain.Side, quantity int64, unitPrice decimal.Decimal) (domain.Account, error) {
	if quantity <= 0 {
		return account, fmt.Errorf("%w: %d", domain.ErrInvalidQuantity, quantity)
	}
	if !unitPrice.IsPositive() {
		return account, fmt.Errorf("%w: %s", domain.ErrInvalidPrice, unitPrice)
	}

	switch side {
	case domain.SideBuy:
		return buy(account, symbol, quantity, unitPrice)
	case domain.SideSell:
		return sell(account, symbol, quantity, unitPrice)
	default:
		return account, fmt.Errorf("%w: %q", domain.ErrInvalidSide, side)
	}
}

func buy(account domain.Account, symbol string, quantity int64, unitPrice decimal.Decimal) (domain.Account, error) {
	qty := decimal.NewFromInt(quantity)
	cost := unitPrice.Mul(qty)
	if cost.GreaterThan(account.Balance) {
		return account, fmt.Errorf("%w: cost %s exceeds balance %s", domain.ErrInsufficientFunds, cost, account.Balance)
	}

	next := account.Clone()
	next.Balance = account.Balance.Sub(cost)

	existing, idx := account.Holding(symbol)
	if idx < 0 {
		next.Holdings = append(next.Holdings, domain.Holding{
			Symbol:   symbol,
			Quantity: quantity,
			AvgPrice: unitPrice,
		})
		return next, nil
	}

	newQuantity := existing.Quantity + quantity
	newAvg := existing.CostBasis().Add(cost).Div(decimal.NewFromInt(newQuantity))
	next.Holdings[idx] = domain.Holding{
		Symbol:   symbol,
		Quantity: newQuantity,
		AvgPrice: newAvg,
	}
	return next, nil
}

func sell(account domain.Account, symbol string, quantity int64, unitPrice decimal.Decimal) (domain.Account, error) {
	existing, idx := account.Holding(symbol)
	if idx < 0 {
		return account, fmt.Errorf("%w: %s", domain.ErrNoSuchHolding, symbol)
	}
	if quantity > existing.Quantity {
		return account, fmt.Errorf("%w: selling %d of %d %s", domain.ErrInsufficientShares, quantity, existing.Quantity, symbol)
	}

	next := account.Clone()
	next.Balance = account.Balance.Add(unitPrice.Mul(decimal.NewFromInt(quantity)))

	remaining := existing.Quantity - quantity
	if remaining == 0 {
		next.Holdings = append(next.Holdings[:idx], next.Holdings[idx+1:]...)
		return next, nil
	}

	next.Holdings[idx].Quantity = remaining
	return next, nil
}
