// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code
type Currency string

const (
	// CurrencyUSD is the only settlement currency; all balances and prices are in it.
	CurrencyUSD Currency = "USD"
)

// DefaultStartingBalance is credited to every account at registration.
var DefaultStartingBalance = decimal.NewFromInt(10000)

// Side is the direction of a transaction
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide converts a string to Side (case-insensitive)
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}

// IsValid reports whether the side is BUY or SELL
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// Holding is a user's position in one symbol.
// Quantity is always > 0 while the holding is present in an account.
// AvgPrice is the quantity-weighted cost of the shares currently held.
type Holding struct {
	Symbol   string          `json:"symbol"`
	Quantity int64           `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avg_price"`
}

// CostBasis returns AvgPrice * Quantity
func (h Holding) CostBasis() decimal.Decimal {
	return h.AvgPrice.Mul(decimal.NewFromInt(h.Quantity))
}

// Account is the cash balance and holdings owned by one user identity.
// Version is the optimistic-concurrency token maintained by the AccountStore.
type Account struct {
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Holdings  []Holding       `json:"holdings"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewAccount returns a freshly registered account with an empty holdings list
func NewAccount(userID string, startingBalance decimal.Decimal) Account {
	return Account{
		UserID:   userID,
		Balance:  startingBalance,
		Holdings: []Holding{},
	}
}

// Holding returns the holding for symbol and its index, or -1 if not held
func (a Account) Holding(symbol string) (Holding, int) {
	for i, h := range a.Holdings {
		if h.Symbol == symbol {
			return h, i
		}
	}
	return Holding{}, -1
}

// Clone returns a deep copy so callers can build a replacement record
// without aliasing the original holdings slice.
func (a Account) Clone() Account {
	c := a
	c.Holdings = make([]Holding, len(a.Holdings))
	copy(c.Holdings, a.Holdings)
	return c
}

// SameState reports whether a and b hold the same balance and holdings.
// Version and UpdatedAt are ignored.
func (a Account) SameState(b Account) bool {
	if a.UserID != b.UserID || !a.Balance.Equal(b.Balance) || len(a.Holdings) != len(b.Holdings) {
		return false
	}
	for i, h := range a.Holdings {
		o := b.Holdings[i]
		if h.Symbol != o.Symbol || h.Quantity != o.Quantity || !h.AvgPrice.Equal(o.AvgPrice) {
			return false
		}
	}
	return true
}

// PriceEntry is one row of the shared price table
type PriceEntry struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// TransactionIntent is an ephemeral request to trade, validated and applied atomically.
type TransactionIntent struct {
	Symbol   string `json:"symbol"`
	Side     Side   `json:"side"`
	Quantity int64  `json:"quantity"`
}

// Validate checks the intent's shape (not its affordability)
func (t TransactionIntent) Validate() error {
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", ErrUnknownSymbol)
	}
	if !t.Side.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidSide, t.Side)
	}
	if t.Quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, t.Quantity)
	}
	return nil
}
