package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// AccountStore persists one Account record per user.
// Implementations must replace the full record atomically.
type AccountStore interface {
	// Get returns the account or ErrAccountNotFound
	Get(ctx context.Context, userID string) (Account, error)

	// Create inserts a new account or returns ErrAccountExists
	Create(ctx context.Context, account Account) error

	// Put replaces the account if the stored version equals account.Version,
	// incrementing the version on success; otherwise it returns ErrVersionConflict.
	Put(ctx context.Context, account Account) error
}

// PriceStore persists the shared symbol -> price table
type PriceStore interface {
	GetAll(ctx context.Context) (map[string]decimal.Decimal, error)
	PutAll(ctx context.Context, prices map[string]decimal.Decimal) error
}

// RandomnessSource produces integers in the inclusive range [min, max].
// Treated as an untrusted, potentially failing network dependency.
type RandomnessSource interface {
	GetIntegers(ctx context.Context, count, min, max int) ([]int, error)
}

// IdentityProvider resolves the user a request acts on behalf of
type IdentityProvider interface {
	CurrentIdentity(ctx context.Context) (userID string, ok bool)
}

// PriceReader is a read-only view of the live price table
type PriceReader interface {
	Get(symbol string) (decimal.Decimal, bool)
	Snapshot() map[string]decimal.Decimal
}
