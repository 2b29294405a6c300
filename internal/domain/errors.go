package domain

import "errors"

// Ledger validation failures. Surfaced to the user, never retried.
var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrNoSuchHolding      = errors.New("no such holding")
	ErrInvalidQuantity    = errors.New("quantity must be a positive integer")
	ErrInvalidPrice       = errors.New("unit price must be positive")
	ErrInvalidSide        = errors.New("side must be BUY or SELL")
	ErrUnknownSymbol      = errors.New("unknown symbol")
)

// Store and collaborator failures.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
	// ErrVersionConflict means the stored account changed since it was read.
	ErrVersionConflict = errors.New("account version conflict")
	// ErrStoreUnavailable is transient; it is returned once retries are exhausted.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrRandomnessUnavailable never escapes the price oracle.
	ErrRandomnessUnavailable = errors.New("randomness source unavailable")
)

var validationErrors = []error{
	ErrInsufficientFunds,
	ErrInsufficientShares,
	ErrNoSuchHolding,
	ErrInvalidQuantity,
	ErrInvalidPrice,
	ErrInvalidSide,
	ErrUnknownSymbol,
}

// IsValidationError reports whether err is a ledger validation failure
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsPermanentStoreError reports whether a store error must not be retried
func IsPermanentStoreError(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrAccountExists) ||
		errors.Is(err, ErrVersionConflict)
}
