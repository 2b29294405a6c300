package reliability

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/stonks/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RetryingAccountStore retries transient AccountStore failures
type RetryingAccountStore struct {
	inner  domain.AccountStore
	policy RetryPolicy
	log    zerolog.Logger
}

// NewRetryingAccountStore wraps inner with policy
func NewRetryingAccountStore(inner domain.AccountStore, policy RetryPolicy, log zerolog.Logger) *RetryingAccountStore {
	return &RetryingAccountStore{
		inner:  inner,
		policy: policy,
		log:    log.With().Str("component", "account_store_retry").Logger(),
	}
}

// Get implements domain.AccountStore
func (s *RetryingAccountStore) Get(ctx context.Context, userID string) (domain.Account, error) {
	var account domain.Account
	err := retry(ctx, s.policy, s.log, "get account", func(ctx context.Context) error {
		var err error
		account, err = s.inner.Get(ctx, userID)
		return err
	})
	return account, err
}

// Create implements domain.AccountStore
func (s *RetryingAccountStore) Create(ctx context.Context, account domain.Account) error {
	return retry(ctx, s.policy, s.log, "create account", func(ctx context.Context) error {
		return s.inner.Create(ctx, account)
	})
}

// Put implements domain.AccountStore. Version conflicts are returned
// immediately so the caller can re-read and reapply, unless an earlier
// attempt failed transiently: that attempt may have committed, so the stored
// record is compared with account instead.
func (s *RetryingAccountStore) Put(ctx context.Context, account domain.Account) error {
	transient := false
	err := retry(ctx, s.policy, s.log, "put account", func(ctx context.Context) error {
		err := s.inner.Put(ctx, account)
		if err != nil && !domain.IsPermanentStoreError(err) {
			transient = true
		}
		return err
	})
	if !transient || !errors.Is(err, domain.ErrVersionConflict) {
		return err
	}
	return s.resolveUnacknowledgedPut(ctx, account, err)
}

// resolveUnacknowledgedPut treats the write as done when the stored record is
// exactly account one version later. Anything else is reported as
// ErrStoreUnavailable so the caller never reapplies on top of its own write.
func (s *RetryingAccountStore) resolveUnacknowledgedPut(ctx context.Context, account domain.Account, conflict error) error {
	stored, err := s.Get(ctx, account.UserID)
	if err != nil {
		return fmt.Errorf("%w: put account outcome unknown: %v", domain.ErrStoreUnavailable, err)
	}
	if stored.Version == account.Version+1 && stored.SameState(account) {
		s.log.Info().
			Str("user_id", account.UserID).
			Int64("version", stored.Version).
			Msg("Earlier put committed before its reply was lost")
		return nil
	}
	s.log.Warn().
		Str("user_id", account.UserID).
		Int64("expected_version", account.Version+1).
		Int64("stored_version", stored.Version).
		Msg("Account changed after an unacknowledged put")
	return fmt.Errorf("%w: put account outcome unknown: %v", domain.ErrStoreUnavailable, conflict)
}

// RetryingPriceStore retries transient PriceStore failures
type RetryingPriceStore struct {
	inner  domain.PriceStore
	policy RetryPolicy
	log    zerolog.Logger
}

// NewRetryingPriceStore wraps inner with policy
func NewRetryingPriceStore(inner domain.PriceStore, policy RetryPolicy, log zerolog.Logger) *RetryingPriceStore {
	return &RetryingPriceStore{
		inner:  inner,
		policy: policy,
		log:    log.With().Str("component", "price_store_retry").Logger(),
	}
}

// GetAll implements domain.PriceStore
func (s *RetryingPriceStore) GetAll(ctx context.Context) (map[string]decimal.Decimal, error) {
	var prices map[string]decimal.Decimal
	err := retry(ctx, s.policy, s.log, "get prices", func(ctx context.Context) error {
		var err error
		prices, err = s.inner.GetAll(ctx)
		return err
	})
	return prices, err
}

// PutAll implements domain.PriceStore
func (s *RetryingPriceStore) PutAll(ctx context.Context, prices map[string]decimal.Decimal) error {
	return retry(ctx, s.policy, s.log, "put prices", func(ctx context.Context) error {
		return s.inner.PutAll(ctx, prices)
	})
}
