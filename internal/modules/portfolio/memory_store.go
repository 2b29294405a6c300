package portfolio

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/stonks/internal/domain"
)

// MemoryAccountStore keeps accounts in process memory.
// Used for ACCOUNT_STORE=memory and in tests; contents are lost on restart.
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
}

// NewMemoryAccountStore creates an empty store
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[string]domain.Account)}
}

// Get returns a copy of the account
func (s *MemoryAccountStore) Get(ctx context.Context, userID string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[userID]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return account.Clone(), nil
}

// Create inserts a new account at version 1
func (s *MemoryAccountStore) Create(ctx context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.UserID]; ok {
		return domain.ErrAccountExists
	}
	stored := account.Clone()
	stored.Version = 1
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}
	s.accounts[account.UserID] = stored
	return nil
}

// Put replaces the account if the stored version matches
func (s *MemoryAccountStore) Put(ctx context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.accounts[account.UserID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if current.Version != account.Version {
		return domain.ErrVersionConflict
	}
	stored := account.Clone()
	stored.Version = current.Version + 1
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}
	s.accounts[account.UserID] = stored
	return nil
}

