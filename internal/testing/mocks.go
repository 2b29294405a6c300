package testing

import (
	"context"
	"sync"

	"github.com/aristath/stonks/internal/domain"
	"github.com/shopspring/decimal"
)

// MockRandomnessSource returns preset integers or an error
type MockRandomnessSource struct {
	mu     sync.Mutex
	values []int
	err    error
	calls  int
	block  bool
}

// NewMockRandomnessSource creates a source that returns values on every call
func NewMockRandomnessSource(values ...int) *MockRandomnessSource {
	return &MockRandomnessSource{values: values}
}

// SetValues sets the integers to return
func (m *MockRandomnessSource) SetValues(values ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = values
}

// SetError sets the error to return
func (m *MockRandomnessSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetBlocking makes GetIntegers wait until its context is done
func (m *MockRandomnessSource) SetBlocking(block bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.block = block
}

// Calls returns how many times GetIntegers was invoked
func (m *MockRandomnessSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// GetIntegers returns the preset values
func (m *MockRandomnessSource) GetIntegers(ctx context.Context, count, min, max int) ([]int, error) {
	m.mu.Lock()
	m.calls++
	block, err := m.block, m.err
	values := append([]int(nil), m.values...)
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return values, nil
}

// MockPriceStore is an in-memory PriceStore with injectable errors
type MockPriceStore struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	getErr error
	putErr error
	puts   int
}

// NewMockPriceStore creates a store seeded with prices
func NewMockPriceStore(prices map[string]decimal.Decimal) *MockPriceStore {
	m := &MockPriceStore{prices: make(map[string]decimal.Decimal)}
	for k, v := range prices {
		m.prices[k] = v
	}
	return m
}

// SetErrors sets the errors returned by GetAll and PutAll
func (m *MockPriceStore) SetErrors(getErr, putErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = getErr
	m.putErr = putErr
}

// Puts returns how many successful PutAll calls were made
func (m *MockPriceStore) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

// GetAll returns a copy of the stored prices
func (m *MockPriceStore) GetAll(ctx context.Context) (map[string]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make(map[string]decimal.Decimal, len(m.prices))
	for k, v := range m.prices {
		out[k] = v
	}
	return out, nil
}

// PutAll replaces the stored prices
func (m *MockPriceStore) PutAll(ctx context.Context, prices map[string]decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.prices = make(map[string]decimal.Decimal, len(prices))
	for k, v := range prices {
		m.prices[k] = v
	}
	m.puts++
	return nil
}

// MockAccountStore wraps an AccountStore and fails the next n calls with err
type MockAccountStore struct {
	domain.AccountStore

	mu       sync.Mutex
	failures int
	err      error
	calls    int
	lostAcks int
	ackErr   error
}

// NewMockAccountStore wraps inner
func NewMockAccountStore(inner domain.AccountStore) *MockAccountStore {
	return &MockAccountStore{AccountStore: inner}
}

// FailNext makes the next n calls return err
func (m *MockAccountStore) FailNext(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
	m.err = err
}

// LoseNextAck makes the next n successful Puts commit and then return err,
// as when a reply is lost after the write landed
func (m *MockAccountStore) LoseNextAck(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lostAcks = n
	m.ackErr = err
}

// Calls returns the number of calls made (including failed ones)
func (m *MockAccountStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockAccountStore) fail() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return m.err
	}
	return nil
}

// Get delegates unless a failure is pending
func (m *MockAccountStore) Get(ctx context.Context, userID string) (domain.Account, error) {
	if err := m.fail(); err != nil {
		return domain.Account{}, err
	}
	return m.AccountStore.Get(ctx, userID)
}

// Create delegates unless a failure is pending
func (m *MockAccountStore) Create(ctx context.Context, account domain.Account) error {
	if err := m.fail(); err != nil {
		return err
	}
	return m.AccountStore.Create(ctx, account)
}

// Put delegates unless a failure is pending
func (m *MockAccountStore) Put(ctx context.Context, account domain.Account) error {
	if err := m.fail(); err != nil {
		return err
	}
	if err := m.AccountStore.Put(ctx, account); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lostAcks > 0 {
		m.lostAcks--
		return m.ackErr
	}
	return nil
}

// StaticIdentity is an IdentityProvider that always resolves to one user
type StaticIdentity string

// CurrentIdentity returns the fixed user, or none when empty
func (s StaticIdentity) CurrentIdentity(ctx context.Context) (string, bool) {
	return string(s), s != ""
}
