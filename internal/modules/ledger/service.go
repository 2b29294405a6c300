package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/stonks/internal/domain"
	"github.com/aristath/stonks/internal/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// maxConflictRetries bounds re-read/re-apply cycles after a version conflict
const maxConflictRetries = 5

// AnalyticsPublisher recomputes analytics after an account changes
type AnalyticsPublisher interface {
	PublishAccount(ctx context.Context, account domain.Account)
}

// Journal records applied trades
type Journal interface {
	Create(ctx context.Context, trade Trade) error
}

// ExecuteResult is the outcome of one applied transaction
type ExecuteResult struct {
	Trade   Trade          `json:"trade"`
	Account domain.Account `json:"account"`
}

// Service executes transactions against accounts.
// Transactions on one account are serialized by a per-account lock held across
// read-modify-write; the store's version check covers writers outside this process.
type Service struct {
	accounts  domain.AccountStore
	prices    domain.PriceReader
	journal   Journal
	analytics AnalyticsPublisher
	events    *events.Manager
	locks     *keyedMutex
	now       func() time.Time
	log       zerolog.Logger
}

// NewService creates a ledger service
// journal, analytics and eventManager are optional
func NewService(
	accounts domain.AccountStore,
	prices domain.PriceReader,
	journal Journal,
	analytics AnalyticsPublisher,
	eventManager *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		accounts:  accounts,
		prices:    prices,
		journal:   journal,
		analytics: analytics,
		events:    eventManager,
		locks:     newKeyedMutex(),
		now:       time.Now,
		log:       log.With().Str("service", "ledger").Logger(),
	}
}

// Execute prices intent at the current table value and applies it to userID's account.
// Validation failures are returned as-is and never retried.
func (s *Service) Execute(ctx context.Context, userID string, intent domain.TransactionIntent) (*ExecuteResult, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		account, err := s.accounts.Get(ctx, userID)
		if err != nil {
			return nil, err
		}

		price, ok := s.prices.Get(intent.Symbol)
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, intent.Symbol)
		}

		updated, err := Apply(account, intent.Symbol, intent.Side, intent.Quantity, price)
		if err != nil {
			return nil, err
		}
		updated.UpdatedAt = s.now().UTC()

		err = s.accounts.Put(ctx, updated)
		if err == nil {
			return s.record(ctx, updated, intent, price), nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
		if attempt >= maxConflictRetries {
			s.log.Warn().Str("user_id", userID).Int("attempts", attempt).Msg("Giving up after repeated version conflicts")
			return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}

		s.log.Debug().Str("user_id", userID).Int("attempt", attempt).Msg("Account changed concurrently, re-applying")
	}
}

// record journals the trade and publishes events after a successful write
func (s *Service) record(ctx context.Context, account domain.Account, intent domain.TransactionIntent, price decimal.Decimal) *ExecuteResult {
	// Put bumps the stored version; mirror it so callers see the persisted record
	account.Version++

	trade := Trade{
		ID:           uuid.NewString(),
		UserID:       account.UserID,
		Symbol:       intent.Symbol,
		Side:         intent.Side,
		Quantity:     intent.Quantity,
		Price:        price,
		BalanceAfter: account.Balance,
		ExecutedAt:   s.now().UTC(),
	}

	if s.journal != nil {
		if err := s.journal.Create(ctx, trade); err != nil {
			s.log.Error().Err(err).Str("trade_id", trade.ID).Msg("Failed to journal trade")
		}
	}

	s.log.Info().
		Str("user_id", account.UserID).
		Str("symbol", trade.Symbol).
		Str("side", string(trade.Side)).
		Int64("quantity", trade.Quantity).
		Str("price", trade.Price.String()).
		Msg("Trade executed")

	if s.events != nil {
		s.events.EmitTyped("ledger", &events.TradeExecutedData{
			TradeID:      trade.ID,
			UserID:       trade.UserID,
			Symbol:       trade.Symbol,
			Side:         string(trade.Side),
			Quantity:     trade.Quantity,
			Price:        trade.Price,
			BalanceAfter: trade.BalanceAfter,
		})
	}

	if s.analytics != nil {
		s.analytics.PublishAccount(ctx, account)
	}

	return &ExecuteResult{Trade: trade, Account: account}
}
