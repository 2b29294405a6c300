package portfolio

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/aristath/stonks/internal/domain"
	"github.com/aristath/stonks/internal/events"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrInvalidUserID is returned by Register for ids that cannot name an account
var ErrInvalidUserID = errors.New("user id must be 1-64 characters of letters, digits, '.', '_', '-' or '@'")

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9._@-]{1,64}$`)

// Summary is an account with its analytics and marked-to-market positions
type Summary struct {
	UserID    string            `json:"user_id"`
	Balance   decimal.Decimal   `json:"balance"`
	Analytics Analytics         `json:"analytics"`
	Positions []Position        `json:"positions"`
	Display   map[string]string `json:"display"`
	Version   int64             `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Service registers accounts and publishes their analytics
type Service struct {
	accounts        domain.AccountStore
	prices          domain.PriceReader
	events          *events.Manager
	startingBalance decimal.Decimal
	log             zerolog.Logger
}

// NewService creates a portfolio service
func NewService(
	accounts domain.AccountStore,
	prices domain.PriceReader,
	eventManager *events.Manager,
	startingBalance decimal.Decimal,
	log zerolog.Logger,
) *Service {
	return &Service{
		accounts:        accounts,
		prices:          prices,
		events:          eventManager,
		startingBalance: startingBalance,
		log:             log.With().Str("service", "portfolio").Logger(),
	}
}

// Register creates an account with the starting balance and no holdings
func (s *Service) Register(ctx context.Context, userID string) (domain.Account, error) {
	userID = strings.TrimSpace(userID)
	if !userIDPattern.MatchString(userID) {
		return domain.Account{}, ErrInvalidUserID
	}

	account := domain.NewAccount(userID, s.startingBalance)
	account.UpdatedAt = time.Now().UTC()
	if err := s.accounts.Create(ctx, account); err != nil {
		return domain.Account{}, err
	}
	account.Version = 1

	s.log.Info().Str("user_id", userID).Str("balance", account.Balance.String()).Msg("Account registered")

	if s.events != nil {
		s.events.EmitTyped("portfolio", &events.AccountCreatedData{
			UserID:  userID,
			Balance: account.Balance,
		})
	}
	return account, nil
}

// Account returns the stored account
func (s *Service) Account(ctx context.Context, userID string) (domain.Account, error) {
	return s.accounts.Get(ctx, userID)
}

// Summary loads the account and derives analytics against the live price table
func (s *Service) Summary(ctx context.Context, userID string) (*Summary, error) {
	account, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.summarize(account, s.prices.Snapshot()), nil
}

func (s *Service) summarize(account domain.Account, prices map[string]decimal.Decimal) *Summary {
	analytics := Compute(account, prices)
	return &Summary{
		UserID:    account.UserID,
		Balance:   account.Balance,
		Analytics: analytics,
		Positions: Positions(account, prices),
		Display: map[string]string{
			"balance":        FormatMoney(account.Balance),
			"total_invested": FormatMoney(analytics.TotalInvested),
			"total_value":    FormatMoney(analytics.TotalValue),
		},
		Version:   account.Version,
		UpdatedAt: account.UpdatedAt,
	}
}

// PublishAccount emits fresh analytics for an account that just changed
func (s *Service) PublishAccount(ctx context.Context, account domain.Account) {
	s.publish(account, s.prices.Snapshot())
}

// PublishFor recomputes and emits analytics for each user against one price snapshot.
// Users whose context is cancelled or whose account cannot be read are skipped.
func (s *Service) PublishFor(ctx context.Context, userIDs []string) int {
	snapshot := s.prices.Snapshot()
	published := 0
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			break
		}
		account, err := s.accounts.Get(ctx, userID)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("Skipping analytics recompute")
			continue
		}
		s.publish(account, snapshot)
		published++
	}
	return published
}

func (s *Service) publish(account domain.Account, prices map[string]decimal.Decimal) {
	if s.events == nil {
		return
	}
	analytics := Compute(account, prices)

	splits := make([]events.HoldingSplitData, 0, len(analytics.HoldingSplits))
	for _, split := range analytics.HoldingSplits {
		splits = append(splits, events.HoldingSplitData{Symbol: split.Symbol, Percentage: split.Percentage})
	}

	s.events.EmitTyped("portfolio", &events.AnalyticsUpdatedData{
		UserID:        account.UserID,
		Balance:       account.Balance,
		TotalInvested: analytics.TotalInvested,
		TotalValue:    analytics.TotalValue,
		Splits:        splits,
	})
}

// FormatMoney renders an amount as a USD display string, rounded to cents
func FormatMoney(amount decimal.Decimal) string {
	cents := amount.Mul(hundred).Round(0).IntPart()
	return money.New(cents, money.USD).Display()
}

