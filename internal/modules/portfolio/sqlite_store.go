package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/stonks/internal/database"
	"github.com/aristath/stonks/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SQLiteAccountStore persists accounts and holdings in accounts.db.
// New accounts start at version 1; each successful Put increments it.
type SQLiteAccountStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteAccountStore creates a new SQLite account store
func NewSQLiteAccountStore(db *sql.DB, log zerolog.Logger) *SQLiteAccountStore {
	return &SQLiteAccountStore{
		db:  db,
		log: log.With().Str("repo", "accounts").Logger(),
	}
}

// Get returns the account with its holdings in insertion order
func (s *SQLiteAccountStore) Get(ctx context.Context, userID string) (domain.Account, error) {
	var account domain.Account
	var rawBalance string
	var updatedAt int64

	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, balance, version, updated_at FROM accounts WHERE user_id = ?", userID,
	).Scan(&account.UserID, &rawBalance, &account.Version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to query account: %w", err)
	}

	if account.Balance, err = decimal.NewFromString(rawBalance); err != nil {
		return domain.Account{}, fmt.Errorf("invalid stored balance for %s: %w", userID, err)
	}
	account.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	rows, err := s.db.QueryContext(ctx,
		"SELECT symbol, quantity, avg_price FROM holdings WHERE user_id = ? ORDER BY position", userID)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	account.Holdings = []domain.Holding{}
	for rows.Next() {
		var h domain.Holding
		var rawAvg string
		if err := rows.Scan(&h.Symbol, &h.Quantity, &rawAvg); err != nil {
			return domain.Account{}, fmt.Errorf("failed to scan holding: %w", err)
		}
		if h.AvgPrice, err = decimal.NewFromString(rawAvg); err != nil {
			return domain.Account{}, fmt.Errorf("invalid stored avg price for %s/%s: %w", userID, h.Symbol, err)
		}
		account.Holdings = append(account.Holdings, h)
	}

	if err := rows.Err(); err != nil {
		return domain.Account{}, fmt.Errorf("error iterating holdings: %w", err)
	}

	return account, nil
}

// Create inserts a new account at version 1
func (s *SQLiteAccountStore) Create(ctx context.Context, account domain.Account) error {
	now := stamp(account.UpdatedAt)
	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO accounts (user_id, balance, version, created_at, updated_at) VALUES (?, ?, 1, ?, ?)",
			account.UserID, account.Balance.String(), now, now)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrAccountExists
			}
			return err
		}
		return insertHoldings(ctx, tx, account)
	})
	if errors.Is(err, domain.ErrAccountExists) {
		return domain.ErrAccountExists
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	s.log.Debug().Str("user_id", account.UserID).Msg("Account created")
	return nil
}

// Put replaces balance and holdings atomically if the stored version matches
func (s *SQLiteAccountStore) Put(ctx context.Context, account domain.Account) error {
	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE accounts SET balance = ?, version = version + 1, updated_at = ? WHERE user_id = ? AND version = ?",
			account.Balance.String(), stamp(account.UpdatedAt), account.UserID, account.Version)
		if err != nil {
			return err
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			var exists int
			err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts WHERE user_id = ?", account.UserID).Scan(&exists)
			if err != nil {
				return err
			}
			if exists == 0 {
				return domain.ErrAccountNotFound
			}
			return domain.ErrVersionConflict
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM holdings WHERE user_id = ?", account.UserID); err != nil {
			return err
		}
		return insertHoldings(ctx, tx, account)
	})

	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return domain.ErrAccountNotFound
	case errors.Is(err, domain.ErrVersionConflict):
		return domain.ErrVersionConflict
	case err != nil:
		return fmt.Errorf("failed to store account: %w", err)
	}
	return nil
}

func insertHoldings(ctx context.Context, tx *sql.Tx, account domain.Account) error {
	for i, h := range account.Holdings {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO holdings (user_id, symbol, quantity, avg_price, position) VALUES (?, ?, ?, ?, ?)",
			account.UserID, h.Symbol, h.Quantity, h.AvgPrice.String(), i); err != nil {
			return fmt.Errorf("failed to insert holding %s: %w", h.Symbol, err)
		}
	}
	return nil
}

func stamp(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UnixMilli()
}

// isUniqueViolation matches the constraint message both SQLite drivers produce
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
