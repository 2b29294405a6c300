package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/stonks/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrTradeNotFound is returned by GetByID
var ErrTradeNotFound = errors.New("trade not found")

// Trade is one journal entry for an applied transaction
type Trade struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Symbol       string          `json:"symbol"`
	Side         domain.Side     `json:"side"`
	Quantity     int64           `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	ExecutedAt   time.Time       `json:"executed_at"`
}

// Value returns Price * Quantity
func (t Trade) Value() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// TradeSummary aggregates one user's journal
type TradeSummary struct {
	TotalTrades int64           `json:"total_trades"`
	BuyCount    int64           `json:"buy_count"`
	SellCount   int64           `json:"sell_count"`
	TotalBought decimal.Decimal `json:"total_bought"`
	TotalSold   decimal.Decimal `json:"total_sold"`
}

// TradeRepository persists the trade journal in ledger.db
type TradeRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		db:  db,
		log: log.With().Str("repo", "trades").Logger(),
	}
}

// Create appends a trade to the journal
func (r *TradeRepository) Create(ctx context.Context, trade Trade) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO trades
		(id, user_id, symbol, side, quantity, price, balance_after, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.ID, trade.UserID, trade.Symbol, string(trade.Side), trade.Quantity,
		trade.Price.String(), trade.BalanceAfter.String(), trade.ExecutedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// GetByID returns one of the user's trades
func (r *TradeRepository) GetByID(ctx context.Context, userID, id string) (Trade, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, user_id, symbol, side, quantity, price, balance_after, executed_at
		FROM trades WHERE id = ? AND user_id = ?`, id, userID)

	trade, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Trade{}, ErrTradeNotFound
	}
	if err != nil {
		return Trade{}, fmt.Errorf("failed to query trade: %w", err)
	}
	return trade, nil
}

// ListByUser returns the user's latest trades, newest first
func (r *TradeRepository) ListByUser(ctx context.Context, userID string, symbol string, limit int) ([]Trade, error) {
	query := `SELECT id, user_id, symbol, side, quantity, price, balance_after, executed_at
		FROM trades WHERE user_id = ?`
	args := []interface{}{userID}

	if symbol != "" {
		query += " AND symbol = ?"
		args = append(args, symbol)
	}

	query += " ORDER BY executed_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := make([]Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}
	return trades, nil
}

// Summary aggregates the user's journal
func (r *TradeRepository) Summary(ctx context.Context, userID string) (TradeSummary, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT side, quantity, price FROM trades WHERE user_id = ?", userID)
	if err != nil {
		return TradeSummary{}, fmt.Errorf("failed to query trades summary: %w", err)
	}
	defer rows.Close()

	summary := TradeSummary{TotalBought: decimal.Zero, TotalSold: decimal.Zero}
	for rows.Next() {
		var side, rawPrice string
		var quantity int64
		if err := rows.Scan(&side, &quantity, &rawPrice); err != nil {
			return TradeSummary{}, fmt.Errorf("failed to scan trade: %w", err)
		}
		price, err := decimal.NewFromString(rawPrice)
		if err != nil {
			return TradeSummary{}, fmt.Errorf("invalid stored trade price: %w", err)
		}

		value := price.Mul(decimal.NewFromInt(quantity))
		summary.TotalTrades++
		if domain.Side(side) == domain.SideBuy {
			summary.BuyCount++
			summary.TotalBought = summary.TotalBought.Add(value)
		} else {
			summary.SellCount++
			summary.TotalSold = summary.TotalSold.Add(value)
		}
	}

	if err := rows.Err(); err != nil {
		return TradeSummary{}, fmt.Errorf("error iterating trades: %w", err)
	}
	return summary, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(s scanner) (Trade, error) {
	var t Trade
	var side, rawPrice, rawBalance string
	var executedAt int64

	if err := s.Scan(&t.ID, &t.UserID, &t.Symbol, &side, &t.Quantity, &rawPrice, &rawBalance, &executedAt); err != nil {
		return Trade{}, err
	}

	var err error
	if t.Price, err = decimal.NewFromString(rawPrice); err != nil {
		return Trade{}, fmt.Errorf("invalid stored price: %w", err)
	}
	if t.BalanceAfter, err = decimal.NewFromString(rawBalance); err != nil {
		return Trade{}, fmt.Errorf("invalid stored balance: %w", err)
	}
	t.Side = domain.Side(side)
	t.ExecutedAt = time.UnixMilli(executedAt).UTC()
	return t, nil
}
