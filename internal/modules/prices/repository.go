package prices

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/stonks/internal/database"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// HistoryPoint is one recorded price for a symbol
type HistoryPoint struct {
	Symbol     string          `json:"symbol"`
	Price      decimal.Decimal `json:"price"`
	ChangePct  int             `json:"change_pct"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Repository persists the shared price table and its history in prices.db
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new price repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "prices").Logger(),
	}
}

// GetAll returns every stored price
func (r *Repository) GetAll(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT symbol, price FROM prices")
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	prices := make(map[string]decimal.Decimal)
	for rows.Next() {
		var symbol, raw string
		if err := rows.Scan(&symbol, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid stored price for %s: %w", symbol, err)
		}
		prices[symbol] = price
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return prices, nil
}

// PutAll upserts every price in one transaction
func (r *Repository) PutAll(ctx context.Context, prices map[string]decimal.Decimal) error {
	now := time.Now().Unix()
	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO prices (symbol, price, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(symbol) DO UPDATE SET price = excluded.price, updated_at = excluded.updated_at`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for symbol, price := range prices {
			if _, err := stmt.ExecContext(ctx, symbol, price.String(), now); err != nil {
				return fmt.Errorf("failed to upsert price for %s: %w", symbol, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store prices: %w", err)
	}
	return nil
}

// SeedMissing inserts a base price for every symbol that has none yet.
// Existing prices are never overwritten. Returns the number of symbols seeded.
func (r *Repository) SeedMissing(ctx context.Context, base map[string]decimal.Decimal) (int, error) {
	seeded := 0
	now := time.Now().Unix()
	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		for symbol, price := range base {
			res, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO prices (symbol, price, updated_at) VALUES (?, ?, ?)",
				symbol, price.String(), now)
			if err != nil {
				return fmt.Errorf("failed to seed %s: %w", symbol, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				seeded++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if seeded > 0 {
		r.log.Info().Int("seeded", seeded).Msg("Seeded base prices")
	}
	return seeded, nil
}

// RecordHistory appends one history point per symbol in prices
func (r *Repository) RecordHistory(ctx context.Context, prices map[string]decimal.Decimal, changes map[string]int, at time.Time) error {
	ts := at.Unix()
	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		for symbol, price := range prices {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO price_history (symbol, price, change_pct, recorded_at) VALUES (?, ?, ?, ?)",
				symbol, price.String(), changes[symbol], ts); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record price history: %w", err)
	}
	return nil
}

// GetHistory returns the latest limit points for symbol, oldest first
func (r *Repository) GetHistory(ctx context.Context, symbol string, limit int) ([]HistoryPoint, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT symbol, price, change_pct, recorded_at FROM (
			SELECT id, symbol, price, change_pct, recorded_at FROM price_history
			WHERE symbol = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	points := make([]HistoryPoint, 0, limit)
	for rows.Next() {
		var p HistoryPoint
		var raw string
		var ts int64
		if err := rows.Scan(&p.Symbol, &raw, &p.ChangePct, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan history point: %w", err)
		}
		if p.Price, err = decimal.NewFromString(raw); err != nil {
			return nil, fmt.Errorf("invalid stored history price for %s: %w", symbol, err)
		}
		p.RecordedAt = time.Unix(ts, 0).UTC()
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price history: %w", err)
	}
	return points, nil
}

// DeleteHistoryBefore removes history recorded before cutoff
func (r *Repository) DeleteHistoryBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM price_history WHERE recorded_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune price history: %w", err)
	}
	return res.RowsAffected()
}
