// Package charts provides services for generating chart data from recorded prices.
package charts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/stonks/internal/domain"
	"github.com/aristath/stonks/internal/modules/prices"
	"github.com/aristath/stonks/pkg/formulas"
	"github.com/rs/zerolog"
)

const (
	// DefaultPoints is the number of history points returned when none is requested
	DefaultPoints = 100
	// MaxPoints caps the history read for a single chart
	MaxPoints = 1000

	smaLength = 20
	emaLength = 12
)

// ErrInvalidRange is returned for an unrecognised range string
var ErrInvalidRange = errors.New("invalid range (must be 1H, 6H, 1D, 1W or all)")

// ChartDataPoint represents a single point on a chart
type ChartDataPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Chart is a symbol's price series with indicators computed over it
type Chart struct {
	Symbol string           `json:"symbol"`
	Points []ChartDataPoint `json:"points"`
	// SMA and EMA are nil when the series is too short
	SMA *float64 `json:"sma"`
	EMA *float64 `json:"ema"`
	// Volatility is the standard deviation of per-tick returns
	Volatility float64 `json:"volatility"`
	// ChangePct is the percentage move from the first to the last point
	ChangePct float64 `json:"change_pct"`
}

// HistoryReader reads recorded price history, oldest first
type HistoryReader interface {
	GetHistory(ctx context.Context, symbol string, limit int) ([]prices.HistoryPoint, error)
}

// SymbolLister lists the tracked symbols
type SymbolLister interface {
	Symbols() []string
}

// Service provides chart data operations
type Service struct {
	history HistoryReader
	symbols SymbolLister
	now     func() time.Time
	log     zerolog.Logger
}

// NewService creates a new charts service
func NewService(history HistoryReader, symbols SymbolLister, log zerolog.Logger) *Service {
	return &Service{
		history: history,
		symbols: symbols,
		now:     time.Now,
		log:     log.With().Str("service", "charts").Logger(),
	}
}

// GetSymbolChart returns up to points recorded prices for symbol within
// rangeStr, plus moving averages and volatility over that series.
func (s *Service) GetSymbolChart(ctx context.Context, symbol string, points int, rangeStr string) (*Chart, error) {
	if !s.isTracked(symbol) {
		return nil, domain.ErrUnknownSymbol
	}

	since, err := s.parseRange(rangeStr)
	if err != nil {
		return nil, err
	}

	if points <= 0 {
		points = DefaultPoints
	}
	if points > MaxPoints {
		points = MaxPoints
	}

	history, err := s.history.GetHistory(ctx, symbol, points)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}

	chart := &Chart{Symbol: symbol, Points: make([]ChartDataPoint, 0, len(history))}
	closes := make([]float64, 0, len(history))
	for _, p := range history {
		if !since.IsZero() && p.RecordedAt.Before(since) {
			continue
		}
		value := p.Price.InexactFloat64()
		chart.Points = append(chart.Points, ChartDataPoint{Time: p.RecordedAt, Value: value})
		closes = append(closes, value)
	}

	chart.SMA = formulas.CalculateSMA(closes, smaLength)
	chart.EMA = formulas.CalculateEMA(closes, emaLength)
	chart.Volatility = formulas.TickVolatility(closes)
	if len(closes) > 1 && closes[0] != 0 {
		chart.ChangePct = (closes[len(closes)-1] - closes[0]) / closes[0] * 100
	}

	return chart, nil
}

// GetSparklines returns every tracked symbol's recent history averaged into
// buckets of the given width, oldest bucket first.
func (s *Service) GetSparklines(ctx context.Context, bucket time.Duration) (map[string][]ChartDataPoint, error) {
	if bucket <= 0 {
		return nil, fmt.Errorf("invalid bucket width: %s", bucket)
	}

	result := make(map[string][]ChartDataPoint)
	for _, symbol := range s.symbols.Symbols() {
		history, err := s.history.GetHistory(ctx, symbol, MaxPoints)
		if err != nil {
			s.log.Debug().
				Err(err).
				Str("symbol", symbol).
				Msg("Failed to get price history for symbol")
			continue
		}

		if points := aggregate(history, bucket); len(points) > 0 {
			result[symbol] = points
		}
	}

	return result, nil
}

// aggregate averages consecutive points that fall into the same bucket.
// history is oldest first, so buckets come out in order.
func aggregate(history []prices.HistoryPoint, bucket time.Duration) []ChartDataPoint {
	var out []ChartDataPoint
	var current time.Time
	var sum float64
	var n int

	flush := func() {
		if n > 0 {
			out = append(out, ChartDataPoint{Time: current, Value: sum / float64(n)})
		}
	}

	for _, p := range history {
		start := p.RecordedAt.Truncate(bucket)
		if n > 0 && !start.Equal(current) {
			flush()
			sum, n = 0, 0
		}
		current = start
		sum += p.Price.InexactFloat64()
		n++
	}
	flush()

	return out
}

func (s *Service) isTracked(symbol string) bool {
	for _, sym := range s.symbols.Symbols() {
		if sym == symbol {
			return true
		}
	}
	return false
}

// parseRange converts a range string to the earliest time to include.
// The zero time means no lower bound.
func (s *Service) parseRange(rangeStr string) (time.Time, error) {
	now := s.now()
	switch rangeStr {
	case "", "all":
		return time.Time{}, nil
	case "1H":
		return now.Add(-time.Hour), nil
	case "6H":
		return now.Add(-6 * time.Hour), nil
	case "1D":
		return now.AddDate(0, 0, -1), nil
	case "1W":
		return now.AddDate(0, 0, -7), nil
	default:
		return time.Time{}, ErrInvalidRange
	}
}
