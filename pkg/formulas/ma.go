// Package formulas provides numeric helpers over price series.
package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// CalculateSMA returns the simple moving average of the last length closes,
// or nil if there are fewer than length values.
func CalculateSMA(closes []float64, length int) *float64 {
	if length <= 0 || len(closes) < length {
		return nil
	}

	sma := talib.Sma(closes, length)
	if len(sma) > 0 && !math.IsNaN(sma[len(sma)-1]) {
		result := sma[len(sma)-1]
		return &result
	}

	return nil
}

// CalculateEMA calculates the Exponential Moving Average
//
//	EMA_today = (Price_today × multiplier) + (EMA_yesterday × (1 - multiplier))
//	where multiplier = 2 / (period + 1)
//
// Falls back to the plain mean when the series is shorter than length.
func CalculateEMA(closes []float64, length int) *float64 {
	if len(closes) == 0 || length <= 0 {
		return nil
	}

	if len(closes) < length {
		mean := Mean(closes)
		return &mean
	}

	ema := talib.Ema(closes, length)
	if len(ema) > 0 && !math.IsNaN(ema[len(ema)-1]) {
		result := ema[len(ema)-1]
		return &result
	}

	mean := Mean(closes[len(closes)-length:])
	return &mean
}
