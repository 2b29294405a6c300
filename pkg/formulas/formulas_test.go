package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateSMA(t *testing.T) {
	closes := []float64{100, 102, 104, 106, 108}

	sma := CalculateSMA(closes, 3)
	require.NotNil(t, sma)
	assert.InDelta(t, 106.0, *sma, 1e-9)

	assert.Nil(t, CalculateSMA(closes, 10), "insufficient data")
	assert.Nil(t, CalculateSMA(closes, 0))
}

func TestCalculateEMA_ShortSeriesFallsBackToMean(t *testing.T) {
	ema := CalculateEMA([]float64{100, 110}, 5)
	require.NotNil(t, ema)
	assert.InDelta(t, 105.0, *ema, 1e-9)

	assert.Nil(t, CalculateEMA(nil, 5))
}

func TestCalculateEMA_ConstantSeries(t *testing.T) {
	closes := []float64{50, 50, 50, 50, 50, 50}

	ema := CalculateEMA(closes, 3)
	require.NotNil(t, ema)
	assert.InDelta(t, 50.0, *ema, 1e-9)
}

func TestCalculateReturns(t *testing.T) {
	returns := CalculateReturns([]float64{100, 105, 99.75})
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.05, returns[0], 1e-9)
	assert.InDelta(t, -0.05, returns[1], 1e-9)

	assert.Empty(t, CalculateReturns([]float64{100}))
}

func TestTickVolatility(t *testing.T) {
	assert.Equal(t, 0.0, TickVolatility([]float64{100, 100, 100}))
	assert.Greater(t, TickVolatility([]float64{100, 105, 99.75, 104.74}), 0.0)
	assert.Equal(t, 0.0, TickVolatility([]float64{100}))
}
