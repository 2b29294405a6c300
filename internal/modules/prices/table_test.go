package prices

import (
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApplyChanges(t *testing.T) {
	prices := map[string]decimal.Decimal{
		"SigmaStock": d("100"),
		"MemeCorp":   d("33.33"),
		"GrindSet":   d("10"),
	}
	changes := map[string]int{
		"SigmaStock": 5,
		"MemeCorp":   -3,
		"Unknown":    4,
	}

	next := ApplyChanges(prices, changes)

	assert.True(t, next["SigmaStock"].Equal(d("105")))
	// 33.33 * 0.97 = 32.3301
	assert.True(t, next["MemeCorp"].Equal(d("32.33")))
	assert.True(t, next["GrindSet"].Equal(d("10")), "no change carries over")
	_, invented := next["Unknown"]
	assert.False(t, invented, "symbols without a base price are skipped")

	// Input is not mutated
	assert.True(t, prices["SigmaStock"].Equal(d("100")))
}

func TestApplyChanges_RoundsHalfAwayFromZero(t *testing.T) {
	// 10.05 * 1.05 = 10.5525 -> 10.55 ; 0.5 * 0.99 = 0.495 -> 0.50
	next := ApplyChanges(
		map[string]decimal.Decimal{"A": d("10.05"), "B": d("0.5")},
		map[string]int{"A": 5, "B": -1},
	)
	assert.Equal(t, "10.55", next["A"].StringFixed(2))
	assert.Equal(t, "0.50", next["B"].StringFixed(2))
}

func TestApplyChanges_StaysPositiveOverManyTicks(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	prices := map[string]decimal.Decimal{"A": d("100"), "B": d("0.01")}

	for i := 0; i < 2000; i++ {
		prices = ApplyChanges(prices, map[string]int{
			"A": rng.IntN(11) - 5,
			"B": -5,
		})
		for symbol, p := range prices {
			assert.True(t, p.IsPositive(), "tick %d: %s went to %s", i, symbol, p)
		}
	}
	assert.True(t, prices["B"].Equal(d("0.01")))
}

func TestTable(t *testing.T) {
	table := NewTable(map[string]decimal.Decimal{"B": d("2"), "A": d("1")})

	p, ok := table.Get("A")
	assert.True(t, ok)
	assert.True(t, p.Equal(d("1")))

	_, ok = table.Get("Z")
	assert.False(t, ok)

	assert.Equal(t, []string{"A", "B"}, table.Symbols())
	entries := table.Entries()
	assert.Len(t, entries, 2)
	assert.Equal(t, "A", entries[0].Symbol)

	snapshot := table.Snapshot()
	snapshot["A"] = d("99")
	p, _ = table.Get("A")
	assert.True(t, p.Equal(d("1")), "snapshot must be a copy")

	table.Replace(map[string]decimal.Decimal{"C": d("3")})
	assert.Equal(t, []string{"C"}, table.Symbols())
}
