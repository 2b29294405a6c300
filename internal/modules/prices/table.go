package prices

import (
	"sort"
	"sync"

	"github.com/aristath/stonks/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ApplyChanges returns a new price table where every symbol with both a price p
// and a change c is set to round(p * (100 + c) / 100, 2).
// Changes for symbols without a price are skipped; prices without a change carry over.
// A result that would round to zero keeps the previous price.
func ApplyChanges(prices map[string]decimal.Decimal, changes map[string]int) map[string]decimal.Decimal {
	next := make(map[string]decimal.Decimal, len(prices))
	for symbol, p := range prices {
		next[symbol] = p
	}

	for symbol, c := range changes {
		p, ok := prices[symbol]
		if !ok {
			continue
		}
		updated := p.Mul(hundred.Add(decimal.NewFromInt(int64(c)))).Div(hundred).Round(2)
		if !updated.IsPositive() {
			continue
		}
		next[symbol] = updated
	}

	return next
}

// Table is the process-wide live view of the shared price table.
// Reads are safe from any goroutine; only the reconciliation loop calls Replace.
type Table struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewTable creates a table holding a copy of prices
func NewTable(prices map[string]decimal.Decimal) *Table {
	t := &Table{}
	t.Replace(prices)
	return t
}

// Get returns the current price for symbol
func (t *Table) Get(symbol string) (decimal.Decimal, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.prices[symbol]
	return p, ok
}

// Snapshot returns a copy of every price
func (t *Table) Snapshot() map[string]decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]decimal.Decimal, len(t.prices))
	for k, v := range t.prices {
		out[k] = v
	}
	return out
}

// Entries returns the table as entries sorted by symbol
func (t *Table) Entries() []domain.PriceEntry {
	snapshot := t.Snapshot()
	entries := make([]domain.PriceEntry, 0, len(snapshot))
	for symbol, price := range snapshot {
		entries = append(entries, domain.PriceEntry{Symbol: symbol, Price: price})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Symbol < entries[j].Symbol })
	return entries
}

// Symbols returns the tracked symbols in sorted order
func (t *Table) Symbols() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.prices))
	for s := range t.prices {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Replace swaps in a copy of prices
func (t *Table) Replace(prices map[string]decimal.Decimal) {
	next := make(map[string]decimal.Decimal, len(prices))
	for k, v := range prices {
		next[k] = v
	}
	t.mu.Lock()
	t.prices = next
	t.mu.Unlock()
}
