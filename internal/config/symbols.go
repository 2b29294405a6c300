package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Symbol is a tracked stock and the price it is seeded with on first start
type Symbol struct {
	Symbol    string
	BasePrice decimal.Decimal
}

type symbolsFile struct {
	Symbols []struct {
		Symbol    string  `yaml:"symbol"`
		BasePrice *string `yaml:"base_price"`
	} `yaml:"symbols"`
}

var defaultSymbolNames = []string{
	"SkibidiCoin", "RizzToken", "SigmaStock", "MemeCorp",
	"BrainRotInc", "CloutCloud", "GrindSet", "DoomScroll",
}

// DefaultSymbols returns the built-in symbol set, each seeded at 100
func DefaultSymbols() []Symbol {
	symbols := make([]Symbol, 0, len(defaultSymbolNames))
	for _, name := range defaultSymbolNames {
		symbols = append(symbols, Symbol{Symbol: name, BasePrice: decimal.NewFromInt(100)})
	}
	return symbols
}

// LoadSymbols reads a YAML symbols file:
//
//	symbols:
//	  - symbol: SigmaStock
//	    base_price: "100"
//
// A missing base_price defaults to 100.
func LoadSymbols(path string) ([]Symbol, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read symbols file: %w", err)
	}

	var f symbolsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to parse symbols file: %w", err)
	}

	seen := make(map[string]bool, len(f.Symbols))
	symbols := make([]Symbol, 0, len(f.Symbols))
	for _, s := range f.Symbols {
		if s.Symbol == "" {
			return nil, fmt.Errorf("symbols file %s: entry without symbol", path)
		}
		if seen[s.Symbol] {
			return nil, fmt.Errorf("symbols file %s: duplicate symbol %s", path, s.Symbol)
		}
		seen[s.Symbol] = true

		price := decimal.NewFromInt(100)
		if s.BasePrice != nil {
			price, err = decimal.NewFromString(*s.BasePrice)
			if err != nil {
				return nil, fmt.Errorf("symbols file %s: invalid base_price for %s: %w", path, s.Symbol, err)
			}
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("symbols file %s: base_price for %s must be positive", path, s.Symbol)
		}

		symbols = append(symbols, Symbol{Symbol: s.Symbol, BasePrice: price})
	}

	return symbols, nil
}
