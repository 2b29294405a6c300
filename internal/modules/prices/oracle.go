// Package prices owns the shared price table and the oracle that drifts it.
package prices

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aristath/stonks/internal/domain"
	"github.com/rs/zerolog"
)

// Percent change bounds drawn by the oracle (inclusive)
const (
	MinChange = -5
	MaxChange = 5
)

// TickResult is one oracle draw
type TickResult struct {
	Changes map[string]int
	// Neutral is set when the randomness source failed and every change is zero
	Neutral bool
	Err     error
}

// Oracle produces randomized percent changes for a set of symbols
type Oracle struct {
	source  domain.RandomnessSource
	timeout time.Duration
	log     zerolog.Logger
}

// NewOracle creates an oracle bounded by timeout per draw
func NewOracle(source domain.RandomnessSource, timeout time.Duration, log zerolog.Logger) *Oracle {
	return &Oracle{
		source:  source,
		timeout: timeout,
		log:     log.With().Str("component", "price_oracle").Logger(),
	}
}

// Tick draws one change in [MinChange, MaxChange] per symbol.
// It never fails: an unreachable, slow or misbehaving source yields a zero change for every symbol.
func (o *Oracle) Tick(ctx context.Context, symbols []string) TickResult {
	unique := uniqueSorted(symbols)
	if len(unique) == 0 {
		return TickResult{Changes: map[string]int{}}
	}

	drawCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	values, err := o.source.GetIntegers(drawCtx, len(unique), MinChange, MaxChange)
	if err == nil {
		err = validateDraw(values, len(unique))
	}
	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrRandomnessUnavailable, err)
		o.log.Warn().Err(err).Int("symbols", len(unique)).Msg("Randomness unavailable, using zero changes")
		return TickResult{Changes: zeroChanges(unique), Neutral: true, Err: err}
	}

	changes := make(map[string]int, len(unique))
	for i, symbol := range unique {
		changes[symbol] = values[i]
	}
	return TickResult{Changes: changes}
}

func validateDraw(values []int, want int) error {
	if len(values) != want {
		return fmt.Errorf("expected %d integers, got %d", want, len(values))
	}
	for _, v := range values {
		if v < MinChange || v > MaxChange {
			return fmt.Errorf("integer %d outside [%d, %d]", v, MinChange, MaxChange)
		}
	}
	return nil
}

func zeroChanges(symbols []string) map[string]int {
	changes := make(map[string]int, len(symbols))
	for _, s := range symbols {
		changes[s] = 0
	}
	return changes
}

func uniqueSorted(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
