// Package localrand provides an in-process pseudo-random source for offline runs and tests.
package localrand

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
)

// Source draws integers from a PCG generator
type Source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a source seeded from the runtime's random state
func New() *Source {
	return &Source{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeeded creates a deterministic source
func NewSeeded(seed1, seed2 uint64) *Source {
	return &Source{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

// GetIntegers returns count integers drawn uniformly from [min, max]
func (s *Source) GetIntegers(ctx context.Context, count, min, max int) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if min > max {
		return nil, fmt.Errorf("invalid range [%d, %d]", min, max)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values := make([]int, count)
	for i := range values {
		values[i] = min + s.rng.IntN(max-min+1)
	}
	return values, nil
}
