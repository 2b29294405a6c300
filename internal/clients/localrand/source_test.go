package localrand

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetIntegers_InRangeAndCoversBounds(t *testing.T) {
	source := NewSeeded(7, 11)

	values, err := source.GetIntegers(context.Background(), 5000, -5, 5)
	require.NoError(t, err)
	require.Len(t, values, 5000)

	seen := map[int]bool{}
	for _, v := range values {
		assert.GreaterOrEqual(t, v, -5)
		assert.LessOrEqual(t, v, 5)
		seen[v] = true
	}
	assert.Len(t, seen, 11, "every value in [-5, 5] should appear")
}

func TestGetIntegers_Deterministic(t *testing.T) {
	a, err := NewSeeded(1, 2).GetIntegers(context.Background(), 20, -5, 5)
	require.NoError(t, err)
	b, err := NewSeeded(1, 2).GetIntegers(context.Background(), 20, -5, 5)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGetIntegers_Errors(t *testing.T) {
	_, err := New().GetIntegers(context.Background(), 1, 5, -5)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New().GetIntegers(ctx, 1, -5, 5)
	assert.ErrorIs(t, err, context.Canceled)
}
