package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures the chunks passed to an Action.
type recorder struct {
	chunks [][]int
	failOn int // 1-based call number that fails; 0 never fails
	calls  int
}

func (r *recorder) action(_ context.Context, items []int) error {
	r.calls++
	if r.failOn == r.calls {
		return errors.New("database unavailable")
	}
	chunk := make([]int, len(items))
	copy(chunk, items)
	r.chunks = append(r.chunks, chunk)
	return nil
}

func (r *recorder) sizes() []int {
	sizes := make([]int, len(r.chunks))
	for i, c := range r.chunks {
		sizes[i] = len(c)
	}
	return sizes
}

func TestAccumulator_ChunkBoundaries(t *testing.T) {
	tests := []struct {
		name          string
		size          int
		items         int
		expectedSizes []int
	}{
		{"2500 items in chunks of 1000", 1000, 2500, []int{1000, 1000, 500}},
		{"Exact multiple", 10, 30, []int{10, 10, 10}},
		{"Fewer items than one chunk", 1000, 7, []int{7}},
		{"Single item chunks", 1, 3, []int{1, 1, 1}},
		{"No items", 1000, 0, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			rec := &recorder{}
			acc := New(tt.size, rec.action)

			for i := 0; i < tt.items; i++ {
				require.NoError(t, acc.Add(ctx, i))
			}
			require.NoError(t, acc.Flush(ctx))

			assert.Equal(t, tt.expectedSizes, rec.sizes())
			assert.Equal(t, tt.items, acc.Added())
			assert.Equal(t, tt.items, acc.Flushed())
			assert.Equal(t, len(tt.expectedSizes), acc.Chunks())
			assert.Equal(t, 0, acc.Pending())
		})
	}
}

func TestAccumulator_PreservesOrder(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	acc := New(3, rec.action)

	for i := 0; i < 8; i++ {
		require.NoError(t, acc.Add(ctx, i))
	}
	require.NoError(t, acc.Flush(ctx))

	var flat []int
	for _, c := range rec.chunks {
		flat = append(flat, c...)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, flat)
}

func TestAccumulator_FlushEmptyIsNoop(t *testing.T) {
	rec := &recorder{}
	acc := New(5, rec.action)

	require.NoError(t, acc.Flush(context.Background()))
	require.NoError(t, acc.Flush(context.Background()))

	assert.Equal(t, 0, rec.calls)
}

func TestAccumulator_ActionFailurePropagates(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{failOn: 2}
	acc := New(2, rec.action)

	require.NoError(t, acc.Add(ctx, 1))
	require.NoError(t, acc.Add(ctx, 2)) // first chunk ok
	require.NoError(t, acc.Add(ctx, 3))
	err := acc.Add(ctx, 4) // second chunk fails

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database unavailable")
	assert.Equal(t, 4, acc.Added())
	assert.Equal(t, 2, acc.Flushed())
	assert.Equal(t, 1, acc.Chunks())
	assert.Equal(t, 2, acc.Pending())
}

func TestAccumulator_DefaultSize(t *testing.T) {
	acc := New[string](0, func(context.Context, []string) error { return nil })
	assert.Equal(t, DefaultSize, acc.Size())
}

func TestAccumulator_ChunkNotReused(t *testing.T) {
	ctx := context.Background()
	var kept [][]int
	acc := New(2, func(_ context.Context, items []int) error {
		kept = append(kept, items)
		return nil
	})

	for i := 0; i < 4; i++ {
		require.NoError(t, acc.Add(ctx, i))
	}

	require.Len(t, kept, 2)
	assert.Equal(t, []int{0, 1}, kept[0])
	assert.Equal(t, []int{2, 3}, kept[1])
}
