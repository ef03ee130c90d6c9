// Package batch groups items into fixed-size chunks and hands each chunk to a
// persistence action, so callers decide what a chunk is used for.
package batch

import (
	"context"
	"fmt"
)

// DefaultSize is the chunk size used when none is configured.
const DefaultSize = 1000

// Action persists one chunk. The slice is owned by the action for the
// duration of the call and is not reused by the accumulator afterwards.
type Action[T any] func(ctx context.Context, items []T) error

// Accumulator buffers items and invokes its action once the buffer reaches
// the configured size, or when Flush is called. It is not safe for
// concurrent use; one accumulator belongs to one run.
type Accumulator[T any] struct {
	size    int
	action  Action[T]
	buf     []T
	added   int
	flushed int
	chunks  int
}

// New creates an accumulator that flushes every size items.
func New[T any](size int, action Action[T]) *Accumulator[T] {
	if size <= 0 {
		size = DefaultSize
	}
	return &Accumulator[T]{
		size:   size,
		action: action,
		buf:    make([]T, 0, size),
	}
}

// Add appends item and flushes synchronously when the buffer is full.
func (a *Accumulator[T]) Add(ctx context.Context, item T) error {
	a.buf = append(a.buf, item)
	a.added++
	if len(a.buf) >= a.size {
		return a.Flush(ctx)
	}
	return nil
}

// Flush hands the buffered items to the action. An empty buffer is a no-op.
// When the action fails the error is returned and the failed chunk stays
// buffered; nothing is retried.
func (a *Accumulator[T]) Flush(ctx context.Context) error {
	if len(a.buf) == 0 {
		return nil
	}
	if err := a.action(ctx, a.buf); err != nil {
		return fmt.Errorf("failed to flush chunk %d (%d items): %w", a.chunks+1, len(a.buf), err)
	}
	a.flushed += len(a.buf)
	a.chunks++
	a.buf = make([]T, 0, a.size)
	return nil
}

// Size returns the configured chunk size.
func (a *Accumulator[T]) Size() int { return a.size }

// Pending returns the number of buffered, unflushed items.
func (a *Accumulator[T]) Pending() int { return len(a.buf) }

// Added returns the number of items accepted by Add.
func (a *Accumulator[T]) Added() int { return a.added }

// Flushed returns the number of items in chunks whose action succeeded.
func (a *Accumulator[T]) Flushed() int { return a.flushed }

// Chunks returns the number of successful action calls.
func (a *Accumulator[T]) Chunks() int { return a.chunks }
