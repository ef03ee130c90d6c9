// Package lock provides non-blocking keyed locks that stop two runners from
// processing the same issuance job at once.
package lock

import (
	"context"
	"sync"

	"coupon-admin/internal/model"
)

// ErrHeld is returned by TryLock when the key is already locked.
var ErrHeld = model.ErrConflict.WithMessage("lock is held by another runner")

// Unlock releases a lock obtained from TryLock.
type Unlock func(ctx context.Context) error

// Locker acquires keyed locks without waiting.
type Locker interface {
	// TryLock takes the lock for key or returns ErrHeld.
	TryLock(ctx context.Context, key string) (Unlock, error)
}

// localLocker holds locks in process memory.
type localLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker returns a Locker scoped to the current process.
func NewLocalLocker() Locker {
	return &localLocker{held: make(map[string]struct{})}
}

func (l *localLocker) TryLock(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, ErrHeld
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
