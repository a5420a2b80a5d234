package atomicfile

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrLockTimeout indicates acquiring a path lock was canceled or timed out.
var ErrLockTimeout = errors.New("lock acquire timeout")

// Locker hands out one mutex per key (typically a file path). Keys are few
// and long-lived, so entries are never evicted.
type Locker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocker returns an empty Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]chan struct{})}
}

func (l *Locker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	return ch
}

// Lock blocks until key is held or ctx is done. The returned func releases
// the lock and must be called exactly once.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
	}
}
