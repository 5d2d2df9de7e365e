// Package lock provides keyed in-process locks. The engine uses one
// KeyedLock per resource kind: matches serialize draws and round changes,
// wallets serialize balance mutations.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a lock cannot be acquired within the timeout period.
var ErrLockTimeout = errors.New("lock acquisition timeout")

// entry is a channel-based mutex so waiting can be abandoned on context
// cancellation. refs counts holders plus waiters; the entry is dropped from
// the map when it reaches zero.
type entry struct {
	ch   chan struct{}
	refs int
}

// KeyedLock provides one mutex per int64 key.
type KeyedLock struct {
	mu    sync.Mutex
	locks map[int64]*entry
}

// NewKeyedLock creates a new KeyedLock instance.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{locks: make(map[int64]*entry)}
}

func (l *KeyedLock) acquire(key int64) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	return e
}

func (l *KeyedLock) release(key int64, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// Lock acquires the lock for key, blocking until it is available.
func (l *KeyedLock) Lock(key int64) {
	e := l.acquire(key)
	e.ch <- struct{}{}
}

// Unlock releases the lock for key. Unlocking a key that is not locked is a no-op.
func (l *KeyedLock) Unlock(key int64) {
	l.mu.Lock()
	e, ok := l.locks[key]
	l.mu.Unlock()
	if !ok {
		return
	}

	select {
	case <-e.ch:
		l.release(key, e)
	default:
	}
}

// TryLock attempts to acquire the lock without blocking.
func (l *KeyedLock) TryLock(key int64) bool {
	e := l.acquire(key)
	select {
	case e.ch <- struct{}{}:
		return true
	default:
		l.release(key, e)
		return false
	}
}

// LockContext acquires the lock for key or gives up when ctx is done.
func (l *KeyedLock) LockContext(ctx context.Context, key int64) error {
	e := l.acquire(key)
	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.release(key, e)
		return ctx.Err()
	}
}

// WithLock runs fn while holding the lock for key. A positive timeout bounds
// the wait and turns an expired wait into ErrLockTimeout.
func (l *KeyedLock) WithLock(ctx context.Context, key int64, timeout time.Duration, fn func() error) error {
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := l.LockContext(waitCtx, key); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return ErrLockTimeout
		}
		return err
	}
	defer l.Unlock(key)

	return fn()
}

// IsLocked reports whether key is currently held.
// This is a point-in-time check and may change immediately after.
func (l *KeyedLock) IsLocked(key int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.locks[key]
	return ok && len(e.ch) == 1
}

// Len returns the number of keys with holders or waiters.
func (l *KeyedLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
