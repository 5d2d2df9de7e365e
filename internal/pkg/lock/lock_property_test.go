package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// TestConcurrentCounterSafetyProperty: read-modify-write under WithLock
// matches sequential execution.
func TestConcurrentCounterSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(0, 100000).Draw(t, "initial")
		numOps := rapid.IntRange(2, 30).Draw(t, "numOps")
		key := rapid.Int64Range(1, 1000000).Draw(t, "key")

		amounts := make([]int64, numOps)
		expected := initial
		for i := range amounts {
			amounts[i] = rapid.Int64Range(-500, 500).Draw(t, "amount")
			expected += amounts[i]
		}

		kl := NewKeyedLock()
		value := initial

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, amount := range amounts {
			go func(amount int64) {
				defer wg.Done()
				_ = kl.WithLock(context.Background(), key, 0, func() error {
					value += amount
					return nil
				})
			}(amount)
		}
		wg.Wait()

		if value != expected {
			t.Fatalf("expected %d, got %d", expected, value)
		}
		if kl.Len() != 0 {
			t.Fatalf("expected no retained keys, got %d", kl.Len())
		}
	})
}

// TestIndependentKeysProperty: locks on different keys do not interfere.
func TestIndependentKeysProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numKeys := rapid.IntRange(2, 10).Draw(t, "numKeys")
		opsPerKey := rapid.IntRange(5, 20).Draw(t, "opsPerKey")

		kl := NewKeyedLock()
		counters := make([]int, numKeys)

		var wg sync.WaitGroup
		wg.Add(numKeys * opsPerKey)
		for k := 0; k < numKeys; k++ {
			for j := 0; j < opsPerKey; j++ {
				go func(k int) {
					defer wg.Done()
					kl.Lock(int64(k))
					defer kl.Unlock(int64(k))
					counters[k]++
				}(k)
			}
		}
		wg.Wait()

		for k, c := range counters {
			if c != opsPerKey {
				t.Fatalf("key %d: expected %d, got %d", k, opsPerKey, c)
			}
		}
	})
}

// TestLockUnlockSymmetryProperty: after symmetric cycles the key is free.
func TestLockUnlockSymmetryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.Int64Range(1, 1000000).Draw(t, "key")
		cycles := rapid.IntRange(1, 50).Draw(t, "cycles")

		kl := NewKeyedLock()
		for i := 0; i < cycles; i++ {
			kl.Lock(key)
			kl.Unlock(key)
		}

		if !kl.TryLock(key) {
			t.Fatal("lock should be available after symmetric cycles")
		}
		kl.Unlock(key)
	})
}

func TestTryLock_HeldKey(t *testing.T) {
	kl := NewKeyedLock()
	kl.Lock(1)

	assert.True(t, kl.IsLocked(1))
	assert.False(t, kl.TryLock(1))
	assert.True(t, kl.TryLock(2))

	kl.Unlock(1)
	kl.Unlock(2)
	assert.False(t, kl.IsLocked(1))
	assert.Equal(t, 0, kl.Len())
}

func TestWithLock_Timeout(t *testing.T) {
	kl := NewKeyedLock()
	kl.Lock(7)
	defer kl.Unlock(7)

	called := false
	err := kl.WithLock(context.Background(), 7, 20*time.Millisecond, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, called)
}

func TestWithLock_CancelledContext(t *testing.T) {
	kl := NewKeyedLock()
	kl.Lock(7)
	defer kl.Unlock(7)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := kl.WithLock(ctx, 7, time.Second, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithLock_SerializesCriticalSection(t *testing.T) {
	kl := NewKeyedLock()
	var inside, maxInside atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := kl.WithLock(context.Background(), 3, time.Second, func() error {
				n := inside.Add(1)
				if n > maxInside.Load() {
					maxInside.Store(n)
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
}

func TestUnlock_UnknownKeyIsNoop(t *testing.T) {
	kl := NewKeyedLock()
	assert.NotPanics(t, func() { kl.Unlock(99) })
}
