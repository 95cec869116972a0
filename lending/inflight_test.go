package lending

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardRejectsDuplicateInFlight(t *testing.T) {
	g := NewGuard()
	key := BorrowKey("user-1", "book-1")

	require.NoError(t, g.Acquire(key))
	assert.Equal(t, RequestInFlight, KindOf(g.Acquire(key)))

	// independent keys are unaffected
	require.NoError(t, g.Acquire(BorrowKey("user-1", "book-2")))
	require.NoError(t, g.Acquire(BorrowKey("user-2", "book-1")))

	g.Release(key)
	assert.NoError(t, g.Acquire(key))
}

func TestGuardReleaseOnEveryExitPath(t *testing.T) {
	g := NewGuard()
	key := BorrowKey("u", "b")

	attempt := func(fail bool) (err error) {
		if err := g.Acquire(key); err != nil {
			return err
		}
		defer g.Release(key)
		if fail {
			return assert.AnError
		}
		return nil
	}

	require.Error(t, attempt(true))
	// slot must be free again after the failed attempt
	require.NoError(t, attempt(false))
	require.NoError(t, attempt(false))
}

func TestGuardConcurrentAcquire(t *testing.T) {
	g := NewGuard()
	key := BorrowKey("u", "b")

	const n = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Acquire(key) == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// exactly one concurrent request may hold the slot
	assert.Equal(t, 1, won)
}
