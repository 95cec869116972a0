package lending

import (
	"fmt"
	"sync"
)

// Guard deduplicates in-flight requests per resource key: a second
// borrow for the same (user, book) is rejected while the first is
// still outstanding. Callers must defer Release right after a
// successful Acquire so the slot is freed on every exit path.
type Guard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{busy: make(map[string]struct{})}
}

func BorrowKey(userID, bookID string) string {
	return fmt.Sprintf("borrow:%s:%s", userID, bookID)
}

func (g *Guard) Acquire(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.busy[key]; held {
		return ErrRequestInFlight
	}
	g.busy[key] = struct{}{}
	return nil
}

func (g *Guard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, key)
}
