package version

import (
	"context"
	"sync"
	"time"

	"promptlab/internal/httpx"
)

// Guard serializes mutating operations per prompt. Operations on
// different prompts run fully in parallel; waiters on the same prompt
// queue up and fail with a busy error once the timeout elapses instead
// of blocking indefinitely.
type Guard struct {
	mu      sync.Mutex
	timeout time.Duration
	entries map[string]*guardEntry
}

type guardEntry struct {
	sem  chan struct{}
	refs int
}

// NewGuard creates a guard with the given acquisition timeout
func NewGuard(timeout time.Duration) *Guard {
	return &Guard{
		timeout: timeout,
		entries: make(map[string]*guardEntry),
	}
}

// Acquire takes the lock for a prompt. On success it returns a release
// function that must be called exactly once. On timeout or context
// cancellation it returns a busy error.
func (g *Guard) Acquire(ctx context.Context, promptID string) (func(), error) {
	g.mu.Lock()
	entry, ok := g.entries[promptID]
	if !ok {
		entry = &guardEntry{sem: make(chan struct{}, 1)}
		g.entries[promptID] = entry
	}
	entry.refs++
	g.mu.Unlock()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case entry.sem <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() {
				<-entry.sem
				g.unref(promptID, entry)
			})
		}
		return release, nil
	case <-timer.C:
		g.unref(promptID, entry)
		return nil, httpx.ErrBusy("prompt is locked by another operation")
	case <-ctx.Done():
		g.unref(promptID, entry)
		return nil, httpx.ErrBusy("canceled while waiting for prompt lock")
	}
}

// unref drops a reference and removes the entry once idle, so the map
// does not grow with every prompt id ever seen
func (g *Guard) unref(promptID string, entry *guardEntry) {
	g.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(g.entries, promptID)
	}
	g.mu.Unlock()
}
