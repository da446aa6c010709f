package service

import (
	"context"
	"sync"
)

// ExportedBusyGuard is an exported alias so _test packages can test the guard.
type ExportedBusyGuard = busyGuard

// ─────────────────────────────────────────────────────────────
// busyGuard: one writer per output target
// ─────────────────────────────────────────────────────────────

// busyGuard ensures only one run writes a given output target at a time.
// Targets are location strings: a document path or a library/dataset pair.
type busyGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock attempts to mark target as busy. Returns false if another run
// already holds it.
func (g *busyGuard) TryLock(target string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[target]; ok {
		return false
	}
	g.running[target] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock releases target. Must be called after TryLock returns true.
func (g *busyGuard) Unlock(target string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, target)
	g.wg.Done()
}

// WaitAll blocks until all current runs complete or ctx is cancelled.
func (g *busyGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
