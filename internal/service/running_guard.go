package service

import (
	"context"
	"sync"
)

// runGuard serializes runs of the same export job while letting
// different jobs run concurrently.
type runGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
	idle   chan struct{} // closed and replaced each time a run finishes
}

// TryLock claims jobID for a run. It returns false when a run of the
// same job is already in flight.
func (g *runGuard) TryLock(jobID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == nil {
		g.active = make(map[string]struct{})
	}
	if _, running := g.active[jobID]; running {
		return false
	}
	g.active[jobID] = struct{}{}
	return true
}

// Unlock releases jobID. Call only after a successful TryLock.
func (g *runGuard) Unlock(jobID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, jobID)
	if g.idle != nil {
		close(g.idle)
		g.idle = nil
	}
}

// WaitAll blocks until every active run has released its lock or ctx
// expires.
func (g *runGuard) WaitAll(ctx context.Context) {
	for {
		g.mu.Lock()
		if len(g.active) == 0 {
			g.mu.Unlock()
			return
		}
		if g.idle == nil {
			g.idle = make(chan struct{})
		}
		wake := g.idle
		g.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return
		}
	}
}
