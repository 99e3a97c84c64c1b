package workflow

import "sync"

// ActivationGuard rejects a second activation for the same user and plan
// while the first one is still in flight.
type ActivationGuard struct {
	mu       sync.Mutex
	inflight map[activationKey]struct{}
}

type activationKey struct {
	userID   string
	planType string
}

// NewActivationGuard returns an empty guard.
func NewActivationGuard() *ActivationGuard {
	return &ActivationGuard{inflight: make(map[activationKey]struct{})}
}

// TryAcquire marks (userID, planType) as in flight. It returns false when
// an activation for the same key has not been released yet.
func (g *ActivationGuard) TryAcquire(userID, planType string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	k := activationKey{userID, planType}
	if _, busy := g.inflight[k]; busy {
		return false
	}
	g.inflight[k] = struct{}{}
	return true
}

// Release clears the in-flight mark for (userID, planType).
func (g *ActivationGuard) Release(userID, planType string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, activationKey{userID, planType})
}

// InFlight reports whether any activation is pending.
func (g *ActivationGuard) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight) > 0
}
