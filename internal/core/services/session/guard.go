package session

import (
	"sync"

	"github.com/rangelab/rangectl/internal/core/domain"
)

// roleGuard serializes gateway calls per role: no second call is issued
// for a role while one is outstanding. Operations on different roles stay
// fully independent.
type roleGuard struct {
	mu   sync.Mutex
	busy map[domain.Role]bool
}

func newRoleGuard() *roleGuard {
	return &roleGuard{busy: make(map[domain.Role]bool)}
}

func (g *roleGuard) acquire(role domain.Role) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy[role] {
		return false
	}
	g.busy[role] = true
	return true
}

// acquireAll claims every role at once for a bulk operation. Either all
// roles are claimed or none.
func (g *roleGuard) acquireAll(roles []domain.Role) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, role := range roles {
		if g.busy[role] {
			return false
		}
	}
	for _, role := range roles {
		g.busy[role] = true
	}
	return true
}

func (g *roleGuard) release(roles ...domain.Role) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, role := range roles {
		delete(g.busy, role)
	}
}
