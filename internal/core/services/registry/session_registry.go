package registry

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rangelab/rangectl/internal/core/domain"
)

// sessionEntry pairs one role's session with its own lock and the stamp of
// the last applied write. There is no cross-role invariant to maintain, so
// per-role locking suffices; no global lock is taken on the hot path.
type sessionEntry struct {
	mu      sync.Mutex
	session domain.Session
	stamp   uint64
}

// SessionRegistry implements ports.SessionRegistry. It is created once when
// a scenario view is entered, with every role inactive, and holds exactly
// one session per role until teardown. Sessions are never deleted, only
// reset to the inactive state.
type SessionRegistry struct {
	entries map[domain.Role]*sessionEntry
	subject *SessionSubject

	// seq is the source of monotonic stamps used to discard corrections
	// that arrive after a newer write.
	seq atomic.Uint64

	// closed makes every write a no-op after view teardown.
	closed atomic.Bool
}

// NewSessionRegistry creates a registry for a fixed role set. No role may
// be invented or dropped afterwards.
func NewSessionRegistry(roles []domain.Role) *SessionRegistry {
	r := &SessionRegistry{
		entries: make(map[domain.Role]*sessionEntry, len(roles)),
		subject: NewSessionSubject(),
	}
	for _, role := range roles {
		r.entries[role] = &sessionEntry{
			session: domain.Session{Role: role},
		}
	}
	return r
}

// Subject exposes the observer registration point for the presentation layer.
func (r *SessionRegistry) Subject() *SessionSubject {
	return r.subject
}

// Roles returns the fixed role set, sorted for deterministic iteration.
func (r *SessionRegistry) Roles() []domain.Role {
	roles := make([]domain.Role, 0, len(r.entries))
	for role := range r.entries {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// Get returns a copy of one role's session.
func (r *SessionRegistry) Get(role domain.Role) (domain.Session, bool) {
	e, ok := r.entries[role]
	if !ok {
		return domain.Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session, true
}

// Snapshot returns a copy of every session, keyed by role.
func (r *SessionRegistry) Snapshot() map[domain.Role]domain.Session {
	out := make(map[domain.Role]domain.Session, len(r.entries))
	for role, e := range r.entries {
		e.mu.Lock()
		out[role] = e.session
		e.mu.Unlock()
	}
	return out
}

// NextStamp reserves a stamp for a correction about to be gathered from an
// authoritative source. Reserve before issuing the call; any local write
// that lands in between makes the correction stale.
func (r *SessionRegistry) NextStamp() uint64 {
	return r.seq.Add(1)
}

// Update applies a patch with a fresh stamp. Local writes always win over
// corrections reserved earlier.
func (r *SessionRegistry) Update(role domain.Role, patch domain.SessionPatch) (domain.Session, error) {
	if r.closed.Load() {
		return domain.Session{}, domain.ErrRegistryClosed
	}
	e, ok := r.entries[role]
	if !ok {
		return domain.Session{}, domain.ErrUnknownRole
	}

	e.mu.Lock()
	merge(&e.session, patch)
	e.stamp = r.seq.Add(1)
	updated := e.session
	e.mu.Unlock()

	r.subject.NotifyUpdated(context.Background(), updated)
	return updated, nil
}

// ApplyCorrection applies a patch only if no write for the role landed
// after the given stamp was reserved. A delayed poll response must not
// overwrite a more recent event-driven update.
func (r *SessionRegistry) ApplyCorrection(role domain.Role, patch domain.SessionPatch, stamp uint64) error {
	if r.closed.Load() {
		return domain.ErrRegistryClosed
	}
	e, ok := r.entries[role]
	if !ok {
		return domain.ErrUnknownRole
	}

	e.mu.Lock()
	if e.stamp > stamp {
		e.mu.Unlock()
		return domain.ErrStaleCorrection
	}
	merge(&e.session, patch)
	e.stamp = r.seq.Add(1)
	updated := e.session
	e.mu.Unlock()

	r.subject.NotifyUpdated(context.Background(), updated)
	return nil
}

// Reset returns one role's session to the initial inactive state.
func (r *SessionRegistry) Reset(role domain.Role) error {
	if r.closed.Load() {
		return domain.ErrRegistryClosed
	}
	e, ok := r.entries[role]
	if !ok {
		return domain.ErrUnknownRole
	}

	e.mu.Lock()
	e.session = domain.Session{Role: role, Window: e.session.Window}
	e.stamp = r.seq.Add(1)
	updated := e.session
	e.mu.Unlock()

	r.subject.NotifyUpdated(context.Background(), updated)
	return nil
}

// ResetAll returns every role to the initial inactive state. Used by
// disconnect-all and by the bulk_disconnect_complete event; fail-safe
// toward "assume disconnected".
func (r *SessionRegistry) ResetAll() {
	for _, role := range r.Roles() {
		_ = r.Reset(role)
	}
}

// Seed overwrites token validity from server-reported role config. Only
// roles the registry was initialized with are touched; hasActiveToken is
// a confirmed gateway flag, so setting hasValidToken here is legitimate.
func (r *SessionRegistry) Seed(status domain.SystemStatus) {
	for role, cfg := range status.Roles {
		e, ok := r.entries[role]
		if !ok {
			continue
		}
		if r.closed.Load() {
			return
		}
		e.mu.Lock()
		e.session.HasValidToken = cfg.HasActiveToken
		e.stamp = r.seq.Add(1)
		updated := e.session
		e.mu.Unlock()
		r.subject.NotifyUpdated(context.Background(), updated)
	}
}

// TouchActivity updates lastActivity for every currently active role.
// Operator activity is evidence the user is present, not which window is
// focused, so all active roles are touched.
func (r *SessionRegistry) TouchActivity(now time.Time) {
	if r.closed.Load() {
		return
	}
	for _, e := range r.entries {
		e.mu.Lock()
		if e.session.IsActive {
			e.session.LastActivity = now
			e.stamp = r.seq.Add(1)
		}
		e.mu.Unlock()
	}
}

// Close marks the registry torn down. In-flight gateway calls may still
// complete afterwards; their registry writes become no-ops.
func (r *SessionRegistry) Close() {
	r.closed.Store(true)
}

// merge applies non-nil patch fields onto a session.
func merge(s *domain.Session, p domain.SessionPatch) {
	if p.IsActive != nil {
		s.IsActive = *p.IsActive
	}
	if p.HasValidToken != nil {
		s.HasValidToken = *p.HasValidToken
	}
	if p.Token != nil {
		s.Token = *p.Token
	}
	if p.ConnectionURL != nil {
		s.ConnectionURL = *p.ConnectionURL
	}
	if p.LastActivity != nil {
		s.LastActivity = *p.LastActivity
	}
	if p.Window != nil {
		s.Window = *p.Window
	}
}
