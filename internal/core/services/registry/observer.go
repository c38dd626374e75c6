package registry

import (
	"context"
	"sync"

	"github.com/rangelab/rangectl/internal/core/domain"
)

// SessionObserver is implemented by components interested in session
// updates, typically the presentation layer's push hub.
type SessionObserver interface {
	OnSessionUpdated(ctx context.Context, session domain.Session)
}

// SessionSubject manages observers and notifies them of registry writes.
type SessionSubject struct {
	observers []SessionObserver
	mu        sync.RWMutex
}

// NewSessionSubject creates a new subject.
func NewSessionSubject() *SessionSubject {
	return &SessionSubject{
		observers: make([]SessionObserver, 0),
	}
}

// AddObserver registers a new observer.
func (s *SessionSubject) AddObserver(observer SessionObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

// NotifyUpdated notifies all observers of a session update. Observers run
// in their own goroutine so a slow consumer never blocks the registry.
func (s *SessionSubject) NotifyUpdated(ctx context.Context, session domain.Session) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, obs := range s.observers {
		go obs.OnSessionUpdated(ctx, session)
	}
}
