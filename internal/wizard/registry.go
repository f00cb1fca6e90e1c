package wizard

import (
	"sync"
	"time"

	appErrors "github.com/unclebandit/newsletter-backoffice/internal/errors"
)

// Registry holds the open sessions by id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Controller
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Controller)}
}

func (r *Registry) Add(w *Controller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[w.ID()] = w
}

func (r *Registry) Get(id string) (*Controller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.sessions[id]
	if !ok {
		return nil, appErrors.ErrWizardNotFound
	}
	return w, nil
}

// Remove closes and forgets the session.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	w, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return appErrors.ErrWizardNotFound
	}
	w.Close()
	return nil
}

// Prune closes sessions idle for longer than idle and returns how many.
func (r *Registry) Prune(now time.Time, idle time.Duration) int {
	r.mu.Lock()
	var stale []*Controller
	for id, w := range r.sessions {
		if now.Sub(w.LastActivity()) > idle {
			stale = append(stale, w)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for _, w := range stale {
		w.Close()
	}
	return len(stale)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
