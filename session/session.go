// Package session holds the identity of the logged-in user. It stands in for
// the auth collaborator: login, logout and user switches go through here and
// are announced on the event bus.
package session

import (
	"sync"

	"github.com/giygas/pharmacy-notifier/events"
	"github.com/giygas/pharmacy-notifier/identity"
	"github.com/giygas/pharmacy-notifier/logging"
)

// Session is the current-identity holder
type Session struct {
	mu      sync.RWMutex
	current identity.Identity
	bus     *events.Bus
}

// New creates a logged-out session
func New(bus *events.Bus) *Session {
	return &Session{bus: bus}
}

// Current returns the identity and whether someone is logged in
func (s *Session) Current() (identity.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current.Complete()
}

// Set logs in id. Setting the identity that is already current is a no-op
// apart from refreshing the username.
func (s *Session) Set(id identity.Identity) {
	s.mu.Lock()
	previous := s.current
	s.current = id
	s.mu.Unlock()

	if previous.Same(id) {
		return
	}

	logging.Info("Session identity changed", "from", previous.String(), "to", id.String())
	s.publish(previous, id)
}

// Clear logs out
func (s *Session) Clear() {
	s.Set(identity.Identity{})
}

func (s *Session) publish(previous, current identity.Identity) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{
		Kind:     events.IdentityChanged,
		Identity: current,
		Previous: previous,
	})
}
