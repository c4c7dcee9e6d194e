// Package events provides the in-process observer that keeps the notifier in
// step with identity switches, dismissals, storage changes and new snapshots.
package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/giygas/pharmacy-notifier/identity"
	"github.com/giygas/pharmacy-notifier/logging"
	"github.com/google/uuid"
)

// Kind names an event type
type Kind string

const (
	// IdentityChanged fires on login, logout and user switch
	IdentityChanged Kind = "identity.changed"
	// DismissalChanged fires after seen or deleted sets were written in this process
	DismissalChanged Kind = "dismissal.changed"
	// StorageChanged fires when the key-value store reports a write from elsewhere
	StorageChanged Kind = "storage.changed"
	// SnapshotUpdated fires after a new medicine snapshot was applied
	SnapshotUpdated Kind = "snapshot.updated"
)

// Event is the payload delivered to subscribers. Only the fields relevant to
// the Kind are set.
type Event struct {
	Kind     Kind
	Identity identity.Identity
	Previous identity.Identity
	Key      string
	IDs      []string
	At       time.Time
}

// Subscriber is a callback invoked when an event is published.
type Subscriber func(Event)

type subscription struct {
	id string
	fn Subscriber
}

// Bus is a synchronous in-process event bus. Publish calls every subscriber
// inline, in subscription order.
type Bus struct {
	mu          sync.Mutex
	subscribers []subscription
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a func that removes it
func (b *Bus) Subscribe(fn Subscriber) (unsubscribe func()) {
	id := uuid.NewString()

	b.mu.Lock()
	b.subscribers = append(b.subscribers, subscription{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subscribers {
			if s.id == id {
				b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Publish dispatches e to all subscribers. A panicking subscriber is logged and
// does not stop delivery to the others.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.Lock()
	subs := make([]subscription, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.Unlock()

	for _, s := range subs {
		b.dispatch(s, e)
	}
}

func (b *Bus) dispatch(s subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Event subscriber panicked",
				"event", string(e.Kind),
				"subscriber", s.id,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	s.fn(e)
}

// Len returns the number of subscribers
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
