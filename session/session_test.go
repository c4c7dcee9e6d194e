package session

import (
	"testing"

	"github.com/giygas/pharmacy-notifier/events"
	"github.com/giygas/pharmacy-notifier/identity"
)

func TestSessionLifecycle(t *testing.T) {
	bus := events.NewBus()
	var changes []events.Event
	bus.Subscribe(func(e events.Event) { changes = append(changes, e) })

	s := New(bus)

	if _, ok := s.Current(); ok {
		t.Fatal("New session should be logged out")
	}

	alice := identity.Identity{Role: "admin", UserID: "1", Username: "alice"}
	s.Set(alice)

	got, ok := s.Current()
	if !ok || !got.Same(alice) {
		t.Fatalf("Expected alice to be logged in, got %+v", got)
	}

	// Same identity again: no event
	s.Set(identity.Identity{Role: "admin", UserID: "1", Username: "alice2"})

	s.Clear()
	if _, ok := s.Current(); ok {
		t.Error("Clear should log out")
	}

	if len(changes) != 2 {
		t.Fatalf("Expected 2 identity events, got %d", len(changes))
	}
	if !changes[0].Identity.Same(alice) || changes[0].Previous.Complete() {
		t.Errorf("Unexpected login event %+v", changes[0])
	}
	if changes[1].Identity.Complete() || !changes[1].Previous.Same(alice) {
		t.Errorf("Unexpected logout event %+v", changes[1])
	}
}

func TestSessionWithoutBus(t *testing.T) {
	s := New(nil)
	s.Set(identity.Identity{Role: "cashier", UserID: "9"})

	if _, ok := s.Current(); !ok {
		t.Error("Session should work without a bus")
	}
}
