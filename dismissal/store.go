// Package dismissal persists, per identity, which notifications were seen
// (excluded from the unread count only) and which were deleted (hidden from
// every view). Both sets are JSON arrays of identifiers in a key-value store.
package dismissal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/giygas/pharmacy-notifier/events"
	"github.com/giygas/pharmacy-notifier/identity"
	"github.com/giygas/pharmacy-notifier/kvstore"
	"github.com/giygas/pharmacy-notifier/logging"
	"github.com/giygas/pharmacy-notifier/medicines/entities"
)

// Record is the dismissal state of one identity
type Record struct {
	Seen    Set
	Deleted Set
}

func emptyRecord() Record {
	return Record{Seen: NewSet(), Deleted: NewSet()}
}

func (r Record) clone() Record {
	return Record{Seen: r.Seen.Clone(), Deleted: r.Deleted.Clone()}
}

// Store reads and writes dismissal records. All read-modify-write cycles hold
// mu, so two quick dismissals can never overwrite each other.
type Store struct {
	kv  kvstore.KeyValueStore
	bus *events.Bus

	mu        sync.Mutex
	ephemeral Record

	stopWatch    func()
	stopIdentity func()
}

// NewStore creates a dismissal store over kv. When kv implements
// kvstore.Watcher, changes reported by it are republished on bus as
// events.StorageChanged.
func NewStore(kv kvstore.KeyValueStore, bus *events.Bus) *Store {
	s := &Store{
		kv:        kv,
		bus:       bus,
		ephemeral: emptyRecord(),
	}

	if bus != nil {
		if w, ok := kv.(kvstore.Watcher); ok {
			s.stopWatch = w.Watch(func(key string) {
				// Local backends call back while mu is held by the writer
				go bus.Publish(events.Event{Kind: events.StorageChanged, Key: key})
			})
		}
		s.stopIdentity = bus.Subscribe(func(e events.Event) {
			if e.Kind == events.IdentityChanged {
				s.dropEphemeral()
			}
		})
	}

	return s
}

// Close stops forwarding storage and identity notifications
func (s *Store) Close() {
	if s.stopWatch != nil {
		s.stopWatch()
	}
	if s.stopIdentity != nil {
		s.stopIdentity()
	}
}

// Load returns id's record. Missing keys, unreadable storage and corrupt JSON
// all degrade to empty sets. An incomplete identity gets the in-process
// ephemeral record.
func (s *Store) Load(ctx context.Context, id identity.Identity) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !id.Complete() {
		return s.ephemeral.clone()
	}

	seen, err := s.readSet(ctx, Key(KindSeen, id))
	if err != nil {
		logging.Warn("Falling back to empty seen set", "identity", id.String(), "error", err)
		seen = NewSet()
	}

	deleted, err := s.readSet(ctx, Key(KindDeleted, id))
	if err != nil {
		logging.Warn("Falling back to empty deleted set", "identity", id.String(), "error", err)
		deleted = NewSet()
	}

	return Record{Seen: seen, Deleted: deleted}
}

// MarkSeen unions ids into id's seen set
func (s *Store) MarkSeen(ctx context.Context, id identity.Identity, ids []string) error {
	return s.mutate(ctx, id, KindSeen, ids)
}

// MarkDeleted adds itemID to id's deleted set
func (s *Store) MarkDeleted(ctx context.Context, id identity.Identity, itemID string) error {
	if itemID == "" {
		return fmt.Errorf("dismissal: empty notification id")
	}
	return s.mutate(ctx, id, KindDeleted, []string{itemID})
}

func (s *Store) mutate(ctx context.Context, id identity.Identity, kind Kind, ids []string) error {
	s.mu.Lock()

	if !id.Complete() {
		target := s.ephemeral.Seen
		if kind == KindDeleted {
			target = s.ephemeral.Deleted
		}
		target.Union(ids...)
		s.mu.Unlock()
		return nil
	}

	key := Key(kind, id)
	current, err := s.readSet(ctx, key)
	if err != nil {
		if !errors.Is(err, errCorrupt) {
			s.mu.Unlock()
			return fmt.Errorf("dismissal: load %s: %w", kind, err)
		}
		// Corrupt values are replaced rather than kept forever
		logging.Warn("Overwriting corrupt dismissal set", "key", key, "error", err)
		current = NewSet()
	}

	if current.Union(ids...) == 0 && err == nil {
		s.mu.Unlock()
		return nil
	}

	if err := s.writeSet(ctx, key, current); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("dismissal: save %s: %w", kind, err)
	}
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(events.Event{Kind: events.DismissalChanged, Identity: id, Key: key, IDs: ids})
	}
	return nil
}

func (s *Store) dropEphemeral() {
	s.mu.Lock()
	s.ephemeral = emptyRecord()
	s.mu.Unlock()
}

var errCorrupt = errors.New("corrupt dismissal set")

// readSet returns an empty set for a missing key and errCorrupt for undecodable
// values. Caller must hold mu.
func (s *Store) readSet(ctx context.Context, key string) (Set, error) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return NewSet(), nil
		}
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return NewSet(), fmt.Errorf("%w: %s: %v", errCorrupt, key, err)
	}

	set := make(Set, len(items))
	for _, item := range items {
		set.Add(entities.DecodeIdentifier(item))
	}
	return set, nil
}

// writeSet stores set as a sorted JSON array. Caller must hold mu.
func (s *Store) writeSet(ctx context.Context, key string, set Set) error {
	b, err := json.Marshal(set.Sorted())
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key, string(b))
}
