package kvstore

import (
	"context"
	"sync"
)

// Compile-time checks
var (
	_ KeyValueStore = (*MemoryStore)(nil)
	_ Watcher       = (*MemoryStore)(nil)
)

// MemoryStore keeps values in process. Watchers are told about every Set,
// which lets several dismissal stores sharing one MemoryStore observe each other.
type MemoryStore struct {
	mu       sync.RWMutex
	values   map[string]string
	watchers watchers
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value for key or ErrNotFound
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value under key
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()

	s.watchers.notify(key)
	return nil
}

// Watch registers fn for change notifications
func (s *MemoryStore) Watch(fn func(key string)) func() {
	return s.watchers.add(fn)
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
