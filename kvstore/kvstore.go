// Package kvstore provides the string key-value storage behind the dismissal
// store, with memory, SQLite and Redis backends. Backends that can observe
// writes made elsewhere also implement Watcher.
package kvstore

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get for a key that was never written
var ErrNotFound = errors.New("kvstore: key not found")

// KeyValueStore is a durable string map
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Watcher is implemented by stores that report changed keys. The callback runs
// on a store-owned goroutine or inline after the write; it must not block.
type Watcher interface {
	Watch(fn func(key string)) (cancel func())
}

// watchers is the subscriber registry shared by all backends
type watchers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(string)
}

func (w *watchers) add(fn func(string)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fns == nil {
		w.fns = make(map[int]func(string))
	}
	id := w.next
	w.next++
	w.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.fns, id)
			w.mu.Unlock()
		})
	}
}

func (w *watchers) notify(key string) {
	w.mu.Lock()
	fns := make([]func(string), 0, len(w.fns))
	for _, fn := range w.fns {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}
