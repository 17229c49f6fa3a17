// Package registry provides the name-keyed lookup tables the engine is
// configured with: view types, client action tags, action kinds.
//
// Registries are constructed once at startup and passed by reference; there
// is no package-level state.
package registry

import (
	"fmt"
	"slices"
	"sync"

	"nathanbeddoewebdev/actionmgr/internal/util"
)

// Registry maps normalized names to entries of type T.
type Registry[T any] struct {
	kind    string
	mu      sync.RWMutex
	entries map[string]T
}

// New returns an empty registry. kind names the entries in panic and error
// messages, e.g. "view type".
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, entries: map[string]T{}}
}

// Register adds an entry. Empty or duplicate names are programming errors
// and panic.
func (r *Registry[T]) Register(name string, entry T) {
	key := util.NormalizeKey(name)
	if key == "" {
		panic(fmt.Sprintf("registry: empty %s name", r.kind))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; exists {
		panic(fmt.Sprintf("registry: %s %q already registered", r.kind, name))
	}
	r.entries[key] = entry
}

// Get returns the entry registered under name.
func (r *Registry[T]) Get(name string) (T, bool) {
	key := util.NormalizeKey(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[key]
	return entry, ok
}

// MustGet is Get returning an error naming the missing entry.
func (r *Registry[T]) MustGet(name string) (T, error) {
	entry, ok := r.Get(name)
	if !ok {
		var zero T
		return zero, fmt.Errorf("registry: unknown %s %q", r.kind, name)
	}
	return entry, nil
}

// Contains reports whether name is registered.
func (r *Registry[T]) Contains(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
