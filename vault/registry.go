package vault

import (
	"fmt"
	"sort"
	"sync"

	"savesync/saveport"
)

// Registry holds every registered saveable keyed by its globally unique
// key and groups them by the file they persist into.
//
// Entries live for the process lifetime; there is no unregister.
type Registry struct {
	mu     sync.RWMutex
	byKey  map[string]saveport.Saveable
	byFile map[string][]saveport.Saveable // registration order, stable for tests
}

// NewRegistry returns an empty registry. Construct one per vault (or share
// across vaults in tests); there is deliberately no package-level instance.
func NewRegistry() *Registry {
	return &Registry{
		byKey:  make(map[string]saveport.Saveable),
		byFile: make(map[string][]saveport.Saveable),
	}
}

// Register stores a saveable. A duplicate key is rejected and the existing
// registration is left untouched.
func (r *Registry) Register(s saveport.Saveable) error {
	key, file := s.Key(), s.Filename()
	if key == "" {
		return fmt.Errorf("register: empty save key")
	}
	if file == "" {
		return fmt.Errorf("register %q: empty filename", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byKey[key]; exists {
		return fmt.Errorf("register %q: %w", key, ErrDuplicateKey)
	}
	r.byKey[key] = s
	r.byFile[file] = append(r.byFile[file], s)
	return nil
}

// Lookup returns the saveable registered under key.
func (r *Registry) Lookup(key string) (saveport.Saveable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byKey[key]
	return s, ok
}

// ForFile returns the saveables grouped under filename, in registration
// order.
func (r *Registry) ForFile(filename string) []saveport.Saveable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]saveport.Saveable, len(r.byFile[filename]))
	copy(out, r.byFile[filename])
	return out
}

// Files returns every in-use filename, sorted for determinism.
func (r *Registry) Files() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byFile))
	for f := range r.byFile {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered saveables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}
