package quota

import (
	"fmt"
	"sync"
)

// Registry maps api keys to their configured limits.
//
// Enabling a quota for a key that already has one replaces the old
// limit. Disabling is idempotent. Lookups for unknown keys report the
// key as unlimited.
//
// # Thread Safety
//
// Registry is thread-safe using sync.RWMutex.
type Registry struct {
	mu     sync.RWMutex
	limits map[string]Limit
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{limits: make(map[string]Limit)}
}

// Enable sets the limit for an api key, replacing any existing limit.
// The limit is validated first; an invalid limit or an empty key leaves
// the registry unchanged.
func (r *Registry) Enable(apiKey string, limit Limit) error {
	if apiKey == "" {
		return fmt.Errorf("%w: api key must not be empty", ErrInvalidLimit)
	}
	if err := limit.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.limits[apiKey] = limit
	return nil
}

// Disable removes the limit for an api key. Disabling a key with no
// limit is a no-op.
func (r *Registry) Disable(apiKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.limits, apiKey)
}

// Get returns the limit for an api key and whether one is registered.
func (r *Registry) Get(apiKey string) (Limit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	limit, ok := r.limits[apiKey]
	return limit, ok
}

// All returns a copy of every registered limit keyed by api key.
func (r *Registry) All() map[string]Limit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Limit, len(r.limits))
	for key, limit := range r.limits {
		out[key] = limit
	}
	return out
}

// Replace swaps the entire limit set in one step. Every limit is
// validated before any is applied, so a bad entry leaves the previous
// set fully intact.
func (r *Registry) Replace(limits map[string]Limit) error {
	for key, limit := range limits {
		if key == "" {
			return fmt.Errorf("%w: api key must not be empty", ErrInvalidLimit)
		}
		if err := limit.Validate(); err != nil {
			return fmt.Errorf("quota for %q: %w", key, err)
		}
	}

	next := make(map[string]Limit, len(limits))
	for key, limit := range limits {
		next[key] = limit
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.limits = next
	return nil
}

// Len reports the number of keys with enforcement enabled.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.limits)
}
