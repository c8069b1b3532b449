package repository

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tidwall/btree"

	"media-index/internal/logging"
)

// MaxIDLength is the exclusive upper bound on repository id length.
const MaxIDLength = 36

// Registry holds the configured adapters keyed by repository id, in id
// order.
type Registry struct {
	mu       sync.RWMutex
	adapters *btree.Map[string, Adapter]
	closed   bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: btree.NewMap[string, Adapter](0),
	}
}

// ValidateID checks a repository id.
func ValidateID(id string) error {
	if id == "" {
		return Invalid("repository id", nil, "must not be empty")
	}
	if len(id) >= MaxIDLength {
		return Invalid("repository id", id, fmt.Sprintf("must be shorter than %d characters", MaxIDLength))
	}
	return nil
}

// Register adds an adapter. Ids must be valid and unique.
func (r *Registry) Register(a Adapter) error {
	id := a.ID()
	if err := ValidateID(id); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New("registry is closed")
	}
	if _, exists := r.adapters.Get(id); exists {
		return Invalid("repository id", id, "already registered")
	}
	r.adapters.Set(id, a)
	logging.Debug("Registered repository %s (%T)", id, a)
	return nil
}

// Get returns the adapter with the given id, or an error wrapping
// ErrNotFound.
func (r *Registry) Get(id string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: repository %s", ErrNotFound, id)
	}
	return a, nil
}

// Has reports whether a repository id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.adapters.Get(id)
	return ok
}

// IDs returns all registered ids in ascending order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, r.adapters.Len())
	r.adapters.Scan(func(id string, _ Adapter) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

// All returns the registered adapters in id order.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Adapter, 0, r.adapters.Len())
	r.adapters.Scan(func(_ string, a Adapter) bool {
		out = append(out, a)
		return true
	})
	return out
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters.Len()
}

// Close closes every adapter and empties the registry. Further calls are
// no-ops.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	r.adapters.Scan(func(id string, a Adapter) bool {
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close repository %s: %w", id, err))
		}
		return true
	})
	r.adapters.Clear()
	return errors.Join(errs...)
}
