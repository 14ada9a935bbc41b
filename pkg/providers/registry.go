package providers

import (
	"fmt"
	"sync"

	"github.com/taskdeck/core/errors"
)

// Registry holds the configured adapters in registration order. Order
// matters: the aggregator's all-failed error carries the first registered
// adapter's failure.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	adapters map[string]Adapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter. Registering the same provider name twice is an
// error; replace semantics would silently reorder failure attribution.
func (r *Registry) Register(adapter Adapter) error {
	name := adapter.Name()
	if name == "" {
		return errors.New(errors.ErrCodeInvalidInput, "adapter has no name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[name]; exists {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("provider %q is already registered", name))
	}
	r.adapters[name] = adapter
	r.order = append(r.order, name)
	return nil
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[name]
	if !ok {
		return nil, errors.ProviderUnknown(name)
	}
	return adapter, nil
}

// All returns the adapters in registration order. The slice is a copy;
// callers may not mutate the registry through it.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Adapter, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.adapters[name])
	}
	return out
}

// Names returns the registered provider names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len reports the number of registered adapters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
