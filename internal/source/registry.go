package source

import "fmt"

// Registry maps configured source names to their Adapter implementation.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds an empty registry. Configs are registered via
// Register; adapters whose Initialize() fails remain registered but
// report Enabled() == false, so the scheduler and status endpoints can
// still see them.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register constructs the adapter for name/cfg, initializes it, and adds
// it to the registry regardless of whether initialization succeeded.
func (r *Registry) Register(name string, cfg Config) error {
	a, err := New(name, cfg)
	if err != nil {
		return fmt.Errorf("source: register %q: %w", name, err)
	}
	a.Initialize()
	r.adapters[name] = a
	return nil
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns every registered source name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}

// All returns every registered adapter, keyed by name.
func (r *Registry) All() map[string]Adapter {
	return r.adapters
}
