package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the configured providers by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a registry holding ps
func NewRegistry(ps ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range ps {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a provider
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns the provider registered under name
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
	}
	return p, nil
}

// Resolve returns the provider owning repositoryURL. The URL must resolve to
// exactly one provider.
func (r *Registry) Resolve(repositoryURL string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var match Provider
	for _, name := range r.namesLocked() {
		p := r.providers[name]
		if !p.MatchesURL(repositoryURL) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("%w: %s matches both %s and %s", ErrUnsupportedProvider, repositoryURL, match.Name(), name)
		}
		match = p
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, repositoryURL)
	}
	return match, nil
}

// Names returns the registered provider names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
