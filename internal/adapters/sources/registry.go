package sources

import (
	"sort"
	"sync"

	"github.com/motorvalue/vehicle-valuation/internal/domain/providers"
)

// Registry holds the secondary listing sources. Sources register lazily,
// on the first aggregation pass that needs them, so a request satisfied
// by the primary source never pays their initialization cost.
// Registration is idempotent per source name.
type Registry struct {
	mu      sync.Mutex
	sources map[string]providers.ListingSource
}

// NewRegistry creates an empty source registry
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]providers.ListingSource),
	}
}

// Register adds a source; registering the same name twice is a no-op
func (r *Registry) Register(source providers.ListingSource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[source.Name()]; exists {
		return
	}
	r.sources[source.Name()] = source
}

// ListByPriority returns all registered sources in ascending priority order
func (r *Registry) ListByPriority() []providers.ListingSource {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]providers.ListingSource, 0, len(r.sources))
	for _, source := range r.sources {
		list = append(list, source)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Priority() != list[j].Priority() {
			return list[i].Priority() < list[j].Priority()
		}
		return list[i].Name() < list[j].Name()
	})
	return list
}

// Len returns the number of registered sources
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sources)
}
