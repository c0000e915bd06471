package stage

import (
	"sort"
	"strings"
	"sync"

	"reelsmith/internal/services"
)

// Metadata identifies a stage type. Created once at registration time and
// immutable thereafter.
type Metadata struct {
	ID           string
	Name         string
	Description  string
	Category     string
	Dependencies []string
}

// Registry catalogs known stage types by identifier. Safe for concurrent use.
//
// Declared dependencies are not checked against the registry: a stage may name
// a dependency that is registered later or never. Execution order comes from
// the run's step configuration, not from the dependency graph.
type Registry struct {
	mu     sync.RWMutex
	stages map[string]Metadata
}

// NewRegistry returns an empty stage registry.
func NewRegistry() *Registry {
	return &Registry{stages: make(map[string]Metadata)}
}

// Register stores metadata under the given id. It fails with a conflict error
// when the id is empty or already registered.
func (r *Registry) Register(id string, meta Metadata) error {
	if strings.TrimSpace(id) == "" {
		return services.Wrap(services.ErrConflict, "", "register stage", "stage id must not be empty", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stages[id]; exists {
		return services.Wrap(services.ErrConflict, "", "register stage", "stage id already registered: "+id, nil)
	}
	meta.ID = id
	meta.Dependencies = append([]string(nil), meta.Dependencies...)
	r.stages[id] = meta
	return nil
}

// Unregister removes the metadata for id. Removing an unknown id is a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stages, id)
}

// Metadata returns the stored metadata for id and whether it exists.
func (r *Registry) Metadata(id string) (Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.stages[id]
	if ok {
		meta.Dependencies = append([]string(nil), meta.Dependencies...)
	}
	return meta, ok
}

// IsRegistered reports whether id is known to the registry.
func (r *Registry) IsRegistered(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.stages[id]
	return ok
}

// All returns every registered metadata entry sorted by id.
func (r *Registry) All() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]Metadata, 0, len(r.stages))
	for _, meta := range r.stages {
		meta.Dependencies = append([]string(nil), meta.Dependencies...)
		all = append(all, meta)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}
