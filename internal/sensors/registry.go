package sensors

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Registry holds presets indexed by ID.
type Registry struct {
	mu      sync.RWMutex
	presets map[string]Preset
}

// NewRegistry creates a registry holding presets.
func NewRegistry(presets ...Preset) (*Registry, error) {
	r := &Registry{presets: make(map[string]Preset)}
	for _, p := range presets {
		if err := r.Add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add registers a preset. IDs must be unique.
func (r *Registry) Add(p Preset) error {
	if p.ID == "" {
		return fmt.Errorf("preset ID is required")
	}
	if p.Variant.SourceID == "" {
		return fmt.Errorf("preset %q has no source ID", p.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.presets[p.ID]; exists {
		return fmt.Errorf("preset with ID %q already exists", p.ID)
	}
	r.presets[p.ID] = p
	return nil
}

// Get returns the preset with the given ID.
func (r *Registry) Get(id string) (Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.presets[id]
	return p, ok
}

// IDs returns the registered IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.presets))
}

// All returns the registered presets, sorted by ID.
func (r *Registry) All() []Preset {
	ids := r.IDs()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Preset, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.presets[id])
	}
	return out
}

// Count returns the number of presets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.presets)
}

// FindBySource returns the presets reading sourceID, sorted by ID.
func (r *Registry) FindBySource(sourceID string) []Preset {
	var matches []Preset
	for _, p := range r.All() {
		if p.Variant.SourceID == sourceID {
			matches = append(matches, p)
		}
	}
	return matches
}
