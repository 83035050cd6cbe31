package backend

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Router dispatches searches to the catalog registered for each source ID.
// Sources without a route go to the fallback catalog when one is set.
type Router struct {
	routes   map[string]SearchBackend
	fallback SearchBackend
}

// NewRouter creates a router. fallback may be nil.
func NewRouter(fallback SearchBackend) *Router {
	return &Router{routes: make(map[string]SearchBackend), fallback: fallback}
}

// Route sends searches for sourceID to b.
func (r *Router) Route(sourceID string, b SearchBackend) *Router {
	r.routes[sourceID] = b
	return r
}

// Name returns the names of the routed catalogs.
func (r *Router) Name() string {
	seen := make(map[string]bool)
	var names []string
	add := func(b SearchBackend) {
		if b != nil && !seen[b.Name()] {
			seen[b.Name()] = true
			names = append(names, b.Name())
		}
	}
	add(r.fallback)
	for _, id := range slices.Sorted(maps.Keys(r.routes)) {
		add(r.routes[id])
	}
	if len(names) == 0 {
		return "router"
	}
	return strings.Join(names, "+")
}

// Search forwards params to the catalog serving params.SourceID.
func (r *Router) Search(ctx context.Context, params *SearchParams) (*SearchResult, error) {
	b, ok := r.routes[params.SourceID]
	if !ok {
		b = r.fallback
	}
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, params.SourceID)
	}
	return b.Search(ctx, params)
}
