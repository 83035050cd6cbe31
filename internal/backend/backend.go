// Package backend provides the catalog abstraction records are searched
// from and the engine that evaluates collection plans against it.
package backend

import (
	"context"
	"errors"
	"time"

	"github.com/robert-malhotra/eoset/internal/collection"
	"github.com/robert-malhotra/eoset/pkg/geojson"
)

// ErrUnknownSource is returned when no catalog serves a source ID.
var ErrUnknownSource = errors.New("unknown source")

// SearchBackend defines the interface for record catalogs.
// The memory, STAC and ASF catalogs implement this interface.
type SearchBackend interface {
	// Search returns the records of one source matching the parameters.
	// Catalogs may return a superset of the bounds; the engine filters
	// again client-side.
	Search(ctx context.Context, params *SearchParams) (*SearchResult, error)

	// Name returns the backend name (e.g., "memory", "stac", "asf").
	Name() string
}

// SearchParams contains parameters for catalog searches.
// These are backend-agnostic and will be translated to backend-specific formats.
type SearchParams struct {
	// SourceID names the collection to search.
	SourceID string

	// Spatial filter. Nil means unbounded.
	Intersects *geojson.Geometry

	// Temporal filters, Start inclusive and End exclusive
	Start *time.Time
	End   *time.Time

	// Limit caps the number of records; zero means no limit.
	Limit int
}

// SearchResult contains the results of a catalog search.
type SearchResult struct {
	// Records are the matching records in catalog order
	Records []*collection.Record

	// TotalCount is the total number of matching records (nil if unknown)
	TotalCount *int
}

// Stats counts the work an engine has sent to its catalog.
type Stats struct {
	// RoundTrips counts blocking Info and Records calls.
	RoundTrips int64 `json:"round_trips"`

	// Searches counts catalog searches.
	Searches int64 `json:"searches"`

	// MapPasses counts map stages applied over a collection.
	MapPasses int64 `json:"map_passes"`
}
