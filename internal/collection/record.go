// Package collection models remote image collections as immutable plans of
// deferred operations, together with the record-level semantics every
// backend must honour when it evaluates such a plan.
package collection

import (
	"maps"
	"slices"
	"time"

	"github.com/robert-malhotra/eoset/pkg/geojson"
)

// Record is a single time-stamped, geolocated raster entry of a collection.
// Only descriptive metadata travels to the client; pixels stay server-side.
type Record struct {
	// ID identifies the record within its source.
	ID string `json:"id"`

	// Time is the acquisition timestamp. A zero value means the record has
	// no resolvable timestamp.
	Time time.Time `json:"time"`

	// Geometry is the record footprint. Nil means the footprint is unbounded.
	Geometry *geojson.Geometry `json:"geometry"`

	// Bands lists band names in band order.
	Bands []string `json:"bands"`

	// Properties holds image-level metadata.
	Properties map[string]any `json:"properties,omitempty"`
}

// Clone returns a deep copy of the record. Property values are copied
// shallowly.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	return &Record{
		ID:         r.ID,
		Time:       r.Time,
		Geometry:   r.Geometry.Clone(),
		Bands:      slices.Clone(r.Bands),
		Properties: maps.Clone(r.Properties),
	}
}

// Property returns the named image property.
func (r *Record) Property(name string) (any, bool) {
	v, ok := r.Properties[name]
	return v, ok
}

// SetProperty sets an image property, allocating the map if needed.
func (r *Record) SetProperty(name string, value any) {
	if r.Properties == nil {
		r.Properties = make(map[string]any)
	}
	r.Properties[name] = value
}

// HasBand reports whether the record exposes the named band.
func (r *Record) HasBand(name string) bool {
	return slices.Contains(r.Bands, name)
}

// HasTime reports whether the record carries an acquisition timestamp.
func (r *Record) HasTime() bool {
	return !r.Time.IsZero()
}

// SortByTime sorts records by acquisition time, keeping the relative order
// of records with equal timestamps.
func SortByTime(records []*Record) {
	slices.SortStableFunc(records, func(a, b *Record) int {
		return a.Time.Compare(b.Time)
	})
}
