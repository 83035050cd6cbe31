package collection

import (
	"fmt"
	"time"

	"github.com/robert-malhotra/eoset/pkg/geojson"
)

// WithinBounds reports whether r intersects region and was acquired in
// [start, end). A footprint strictly inside a hole of region does not
// intersect it. A nil region or a nil footprint is unbounded. A zero start
// or end leaves that side of the window open. Untimed records only pass
// when both sides are open.
func WithinBounds(r *Record, region *geojson.Geometry, start, end time.Time) (bool, error) {
	if !start.IsZero() || !end.IsZero() {
		if !r.HasTime() {
			return false, nil
		}
		if !start.IsZero() && r.Time.Before(start) {
			return false, nil
		}
		if !end.IsZero() && !r.Time.Before(end) {
			return false, nil
		}
	}

	if region == nil || r.Geometry == nil {
		return true, nil
	}
	ok, err := geojson.Intersects(r.Geometry, region)
	if err != nil {
		return false, fmt.Errorf("record %s: %w", r.ID, err)
	}
	return ok, nil
}

// SelectBands returns a copy of r exposing only the mapped bands, renamed.
func SelectBands(r *Record, mappings []BandMapping) (*Record, error) {
	out := r.Clone()
	out.Bands = make([]string, 0, len(mappings))
	for _, m := range mappings {
		if !r.HasBand(m.From) {
			return nil, fmt.Errorf("record %s: %w: %q", r.ID, ErrBandNotFound, m.From)
		}
		out.Bands = append(out.Bands, m.To)
	}
	return out, nil
}

// IntersectRegions returns the overlap of a and b. Nil inputs are unbounded;
// the result is nil only when both are. ok is false when the regions share
// no area.
func IntersectRegions(a, b *geojson.Geometry) (g *geojson.Geometry, ok bool, err error) {
	switch {
	case a == nil && b == nil:
		return nil, true, nil
	case a == nil:
		return b.Clone(), true, nil
	case b == nil:
		return a.Clone(), true, nil
	}
	g, err = geojson.Intersection(a, b)
	if err != nil {
		return nil, false, err
	}
	return g, g != nil, nil
}
