package dataset

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/robert-malhotra/eoset/pkg/geojson"
)

// Merge returns the union of d and other. Both must expose the same set of
// band names. Records keep the order d then other; timestamps are not
// deduplicated. When both metadata caches are already materialized the
// merged dates are computed locally without a round trip.
func (d *Dataset) Merge(other *Dataset) (*Dataset, error) {
	if d.remote != other.remote {
		return nil, ErrRemoteMismatch
	}

	left, right := slices.Sorted(slices.Values(d.bands)), slices.Sorted(slices.Values(other.bands))
	if !slices.Equal(left, right) {
		return nil, &SchemaMismatchError{Left: d.Bands(), Right: other.Bands()}
	}

	region, err := geojson.Envelope(d.region, other.region)
	if err != nil {
		return nil, fmt.Errorf("merge regions: %w", err)
	}

	h := d.collection.Union(other.collection)
	out := d.derive(d.name+"+"+other.name, h, region, earliest(d.start, other.start), latest(d.end, other.end))
	out.sourceID = d.sourceID + "+" + other.sourceID

	a, okA := d.cache.peek()
	b, okB := other.cache.peek()
	if okA && okB {
		out.cache = seededCache(mergeDates(a, b))
	}

	d.logger.Debug("merge registered",
		slog.String("left", d.name),
		slog.String("right", other.name),
		slog.Bool("cache_seeded", okA && okB),
	)
	return out, nil
}
