package dataset

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robert-malhotra/eoset/internal/collection"
)

// JoinOption configures Join.
type JoinOption func(*collection.JoinSpec)

// WithWindow matches records acquired at most d apart. Without it records
// match when acquired on the same UTC day.
func WithWindow(d time.Duration) JoinOption {
	return func(s *collection.JoinSpec) { s.Window = d }
}

// WithPrefix prepends prefix to every band of the right-hand dataset.
func WithPrefix(prefix string) JoinOption {
	return func(s *collection.JoinSpec) { s.Prefix = prefix }
}

// Join pairs every record of d with the record of other closest in time
// whose footprint overlaps it, each record being used at most once.
// Output footprints are clipped to the overlap of both records and both
// regions. Unmatched records are dropped.
func (d *Dataset) Join(other *Dataset, opts ...JoinOption) (*Dataset, error) {
	if d.remote != other.remote {
		return nil, ErrRemoteMismatch
	}

	var spec collection.JoinSpec
	for _, opt := range opts {
		opt(&spec)
	}

	if colliding := collection.CollidingBands(d.bands, other.bands, spec.Prefix); len(colliding) > 0 {
		return nil, &BandNameCollisionError{Bands: colliding}
	}

	region, ok, err := collection.IntersectRegions(d.region, other.region)
	if err != nil {
		return nil, fmt.Errorf("join regions: %w", err)
	}
	if !ok {
		return nil, ErrDisjointRegions
	}

	start, end := latest(d.start, other.start), earliest(d.end, other.end)
	if !end.After(start) {
		return nil, fmt.Errorf("%w: time windows do not overlap", ErrInvalidTimeRange)
	}

	spec.Clip = region
	h := d.collection.Join(other.collection, spec)
	out := d.derive(d.name+"*"+other.name, h, region, start, end)
	out.sourceID = d.sourceID + "*" + other.sourceID

	d.logger.Debug("join registered",
		slog.String("left", d.name),
		slog.String("right", other.name),
		slog.Duration("window", spec.Window),
	)
	return out, nil
}

func earliest(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
