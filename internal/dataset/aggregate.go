package dataset

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/robert-malhotra/eoset/internal/collection"
)

// AggregateOption configures AggregateTime.
type AggregateOption func(*aggregateOptions)

type aggregateOptions struct {
	dates  []time.Time
	period int
}

// WithDates sets the bucket start times, in output order. Buckets may
// overlap and are not deduplicated.
func WithDates(dates ...time.Time) AggregateOption {
	return func(o *aggregateOptions) { o.dates = append(o.dates, dates...) }
}

// WithPeriod sets the bucket width in days. The default is one day.
func WithPeriod(days int) AggregateOption {
	return func(o *aggregateOptions) { o.period = days }
}

// AggregateTime reduces the records of each time bucket into one record
// stamped with the bucket start. Without WithDates the buckets are the
// distinct UTC days present in the collection. Empty buckets are omitted.
func (d *Dataset) AggregateTime(reducer string, opts ...AggregateOption) (*Dataset, error) {
	o := aggregateOptions{period: 1}
	for _, opt := range opts {
		opt(&o)
	}

	if err := collection.ValidateReducer(reducer); err != nil {
		return nil, err
	}
	if o.period <= 0 {
		return nil, fmt.Errorf("%w: period must be at least one day, got %d", ErrInvalidTimeRange, o.period)
	}

	spec := collection.AggregateSpec{Reducer: reducer}
	if len(o.dates) > 0 {
		spec.Buckets = collection.DateBuckets(o.dates, o.period)
	}

	h := d.collection.Aggregate(spec)
	out := d.derive(d.name+"/"+reducer, h, d.region.Clone(), d.start, d.end)
	if len(spec.Buckets) > 0 {
		first := slices.MinFunc(spec.Buckets, func(a, b collection.Bucket) int { return a.Start.Compare(b.Start) })
		last := slices.MaxFunc(spec.Buckets, func(a, b collection.Bucket) int { return a.End.Compare(b.End) })
		out.start, out.end = earliest(d.start, first.Start.UTC()), latest(d.end, last.End.UTC())
	}

	d.logger.Debug("aggregation registered",
		slog.String("dataset", d.name),
		slog.String("reducer", reducer),
		slog.Int("buckets", len(spec.Buckets)),
	)
	return out, nil
}
