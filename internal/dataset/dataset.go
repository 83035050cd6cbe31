// Package dataset wraps deferred remote collections of time-stamped,
// geolocated raster records and provides the algebra used to combine them.
// Composition never contacts the remote; only metadata access and record
// materialization do.
package dataset

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/robert-malhotra/eoset/internal/collection"
	"github.com/robert-malhotra/eoset/pkg/geojson"
)

// Remote evaluates collection plans.
type Remote interface {
	Name() string
	Info(ctx context.Context, h *collection.Handle) (*collection.Info, error)
}

// Materializer is a Remote that can also return evaluated records.
type Materializer interface {
	Remote
	Records(ctx context.Context, h *collection.Handle) ([]*collection.Record, error)
}

// Variant configures a remote source: its collection, native bands, band
// renaming and quality-assessment transform.
type Variant struct {
	Name     string
	SourceID string
	Bands    []string
	Rename   []collection.BandMapping
	QA       *collection.Transform
}

// Option configures dataset construction.
type Option func(*options)

type options struct {
	name   string
	useQA  bool
	logger *slog.Logger
}

// WithQA enables or disables the variant's quality-assessment transform.
// It is enabled by default.
func WithQA(enabled bool) Option {
	return func(o *options) { o.useQA = enabled }
}

// WithName sets the dataset name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) options {
	o := options{useQA: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Dataset is an immutable view of a remote collection bounded by a region
// and a time window [start, end). Every operation returns a new Dataset.
type Dataset struct {
	name     string
	sourceID string
	region   *geojson.Geometry
	start    time.Time
	end      time.Time

	remote     Remote
	collection *collection.Handle
	bands      []string
	cache      *metadataCache
	logger     *slog.Logger
}

// New builds a dataset reading variant's collection within region and
// [start, end). The quality-assessment transform runs before renaming.
func New(remote Remote, variant Variant, region *geojson.Geometry, start, end time.Time, opts ...Option) (*Dataset, error) {
	o := buildOptions(opts)

	if variant.SourceID == "" {
		return nil, ErrMissingSourceID
	}
	if err := validateRegion(region); err != nil {
		return nil, err
	}
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return nil, fmt.Errorf("%w: [%s, %s)", ErrInvalidTimeRange,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	h := collection.New(variant.SourceID, variant.Bands).FilterBounds(region, start, end)

	if o.useQA && variant.QA != nil {
		qa := collection.PreserveMetadata(*variant.QA)
		m, bound, err := qa.Bind(nil)
		if err != nil {
			return nil, fmt.Errorf("qa transform: %w", err)
		}
		h = h.Map(qa.Name, m, qa.OutputBands(h.Bands(), bound))
	}

	if len(variant.Rename) > 0 {
		var err error
		if h, err = h.Select(variant.Rename); err != nil {
			return nil, fmt.Errorf("rename bands: %w", err)
		}
	}

	name := o.name
	if name == "" {
		name = cmp.Or(variant.Name, variant.SourceID)
	}

	d := &Dataset{
		name:       name,
		sourceID:   variant.SourceID,
		region:     region.Clone(),
		start:      start.UTC(),
		end:        end.UTC(),
		remote:     remote,
		collection: h,
		bands:      h.Bands(),
		cache:      &metadataCache{},
		logger:     o.logger,
	}
	d.logger.Debug("dataset created",
		slog.String("name", d.name),
		slog.String("source_id", d.sourceID),
		slog.Bool("qa", o.useQA && variant.QA != nil),
	)
	return d, nil
}

// FromCollection wraps a pre-filtered collection. One metadata round trip
// resolves the region, the time window and the band schema. No
// quality-assessment transform is applied.
func FromCollection(ctx context.Context, remote Remote, h *collection.Handle, opts ...Option) (*Dataset, error) {
	o := buildOptions(opts)

	info, err := remote.Info(ctx, h)
	if err != nil {
		return nil, &RemoteBackendError{Backend: remote.Name(), Err: err}
	}

	switch {
	case info.Count == 0:
		return nil, &InvalidCollectionError{Reason: "collection is empty"}
	case info.Untimed > 0:
		return nil, &InvalidCollectionError{Reason: fmt.Sprintf("%d records lack an acquisition timestamp", info.Untimed)}
	case info.Extent == nil:
		return nil, &InvalidCollectionError{Reason: "spatial extent is unbounded"}
	}

	region, err := info.Region()
	if err != nil {
		return nil, &InvalidCollectionError{Reason: "spatial extent is unbounded", Err: err}
	}
	if err := geojson.Validate(region); err != nil {
		return nil, &InvalidCollectionError{Reason: "spatial extent is unbounded", Err: err}
	}

	sourceID := strings.Join(h.Sources(), "+")
	d := &Dataset{
		name:       cmp.Or(o.name, sourceID),
		sourceID:   sourceID,
		region:     region,
		start:      info.Timestamps[0].UTC(),
		end:        info.Timestamps[len(info.Timestamps)-1].UTC().Add(time.Millisecond),
		remote:     remote,
		collection: h,
		bands:      slices.Clone(info.Bands),
		cache:      seededCache(info.Timestamps),
		logger:     o.logger,
	}
	d.logger.Debug("dataset wrapped collection",
		slog.String("name", d.name),
		slog.Int("records", info.Count),
	)
	return d, nil
}

// Name returns the dataset label.
func (d *Dataset) Name() string { return d.name }

// SourceID returns the remote collection identifier.
func (d *Dataset) SourceID() string { return d.sourceID }

// Region returns a copy of the bounding region.
func (d *Dataset) Region() *geojson.Geometry { return d.region.Clone() }

// Start returns the inclusive start of the time window.
func (d *Dataset) Start() time.Time { return d.start }

// End returns the exclusive end of the time window.
func (d *Dataset) End() time.Time { return d.end }

// Bands returns the band names every record exposes.
func (d *Dataset) Bands() []string { return slices.Clone(d.bands) }

// Collection returns the plan backing the dataset.
func (d *Dataset) Collection() *collection.Handle { return d.collection }

// Remote returns the backend evaluating the dataset.
func (d *Dataset) Remote() Remote { return d.remote }

// Dates returns the acquisition timestamps, ascending. The first call makes
// one metadata round trip; later calls are served from the cache.
func (d *Dataset) Dates(ctx context.Context) ([]time.Time, error) {
	return d.cache.get(ctx, d.fetchDates)
}

// NImages returns the number of records.
func (d *Dataset) NImages(ctx context.Context) (int, error) {
	dates, err := d.Dates(ctx)
	if err != nil {
		return 0, err
	}
	return len(dates), nil
}

// Records materializes the dataset. It requires a remote that implements
// Materializer.
func (d *Dataset) Records(ctx context.Context) ([]*collection.Record, error) {
	m, ok := d.remote.(Materializer)
	if !ok {
		return nil, fmt.Errorf("remote %s cannot materialize records", d.remote.Name())
	}
	records, err := m.Records(ctx, d.collection)
	if err != nil {
		return nil, &RemoteBackendError{Backend: d.remote.Name(), Err: err}
	}
	return records, nil
}

func (d *Dataset) fetchDates(ctx context.Context) ([]time.Time, error) {
	info, err := d.remote.Info(ctx, d.collection)
	if err != nil {
		return nil, &RemoteBackendError{Backend: d.remote.Name(), Err: err}
	}
	d.logger.InfoContext(ctx, "dataset metadata fetched",
		slog.String("name", d.name),
		slog.Int("records", info.Count),
	)
	return info.Timestamps, nil
}

// derive returns a dataset over h sharing d's remote, with a fresh cache.
func (d *Dataset) derive(name string, h *collection.Handle, region *geojson.Geometry, start, end time.Time) *Dataset {
	return &Dataset{
		name:       name,
		sourceID:   d.sourceID,
		region:     region,
		start:      start,
		end:        end,
		remote:     d.remote,
		collection: h,
		bands:      h.Bands(),
		cache:      &metadataCache{},
		logger:     d.logger,
	}
}

func validateRegion(region *geojson.Geometry) error {
	if region == nil {
		return fmt.Errorf("%w: region is required", ErrInvalidRegion)
	}
	if err := geojson.Validate(region); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRegion, err)
	}
	return nil
}
