package dataset

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/planetlabs/go-ogc/filter"

	"github.com/robert-malhotra/eoset/internal/collection"
)

// Step is one stage of a pipeline: a transform and its keyword parameters.
type Step struct {
	Transform collection.Transform
	Params    collection.Params
}

// Bare returns a step calling t with its default parameters.
func Bare(t collection.Transform) Step {
	return Step{Transform: t}
}

// With returns a step calling t with params.
func With(t collection.Transform, params collection.Params) Step {
	return Step{Transform: t, Params: params}
}

// ApplyFunc maps t over every record. The parameters are bound immediately
// and exactly one map stage is registered.
func (d *Dataset) ApplyFunc(t collection.Transform, params collection.Params) (*Dataset, error) {
	m, bound, err := t.Bind(params)
	if err != nil {
		return nil, &InvalidPipelineStepError{Index: 0, Name: t.Name, Err: err}
	}

	h := d.collection.Map(t.Name, m, t.OutputBands(d.bands, bound))
	d.logger.Debug("map stage registered",
		slog.String("dataset", d.name),
		slog.String("transform", t.Name),
	)
	return d.derive(d.name, h, d.region.Clone(), d.start, d.end), nil
}

// Pipe fuses steps into a single map stage applying them in order, so the
// remote makes one pass over the collection. Every step is bound before
// anything is registered.
func (d *Dataset) Pipe(steps ...Step) (*Dataset, error) {
	if len(steps) == 0 {
		return nil, ErrEmptyPipeline
	}

	mappers := make([]collection.Mapper, 0, len(steps))
	names := make([]string, 0, len(steps))
	bands := d.bands
	for i, step := range steps {
		m, bound, err := step.Transform.Bind(step.Params)
		if err != nil {
			return nil, &InvalidPipelineStepError{Index: i, Name: step.Transform.Name, Err: err}
		}
		mappers = append(mappers, m)
		names = append(names, step.Transform.Name)
		bands = step.Transform.OutputBands(bands, bound)
	}

	label := "pipe[" + strings.Join(names, "|") + "]"
	h := d.collection.Map(label, collection.Compose(mappers...), bands)
	d.logger.Debug("pipeline registered",
		slog.String("dataset", d.name),
		slog.Int("steps", len(steps)),
	)
	return d.derive(d.name, h, d.region.Clone(), d.start, d.end), nil
}

// FilterMetadata keeps records whose properties satisfy the CQL2
// expression f.
func (d *Dataset) FilterMetadata(f *filter.Filter) (*Dataset, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: filter is nil", collection.ErrUnsupportedFilter)
	}
	if err := collection.ValidateFilter(f); err != nil {
		return nil, err
	}
	h := d.collection.Filter(f)
	return d.derive(d.name, h, d.region.Clone(), d.start, d.end), nil
}
