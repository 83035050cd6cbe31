package backend

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/eoset/internal/collection"
)

// Engine evaluates collection plans against a catalog. Source and bounds
// stages are pushed down into a single catalog search; every other stage
// runs client-side over the returned records.
type Engine struct {
	catalog SearchBackend
	logger  *slog.Logger

	roundTrips atomic.Int64
	searches   atomic.Int64
	mapPasses  atomic.Int64
}

// NewEngine creates an engine over catalog.
func NewEngine(catalog SearchBackend, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{catalog: catalog, logger: logger}
}

// Name returns the catalog name.
func (e *Engine) Name() string {
	return e.catalog.Name()
}

// Info evaluates h and summarises the resulting records in one round trip.
func (e *Engine) Info(ctx context.Context, h *collection.Handle) (*collection.Info, error) {
	records, err := e.Records(ctx, h)
	if err != nil {
		return nil, err
	}
	info, err := collection.Describe(records)
	if err != nil {
		return nil, fmt.Errorf("failed to describe collection: %w", err)
	}
	return &info, nil
}

// Records evaluates h and returns its records.
func (e *Engine) Records(ctx context.Context, h *collection.Handle) ([]*collection.Record, error) {
	e.roundTrips.Add(1)
	start := time.Now()

	records, err := e.evaluate(ctx, h)
	if err != nil {
		e.logger.ErrorContext(ctx, "plan evaluation failed",
			slog.String("backend", e.Name()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	e.logger.InfoContext(ctx, "plan evaluated",
		slog.String("backend", e.Name()),
		slog.String("plan", h.String()),
		slog.Int("records", len(records)),
		slog.Duration("duration", time.Since(start)),
	)
	return records, nil
}

// Stats returns the work counters accumulated so far.
func (e *Engine) Stats() Stats {
	return Stats{
		RoundTrips: e.roundTrips.Load(),
		Searches:   e.searches.Load(),
		MapPasses:  e.mapPasses.Load(),
	}
}

func (e *Engine) evaluate(ctx context.Context, h *collection.Handle) ([]*collection.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	op := h.Op()
	inputs := h.Inputs()

	switch op.Kind {
	case collection.OpSource:
		return e.search(ctx, &SearchParams{SourceID: op.SourceID})

	case collection.OpFilterBounds:
		var records []*collection.Record
		var err error
		if src := inputs[0].Op(); src.Kind == collection.OpSource {
			records, err = e.search(ctx, boundsParams(src.SourceID, op))
		} else {
			records, err = e.evaluate(ctx, inputs[0])
		}
		if err != nil {
			return nil, err
		}
		return filterRecords(records, func(r *collection.Record) (bool, error) {
			return collection.WithinBounds(r, op.Region, op.Start, op.End)
		})

	case collection.OpFilter:
		records, err := e.evaluate(ctx, inputs[0])
		if err != nil {
			return nil, err
		}
		return filterRecords(records, func(r *collection.Record) (bool, error) {
			return collection.MatchFilter(op.Filter, r)
		})

	case collection.OpMap:
		records, err := e.evaluate(ctx, inputs[0])
		if err != nil {
			return nil, err
		}
		e.mapPasses.Add(1)
		out := make([]*collection.Record, len(records))
		for i, r := range records {
			if out[i], err = op.Mapper(r); err != nil {
				return nil, fmt.Errorf("map %s: record %s: %w", op.Label, r.ID, err)
			}
		}
		return out, nil

	case collection.OpSelect:
		records, err := e.evaluate(ctx, inputs[0])
		if err != nil {
			return nil, err
		}
		out := make([]*collection.Record, len(records))
		for i, r := range records {
			if out[i], err = collection.SelectBands(r, op.Mappings); err != nil {
				return nil, err
			}
		}
		return out, nil

	case collection.OpUnion:
		branches, err := e.evaluateAll(ctx, inputs)
		if err != nil {
			return nil, err
		}
		var out []*collection.Record
		for _, b := range branches {
			out = append(out, b...)
		}
		return out, nil

	case collection.OpJoin:
		branches, err := e.evaluateAll(ctx, inputs)
		if err != nil {
			return nil, err
		}
		return collection.JoinRecords(branches[0], branches[1], op.Join)

	case collection.OpAggregate:
		records, err := e.evaluate(ctx, inputs[0])
		if err != nil {
			return nil, err
		}
		return collection.AggregateRecords(records, op.Aggregate)

	default:
		return nil, fmt.Errorf("unsupported plan operation %q", op.Kind)
	}
}

// evaluateAll evaluates independent branches concurrently, keeping their
// order in the result.
func (e *Engine) evaluateAll(ctx context.Context, inputs []*collection.Handle) ([][]*collection.Record, error) {
	out := make([][]*collection.Record, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	for i, in := range inputs {
		g.Go(func() error {
			records, err := e.evaluate(ctx, in)
			out[i] = records
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) search(ctx context.Context, params *SearchParams) ([]*collection.Record, error) {
	e.searches.Add(1)
	e.logger.DebugContext(ctx, "searching catalog",
		slog.String("backend", e.Name()),
		slog.String("source_id", params.SourceID),
	)

	result, err := e.catalog.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s search for %s failed: %w", e.Name(), params.SourceID, err)
	}
	return result.Records, nil
}

func boundsParams(sourceID string, op collection.Op) *SearchParams {
	params := &SearchParams{SourceID: sourceID, Intersects: op.Region}
	if !op.Start.IsZero() {
		start := op.Start
		params.Start = &start
	}
	if !op.End.IsZero() {
		end := op.End
		params.End = &end
	}
	return params
}

func filterRecords(records []*collection.Record, keep func(*collection.Record) (bool, error)) ([]*collection.Record, error) {
	out := make([]*collection.Record, 0, len(records))
	for _, r := range records {
		ok, err := keep(r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}
