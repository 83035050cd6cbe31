package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robert-malhotra/eoset/internal/asf"
	"github.com/robert-malhotra/eoset/internal/collection"
	"github.com/robert-malhotra/eoset/pkg/geojson"
)

// ASFSource maps a source ID onto ASF search filters.
type ASFSource struct {
	Datasets        []string
	ProcessingLevel string
	BeamMode        []string
}

// ASFBackend serves SAR sources from the ASF Search API.
type ASFBackend struct {
	client  *asf.Client
	sources map[string]ASFSource
	logger  *slog.Logger
}

// NewASFBackend returns a backend serving sources through client.
func NewASFBackend(client *asf.Client, sources map[string]ASFSource, logger *slog.Logger) *ASFBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &ASFBackend{client: client, sources: sources, logger: logger}
}

// Name returns "asf".
func (b *ASFBackend) Name() string {
	return "asf"
}

// Search runs one ASF query for params. Granules that cannot be converted
// are logged and skipped.
func (b *ASFBackend) Search(ctx context.Context, params *SearchParams) (*SearchResult, error) {
	q, err := b.toQuery(params)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ASF search failed: %w", err)
	}

	records := make([]*collection.Record, 0, len(resp.Features))
	for i := range resp.Features {
		g := &resp.Features[i]
		r, err := asf.GranuleToRecord(g)
		if err != nil {
			b.logger.WarnContext(ctx, "skipping ASF granule",
				slog.String("granule", g.Properties.ID()),
				slog.String("error", err.Error()),
			)
			continue
		}
		records = append(records, r)
	}
	return &SearchResult{Records: records}, nil
}

func (b *ASFBackend) toQuery(params *SearchParams) (asf.Query, error) {
	source, ok := b.sources[params.SourceID]
	if !ok {
		return asf.Query{}, fmt.Errorf("%w: %s", ErrUnknownSource, params.SourceID)
	}

	q := asf.Query{
		Datasets:   source.Datasets,
		BeamModes:  source.BeamMode,
		Start:      params.Start,
		End:        params.End,
		MaxResults: max(params.Limit, 0),
	}
	if source.ProcessingLevel != "" {
		q.ProcessingLevels = []string{source.ProcessingLevel}
	}
	if params.Intersects != nil {
		wkt, err := geojson.ToWKT(params.Intersects)
		if err != nil {
			return asf.Query{}, fmt.Errorf("region for ASF search: %w", err)
		}
		q.Intersects = wkt
	}
	return q, nil
}
