package stac

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/planetlabs/go-ogc/filter"

	"github.com/robert-malhotra/eoset/internal/backend"
	"github.com/robert-malhotra/eoset/internal/collection"
)

// Source maps a source ID onto a STAC collection.
type Source struct {
	// Collection is the STAC collection ID searched.
	Collection string

	// Filter is sent as a CQL2 JSON filter with every search.
	Filter *filter.Filter

	// Bands fixes the band names of every record. Empty means the data
	// assets of each item.
	Bands []string
}

// Backend implements backend.SearchBackend over a STAC API.
type Backend struct {
	client   *Client
	sources  map[string]Source
	pageSize int
	logger   *slog.Logger
}

// NewBackend creates a STAC catalog serving the given sources.
func NewBackend(client *Client, sources map[string]Source, pageSize int, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		client:   client,
		sources:  sources,
		pageSize: pageSize,
		logger:   logger,
	}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "stac"
}

// Search runs a STAC item search and converts the items to records.
// Items that cannot be converted are logged and skipped.
func (b *Backend) Search(ctx context.Context, params *backend.SearchParams) (*backend.SearchResult, error) {
	source, ok := b.sources[params.SourceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrUnknownSource, params.SourceID)
	}

	req, err := b.toSearchRequest(source, params)
	if err != nil {
		return nil, fmt.Errorf("failed to convert search params: %w", err)
	}

	items, err := b.client.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("STAC search failed: %w", err)
	}

	records := make([]*collection.Record, 0, len(items))
	for _, item := range items {
		r, err := ItemToRecord(item, source.Bands)
		if err != nil {
			b.logger.WarnContext(ctx, "failed to convert STAC item",
				slog.String("error", err.Error()),
			)
			continue
		}
		records = append(records, r)
		if params.Limit > 0 && len(records) == params.Limit {
			break
		}
	}

	return &backend.SearchResult{Records: records}, nil
}

func (b *Backend) toSearchRequest(source Source, params *backend.SearchParams) (*SearchRequest, error) {
	req := &SearchRequest{
		Collections: []string{source.Collection},
		Limit:       b.pageSize,
		DateTime:    FormatInterval(params.Start, params.End),
	}
	if source.Filter != nil {
		req.Filter = source.Filter
		req.FilterLang = filterLangJSON
	}
	if params.Limit > 0 && (req.Limit == 0 || params.Limit < req.Limit) {
		req.Limit = params.Limit
	}

	if params.Intersects != nil {
		raw, err := json.Marshal(params.Intersects)
		if err != nil {
			return nil, fmt.Errorf("invalid intersects geometry: %w", err)
		}
		req.Intersects = raw
	}
	return req, nil
}

// PlatformFilter matches items whose platform property equals platform.
// It returns nil for an empty platform.
func PlatformFilter(platform string) *filter.Filter {
	if platform == "" {
		return nil
	}
	return &filter.Filter{
		Expression: &filter.Comparison{
			Name:  filter.Equals,
			Left:  &filter.Property{Name: "platform"},
			Right: &filter.String{Value: platform},
		},
	}
}

// FormatInterval renders a STAC datetime interval with open ends as "..".
// It returns "" when both ends are open.
func FormatInterval(start, end *time.Time) string {
	if start == nil && end == nil {
		return ""
	}
	format := func(t *time.Time) string {
		if t == nil {
			return ".."
		}
		return t.UTC().Format(time.RFC3339)
	}
	return format(start) + "/" + format(end)
}
