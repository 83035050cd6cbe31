package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/robert-malhotra/eoset/internal/collection"
	"github.com/robert-malhotra/eoset/pkg/geojson"
)

// SourceFile is the JSON layout MemoryBackend loads records from.
type SourceFile struct {
	SourceID string               `json:"source_id"`
	Records  []*collection.Record `json:"records"`
}

// MemoryBackend is an in-process catalog holding records per source ID.
type MemoryBackend struct {
	mu      sync.RWMutex
	sources map[string][]*collection.Record
	logger  *slog.Logger
}

// NewMemoryBackend creates an empty in-memory catalog.
func NewMemoryBackend(logger *slog.Logger) *MemoryBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryBackend{
		sources: make(map[string][]*collection.Record),
		logger:  logger,
	}
}

// Name returns the backend name.
func (b *MemoryBackend) Name() string {
	return "memory"
}

// Add appends records to a source, registering the source when it is new.
func (b *MemoryBackend) Add(sourceID string, records ...*collection.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sources[sourceID]; !ok {
		b.sources[sourceID] = make([]*collection.Record, 0, len(records))
	}
	for _, r := range records {
		b.sources[sourceID] = append(b.sources[sourceID], r.Clone())
	}
}

// Sources returns the known source IDs, sorted.
func (b *MemoryBackend) Sources() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.sources))
	for id := range b.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Search returns copies of the records of params.SourceID within the
// requested bounds.
func (b *MemoryBackend) Search(ctx context.Context, params *SearchParams) (*SearchResult, error) {
	b.mu.RLock()
	records, ok := b.sources[params.SourceID]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, params.SourceID)
	}

	out := make([]*collection.Record, 0, len(records))
	for _, r := range records {
		keep, err := withinParams(r, params)
		if err != nil {
			return nil, err
		}
		if !keep {
			continue
		}
		out = append(out, r.Clone())
		if params.Limit > 0 && len(out) == params.Limit {
			break
		}
	}

	total := len(out)
	b.logger.DebugContext(ctx, "memory search completed",
		slog.String("source_id", params.SourceID),
		slog.Int("record_count", total),
	)
	return &SearchResult{Records: out, TotalCount: &total}, nil
}

// Load reads a SourceFile from r and adds its records.
func (b *MemoryBackend) Load(r io.Reader) error {
	var file SourceFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return fmt.Errorf("failed to decode records: %w", err)
	}
	if file.SourceID == "" {
		return fmt.Errorf("records file has no source_id")
	}
	for _, rec := range file.Records {
		if rec.Geometry != nil {
			if err := geojson.Validate(rec.Geometry); err != nil {
				return fmt.Errorf("record %s: invalid geometry: %w", rec.ID, err)
			}
		}
	}
	b.Add(file.SourceID, file.Records...)
	return nil
}

// LoadDir loads every *.json file of dir.
func (b *MemoryBackend) LoadDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to list record files: %w", err)
	}

	for _, path := range files {
		if err := b.loadFile(path); err != nil {
			return err
		}
		b.logger.Info("loaded records file", slog.String("path", path))
	}
	return nil
}

func (b *MemoryBackend) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if err := b.Load(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func withinParams(r *collection.Record, params *SearchParams) (bool, error) {
	var start, end time.Time
	if params.Start != nil {
		start = *params.Start
	}
	if params.End != nil {
		end = *params.End
	}
	return collection.WithinBounds(r, params.Intersects, start, end)
}
