package sensors

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/eoset/internal/backend"
	"github.com/robert-malhotra/eoset/internal/collection"
	"github.com/robert-malhotra/eoset/internal/dataset"
	"github.com/robert-malhotra/eoset/pkg/geojson"
)

var (
	start = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func box(t *testing.T, bbox ...float64) *geojson.Geometry {
	t.Helper()
	g, err := geojson.NewPolygonFromBBox(bbox)
	require.NoError(t, err)
	return g
}

func TestBuiltin(t *testing.T) {
	remote := backend.NewEngine(backend.NewMemoryBackend(testLogger()), testLogger())
	region := box(t, 0, 0, 1, 1)

	for _, p := range Builtin() {
		t.Run(p.ID, func(t *testing.T) {
			d, err := p.Dataset(remote, region, start, end, dataset.WithLogger(testLogger()))
			require.NoError(t, err)
			assert.Equal(t, p.ID, d.Name())
			assert.Equal(t, p.Variant.SourceID, d.SourceID())
			assert.Equal(t, 1, d.Collection().Count(collection.OpMap), "qa is applied once")

			if p.ID != "sentinel-1" {
				assert.Equal(t, Canonical, d.Bands())
			}
		})
	}
}

func TestPreset_OpticalDatasetsMerge(t *testing.T) {
	ctx := context.Background()
	mem := backend.NewMemoryBackend(testLogger())
	footprint := box(t, 0, 0, 1, 1)

	mem.Add(Sentinel2().Variant.SourceID, &collection.Record{
		ID: "S2", Time: start.Add(time.Hour), Geometry: footprint,
		Bands:      Sentinel2().Variant.Bands,
		Properties: map[string]any{"CLOUDY_PIXEL_PERCENTAGE": 25.0},
	})
	mem.Add(Landsat8().Variant.SourceID, &collection.Record{
		ID: "LC08", Time: start.Add(2 * time.Hour), Geometry: footprint,
		Bands:      Landsat8().Variant.Bands,
		Properties: map[string]any{"CLOUD_COVER": 10},
	})
	engine := backend.NewEngine(mem, testLogger())

	s2, err := Sentinel2().Dataset(engine, footprint, start, end)
	require.NoError(t, err)
	lc8, err := Landsat8().Dataset(engine, footprint, start, end)
	require.NoError(t, err)

	merged, err := s2.Merge(lc8)
	require.NoError(t, err)

	records, err := merged.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, Canonical, records[0].Bands)
	assert.Equal(t, QASentinel2CloudMask, records[0].Properties[PropQAPolicy])
	assert.InDelta(t, 0.75, records[0].Properties[PropValidFraction], 1e-9)
	assert.Equal(t, 25.0, records[0].Properties["CLOUDY_PIXEL_PERCENTAGE"], "metadata survives qa")

	assert.Equal(t, QALandsatPixel, records[1].Properties[PropQAPolicy])
	assert.InDelta(t, 0.9, records[1].Properties[PropValidFraction], 1e-9)
}

func TestPreset_WithoutQA(t *testing.T) {
	remote := backend.NewEngine(backend.NewMemoryBackend(testLogger()), testLogger())
	d, err := Sentinel2().Dataset(remote, box(t, 0, 0, 1, 1), start, end, dataset.WithQA(false))
	require.NoError(t, err)
	assert.Zero(t, d.Collection().Count(collection.OpMap))
}

func TestQA_Idempotent(t *testing.T) {
	r := &collection.Record{
		ID:         "S2",
		Time:       start,
		Bands:      []string{"B2", "QA60"},
		Properties: map[string]any{"CLOUDY_PIXEL_PERCENTAGE": 40.0},
	}

	for _, name := range QANames() {
		t.Run(name, func(t *testing.T) {
			qa, ok := QA(name)
			require.True(t, ok)
			m, _, err := qa.Bind(nil)
			require.NoError(t, err)

			once, err := m(r)
			require.NoError(t, err)
			twice, err := m(once)
			require.NoError(t, err)

			if diff := cmp.Diff(once, twice); diff != "" {
				t.Errorf("qa %s is not idempotent (-once +twice):\n%s", name, diff)
			}
			assert.NotContains(t, r.Properties, PropQAPolicy, "input record must not be modified")
		})
	}

	_, ok := QA("unknown")
	assert.False(t, ok)
}

func TestQA_CloudCoverFallback(t *testing.T) {
	tests := []struct {
		name       string
		policy     string
		properties map[string]any
		want       any
	}{
		{"native property", QALandsatPixel, map[string]any{"CLOUD_COVER": 20.0}, 0.8},
		{"stac eo:cloud_cover", QALandsatPixel, map[string]any{"eo:cloud_cover": 25.0}, 0.75},
		{"native wins", QASentinel2CloudMask, map[string]any{"CLOUDY_PIXEL_PERCENTAGE": 10.0, "eo:cloud_cover": 90.0}, 0.9},
		{"no cloud property", QASentinel2CloudMask, map[string]any{}, nil},
		{"policy without cloud property", QASentinel1BorderNoise, map[string]any{"eo:cloud_cover": 50.0}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qa, ok := QA(tt.policy)
			require.True(t, ok)
			m, _, err := qa.Bind(nil)
			require.NoError(t, err)

			out, err := m(&collection.Record{ID: "r", Time: start, Properties: tt.properties})
			require.NoError(t, err)

			got, ok := out.Property(PropValidFraction)
			if tt.want == nil {
				assert.False(t, ok, "valid fraction = %v, want unset", got)
				return
			}
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestLandsatPresets_FilterPlatform(t *testing.T) {
	l7, l8 := Landsat7().Catalog, Landsat8().Catalog
	assert.Equal(t, l7.Collection, l8.Collection, "both missions share one STAC collection")
	assert.Equal(t, "landsat-7", l7.Platform)
	assert.Equal(t, "landsat-8", l8.Platform)
}

func TestCanonicalRename(t *testing.T) {
	got := CanonicalRename("B2", "B3")
	assert.Equal(t, []collection.BandMapping{{From: "B2", To: "blue"}, {From: "B3", To: "green"}}, got)
}

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry(Builtin()...)
	require.NoError(t, err)

	assert.Equal(t, 6, reg.Count())
	assert.Equal(t, []string{"landsat-7", "landsat-8", "modis", "sentinel-1", "sentinel-2", "viirs"}, reg.IDs())

	p, ok := reg.Get("sentinel-2")
	require.True(t, ok)
	assert.Equal(t, CatalogSTAC, p.Catalog.Type)

	_, ok = reg.Get("missing")
	assert.False(t, ok)

	assert.Error(t, reg.Add(Sentinel2()), "duplicate IDs are rejected")
	assert.Error(t, reg.Add(Preset{ID: "empty"}))

	custom := Preset{ID: "custom", Variant: dataset.Variant{SourceID: Landsat8().Variant.SourceID}}
	require.NoError(t, reg.Add(custom))
	matches := reg.FindBySource(Landsat8().Variant.SourceID)
	require.Len(t, matches, 2)
	assert.Equal(t, "custom", matches[0].ID)
	assert.Equal(t, "landsat-8", matches[1].ID)
}
