package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/eoset/internal/backend"
	"github.com/robert-malhotra/eoset/internal/collection"
	"github.com/robert-malhotra/eoset/pkg/geojson"
)

const (
	landsatSource  = "LANDSAT/LC08/C02/T1_L2"
	sentinel2      = "COPERNICUS/S2_SR_HARMONIZED"
	sentinel1      = "COPERNICUS/S1_GRD"
	landsatRecords = 197
	s2Records      = 2400
	s1Records      = 628
	joinedRecords  = 131
)

var (
	epoch     = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	windowEnd = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	canonical = []string{"blue", "green", "red", "nir", "swir1", "swir2"}
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

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func rename(from []string) []collection.BandMapping {
	out := make([]collection.BandMapping, len(from))
	for i, f := range from {
		out[i] = collection.BandMapping{From: f, To: canonical[i]}
	}
	return out
}

var (
	landsatVariant = Variant{
		Name:     "lc8",
		SourceID: landsatSource,
		Bands:    []string{"SR_B2", "SR_B3", "SR_B4", "SR_B5", "SR_B6", "SR_B7", "QA_PIXEL"},
		Rename:   rename([]string{"SR_B2", "SR_B3", "SR_B4", "SR_B5", "SR_B6", "SR_B7"}),
	}
	s2Variant = Variant{
		Name:     "s2",
		SourceID: sentinel2,
		Bands:    []string{"B2", "B3", "B4", "B8", "B11", "B12", "QA60"},
		Rename:   rename([]string{"B2", "B3", "B4", "B8", "B11", "B12"}),
	}
	s1Variant = Variant{
		Name:     "s1",
		SourceID: sentinel1,
		Bands:    []string{"VV", "VH", "angle"},
	}
)

// catalog seeds the in-memory catalog used by the scenario tests:
//   - landsat: one scene every 8 days starting at epoch.
//   - sentinel-2: one scene every 16 hours.
//   - sentinel-1: a scene on the day of each of the first 131 landsat scenes,
//     and 497 scenes on days without a landsat acquisition.
func catalog(t *testing.T) *backend.MemoryBackend {
	t.Helper()
	mem := backend.NewMemoryBackend(testLogger())

	for i := range landsatRecords {
		mem.Add(landsatSource, &collection.Record{
			ID:         fmt.Sprintf("LC08_%03d", i),
			Time:       epoch.Add(days(8 * i)).Add(10 * time.Hour),
			Geometry:   box(t, 2, 2, 6, 6),
			Bands:      slices.Clone(landsatVariant.Bands),
			Properties: map[string]any{"CLOUD_COVER": float64(i % 40), "SPACECRAFT_ID": "LANDSAT_8"},
		})
	}

	for i := range s2Records {
		mem.Add(sentinel2, &collection.Record{
			ID:         fmt.Sprintf("S2_%04d", i),
			Time:       epoch.Add(time.Duration(i) * 16 * time.Hour),
			Geometry:   box(t, 1, 1, 5, 5),
			Bands:      slices.Clone(s2Variant.Bands),
			Properties: map[string]any{"CLOUDY_PIXEL_PERCENTAGE": float64(i % 100)},
		})
	}

	var s1Times []time.Time
	for i := range joinedRecords {
		s1Times = append(s1Times, epoch.Add(days(8*i)).Add(12*time.Hour))
	}
	for _, offset := range []int{3, 5, 7} {
		for k := 0; k < landsatRecords && len(s1Times) < s1Records; k++ {
			s1Times = append(s1Times, epoch.Add(days(8*k+offset)).Add(6*time.Hour))
		}
	}
	for i, ts := range s1Times {
		mem.Add(sentinel1, &collection.Record{
			ID:         fmt.Sprintf("S1_%03d", i),
			Time:       ts,
			Geometry:   box(t, 4, 4, 8, 8),
			Bands:      slices.Clone(s1Variant.Bands),
			Properties: map[string]any{"instrumentMode": "IW"},
		})
	}
	return mem
}

func newEngine(t *testing.T) *backend.Engine {
	t.Helper()
	return backend.NewEngine(catalog(t), testLogger())
}

func newDataset(t *testing.T, remote Remote, v Variant, region *geojson.Geometry, opts ...Option) *Dataset {
	t.Helper()
	opts = append([]Option{WithLogger(testLogger())}, opts...)
	d, err := New(remote, v, region, epoch, windowEnd, opts...)
	require.NoError(t, err)
	return d
}

// fakeRemote serves a fixed Info and counts calls. Failures are returned
// while failures > 0.
type fakeRemote struct {
	mu       sync.Mutex
	info     *collection.Info
	failures int
	calls    int
}

var errBackendDown = errors.New("backend down")

func (f *fakeRemote) Name() string { return "fake" }

func (f *fakeRemote) Info(_ context.Context, _ *collection.Handle) (*collection.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errBackendDown
	}
	return f.info, nil
}
