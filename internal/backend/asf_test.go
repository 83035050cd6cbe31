package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/robert-malhotra/eoset/internal/asf"
	"github.com/robert-malhotra/eoset/pkg/geojson"
)

const s1Source = "COPERNICUS/S1_GRD"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestASFBackend() *ASFBackend {
	return NewASFBackend(nil, map[string]ASFSource{
		s1Source: {
			Datasets:        []string{"SENTINEL-1"},
			ProcessingLevel: "GRD_HD",
			BeamMode:        []string{"IW"},
		},
	}, testLogger())
}

func TestASFBackend_toQuery(t *testing.T) {
	b := newTestASFBackend()

	region, err := geojson.NewPolygonFromBBox([]float64{-122, 37, -121, 38})
	if err != nil {
		t.Fatal(err)
	}
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	q, err := b.toQuery(&SearchParams{
		SourceID:   s1Source,
		Intersects: region,
		Start:      &start,
		Limit:      10,
	})
	if err != nil {
		t.Fatalf("toQuery failed: %v", err)
	}

	v := q.Values()
	want := map[string]string{
		"dataset":         "SENTINEL-1",
		"processingLevel": "GRD_HD",
		"beamMode":        "IW",
		"start":           "2020-01-01T00:00:00Z",
		"maxResults":      "10",
	}
	for k, val := range want {
		if got := v.Get(k); got != val {
			t.Errorf("%s = %q, want %q", k, got, val)
		}
	}
	if !strings.HasPrefix(q.Intersects, "POLYGON((") {
		t.Errorf("Intersects should be WKT, got %q", q.Intersects)
	}
	if q.End != nil {
		t.Errorf("End should be unset, got %v", q.End)
	}
}

func TestASFBackend_toQuery_UnknownSource(t *testing.T) {
	_, err := newTestASFBackend().toQuery(&SearchParams{SourceID: "LANDSAT/LC08/C02/T1_L2"})
	if !errors.Is(err, ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}
}

func TestASFBackend_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("dataset"); got != "SENTINEL-1" {
			t.Errorf("dataset = %q, want SENTINEL-1", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"type":"FeatureCollection","features":[
			{"type":"Feature",
			 "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]},
			 "properties":{"fileID":"S1A_A-GRD_HD","platform":"Sentinel-1A","polarization":"VV+VH",
			   "startTime":"2020-01-01T05:00:00.000000"}},
			{"type":"Feature","properties":{"platform":"Sentinel-1A"}}
		]}`))
	}))
	defer server.Close()

	backend := newTestASFBackend()
	backend.client = asf.NewClient(server.URL, 5*time.Second).WithLogger(testLogger())

	result, err := backend.Search(context.Background(), &SearchParams{SourceID: s1Source})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	// the feature without identifiers is dropped
	if len(result.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(result.Records))
	}
	r := result.Records[0]
	if r.ID != "S1A_A-GRD_HD" {
		t.Errorf("ID = %s", r.ID)
	}
	if got, _ := json.Marshal(r.Bands); string(got) != `["VV","VH","angle"]` {
		t.Errorf("Bands = %s", got)
	}
}
