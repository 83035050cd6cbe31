// Package integration provides live integration tests against the Earth
// Search STAC API and the ASF Search API.
// Run with: go test -v ./internal/integration -tags=integration
//go:build integration

package integration

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/robert-malhotra/eoset/pkg/server"
)

// Small area around Fairbanks, Alaska, covered by Sentinel-1 and Sentinel-2.
const (
	testBBox     = "-147.9,64.8,-147.6,64.9"
	testDatetime = "2023-06-01/2023-07-01"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	s, err := server.New(server.Options{
		Timeout:   60 * time.Second,
		RateLimit: 2,
		MaxLimit:  50,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}

	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, ts *httptest.Server, path string, extra url.Values) map[string]any {
	t.Helper()

	q := url.Values{"bbox": {testBBox}, "datetime": {testDatetime}}
	for k, v := range extra {
		q[k] = v
	}

	resp, err := http.Get(ts.URL + path + "?" + q.Encode())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, body)
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return out
}

func TestSentinel2Summary(t *testing.T) {
	ts := setupTestServer(t)

	summary := getJSON(t, ts, "/presets/sentinel-2/summary", nil)
	n, _ := summary["n_images"].(float64)
	if n == 0 {
		t.Fatal("expected Sentinel-2 acquisitions over Fairbanks in June 2023")
	}
	t.Logf("sentinel-2: %v images", n)

	dates, _ := summary["dates"].([]any)
	for i := 1; i < len(dates); i++ {
		if dates[i].(string) < dates[i-1].(string) {
			t.Errorf("dates are not ascending at %d: %v < %v", i, dates[i], dates[i-1])
		}
	}
}

func TestSentinel1Items(t *testing.T) {
	ts := setupTestServer(t)

	items := getJSON(t, ts, "/presets/sentinel-1/items", url.Values{"limit": {"5"}})
	features, _ := items["features"].([]any)
	if len(features) == 0 {
		t.Fatal("expected Sentinel-1 GRD scenes from ASF")
	}

	first := features[0].(map[string]any)
	props := first["properties"].(map[string]any)
	if props["qa:policy"] != "s1_border_noise" {
		t.Errorf("expected border noise qa, got %v", props["qa:policy"])
	}
}

func TestLowCloudFilter(t *testing.T) {
	ts := setupTestServer(t)

	all := getJSON(t, ts, "/presets/sentinel-2/items", nil)
	filtered := getJSON(t, ts, "/presets/sentinel-2/items", url.Values{
		"filter": {`{"op":"<","args":[{"property":"eo:cloud_cover"},20]}`},
	})

	total, _ := all["numberMatched"].(float64)
	lowCloud, _ := filtered["numberMatched"].(float64)
	if lowCloud > total {
		t.Errorf("filtered count %v exceeds total %v", lowCloud, total)
	}
	t.Logf("sentinel-2: %v of %v scenes below 20%% cloud", lowCloud, total)
}

func TestJoinSentinel1Sentinel2(t *testing.T) {
	ts := setupTestServer(t)

	joined := getJSON(t, ts, "/compose/join", url.Values{
		"left":   {"sentinel-2"},
		"right":  {"sentinel-1"},
		"window": {"72h"},
	})

	s2 := getJSON(t, ts, "/presets/sentinel-2/summary", nil)
	s1 := getJSON(t, ts, "/presets/sentinel-1/summary", nil)

	pairs, _ := joined["numberMatched"].(float64)
	if pairs > s2["n_images"].(float64) || pairs > s1["n_images"].(float64) {
		t.Errorf("join produced %v pairs, more than either side", pairs)
	}
	t.Logf("sentinel-2 * sentinel-1: %v pairs", pairs)
}
