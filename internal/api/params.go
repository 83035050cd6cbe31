package api

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/planetlabs/go-ogc/filter"

	"github.com/robert-malhotra/eoset/pkg/geojson"
)

// Query parameter names.
const (
	paramBBox     = "bbox"
	paramDatetime = "datetime"
	paramQA       = "qa"
	paramFilter   = "filter"
	paramLang     = "filter-lang"
	paramLimit    = "limit"
	paramReducer  = "reducer"
	paramDates    = "dates"
	paramPeriod   = "period"
	paramLeft     = "left"
	paramRight    = "right"
	paramWindow   = "window"
	paramPrefix   = "prefix"
)

// datasetQuery holds the parameters shared by every dataset endpoint.
type datasetQuery struct {
	Region *geojson.Geometry
	Start  time.Time
	End    time.Time
	QA     bool
	Filter *filter.Filter
}

func parseDatasetQuery(q url.Values) (*datasetQuery, error) {
	region, err := parseBBox(q.Get(paramBBox))
	if err != nil {
		return nil, err
	}

	start, end, err := parseInterval(q.Get(paramDatetime))
	if err != nil {
		return nil, err
	}

	qa := true
	if v := q.Get(paramQA); v != "" {
		qa, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid qa value %q", v)
		}
	}

	f, err := parseFilter(q.Get(paramFilter), q.Get(paramLang))
	if err != nil {
		return nil, err
	}

	return &datasetQuery{Region: region, Start: start, End: end, QA: qa, Filter: f}, nil
}

// parseBBox parses "minx,miny,maxx,maxy" into a polygon.
func parseBBox(s string) (*geojson.Geometry, error) {
	if s == "" {
		return nil, fmt.Errorf("bbox is required")
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values, got %d", len(parts))
	}

	bbox := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox value %q", p)
		}
		bbox[i] = v
	}

	g, err := geojson.NewPolygonFromBBox(bbox)
	if err != nil {
		return nil, fmt.Errorf("invalid bbox: %w", err)
	}
	return g, nil
}

// parseInterval parses a closed "start/end" interval. Open ends are not
// accepted since every dataset is bounded in time.
func parseInterval(s string) (time.Time, time.Time, error) {
	if s == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("datetime is required")
	}

	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid datetime interval format: must be 'start/end'")
	}

	startStr := strings.TrimSpace(parts[0])
	endStr := strings.TrimSpace(parts[1])
	if startStr == "" || startStr == ".." || endStr == "" || endStr == ".." {
		return time.Time{}, time.Time{}, fmt.Errorf("datetime interval must be closed")
	}

	start, err := parseTime(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start datetime: %w", err)
	}

	end, err := parseTime(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end datetime: %w", err)
	}

	return start, end, nil
}

// parseTime accepts RFC3339 timestamps and plain dates.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC3339 nor YYYY-MM-DD", s)
	}
	return t, nil
}

// parseFilter decodes a CQL2-JSON filter. An empty string means no filter.
func parseFilter(s, lang string) (*filter.Filter, error) {
	if s == "" {
		return nil, nil
	}
	if lang != "" && lang != "cql2-json" {
		return nil, fmt.Errorf("unsupported filter-lang %q, must be cql2-json", lang)
	}

	f := &filter.Filter{}
	if err := json.Unmarshal([]byte(s), f); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	return f, nil
}

// parseDates parses a comma-separated list of dates, keeping the order.
func parseDates(s string) ([]time.Time, error) {
	if s == "" {
		return nil, nil
	}

	var dates []time.Time
	for _, p := range strings.Split(s, ",") {
		t, err := parseTime(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid date: %w", err)
		}
		dates = append(dates, t)
	}
	return dates, nil
}

// parseInt parses an optional integer, returning def when s is empty.
func parseInt(name, s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

// parseDuration parses an optional Go duration, returning 0 when s is empty.
func parseDuration(name, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return d, nil
}
