package asf

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Query selects granules from the search endpoint. Zero fields are omitted.
type Query struct {
	Datasets         []string
	Platforms        []string
	BeamModes        []string
	Polarizations    []string
	ProcessingLevels []string
	FlightDirection  string

	// Intersects is a WKT geometry.
	Intersects string
	Start, End *time.Time

	MaxResults int
}

// Values encodes the query. Results are always requested as GeoJSON.
func (q Query) Values() url.Values {
	v := url.Values{"output": {"geojson"}}
	v["dataset"] = q.Datasets
	v["platform"] = q.Platforms
	v["beamMode"] = q.BeamModes
	v["polarization"] = q.Polarizations
	if len(q.ProcessingLevels) > 0 {
		// the endpoint takes one comma separated value here
		v.Set("processingLevel", strings.Join(q.ProcessingLevels, ","))
	}
	if q.FlightDirection != "" {
		v.Set("flightDirection", q.FlightDirection)
	}
	if q.Intersects != "" {
		v.Set("intersectsWith", q.Intersects)
	}
	if q.Start != nil {
		v.Set("start", formatTime(*q.Start))
	}
	if q.End != nil {
		v.Set("end", formatTime(*q.End))
	}
	if q.MaxResults > 0 {
		v.Set("maxResults", strconv.Itoa(q.MaxResults))
	}
	for k, vals := range v {
		if len(vals) == 0 {
			delete(v, k)
		}
	}
	return v
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
