package collection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/eoset/pkg/geojson"
)

var epoch = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

func box(t *testing.T, bbox ...float64) *geojson.Geometry {
	t.Helper()
	g, err := geojson.NewPolygonFromBBox(bbox)
	require.NoError(t, err)
	return g
}

func rec(t *testing.T, id string, at time.Time, bbox []float64, bands ...string) *Record {
	t.Helper()
	r := &Record{ID: id, Time: at, Bands: bands, Properties: map[string]any{"id": id}}
	if bbox != nil {
		r.Geometry = box(t, bbox...)
	}
	return r
}

func ids(records []*Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
