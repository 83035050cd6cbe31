package collection

import (
	"fmt"
	"slices"
	"time"

	"github.com/robert-malhotra/eoset/pkg/geojson"
)

// Info summarises the metadata of an evaluated collection. It is what a
// single metadata round trip returns.
type Info struct {
	// Count is the number of records.
	Count int `json:"count"`

	// Timestamps holds the acquisition times of timed records, ascending.
	Timestamps []time.Time `json:"timestamps"`

	// Extent is the bounding box of all footprints as
	// [minX, minY, maxX, maxY]. Nil means at least one footprint is
	// unbounded, or there are no records.
	Extent []float64 `json:"extent,omitempty"`

	// Bands lists the bands common to every record, in the order of the
	// first record.
	Bands []string `json:"bands"`

	// Untimed counts records without an acquisition timestamp.
	Untimed int `json:"untimed"`
}

// Describe computes the Info of records.
func Describe(records []*Record) (Info, error) {
	info := Info{Count: len(records)}
	if len(records) == 0 {
		return info, nil
	}

	bounded := true
	for i, r := range records {
		if r.HasTime() {
			info.Timestamps = append(info.Timestamps, r.Time)
		} else {
			info.Untimed++
		}

		if i == 0 {
			info.Bands = slices.Clone(r.Bands)
		} else {
			info.Bands = slices.DeleteFunc(info.Bands, func(b string) bool { return !r.HasBand(b) })
		}

		if r.Geometry == nil {
			bounded = false
			continue
		}
		if !bounded {
			continue
		}
		bbox, err := r.Geometry.BBox()
		if err != nil {
			return Info{}, fmt.Errorf("record %s: %w", r.ID, err)
		}
		info.Extent = mergeBBox(info.Extent, bbox)
	}

	if !bounded {
		info.Extent = nil
	}
	slices.SortFunc(info.Timestamps, time.Time.Compare)
	return info, nil
}

// Region returns the extent as a polygon, or nil when the extent is unbounded.
func (i Info) Region() (*geojson.Geometry, error) {
	if i.Extent == nil {
		return nil, nil
	}
	return geojson.NewPolygonFromBBox(i.Extent)
}

func mergeBBox(a, b []float64) []float64 {
	if a == nil {
		return slices.Clone(b)
	}
	return []float64{min(a[0], b[0]), min(a[1], b[1]), max(a[2], b[2]), max(a[3], b[3])}
}
