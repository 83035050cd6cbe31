package collection

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"time"

	"github.com/robert-malhotra/eoset/pkg/geojson"
)

// Reducer names accepted by AggregateRecords.
const (
	ReducerMedian = "median"
	ReducerMean   = "mean"
	ReducerMin    = "min"
	ReducerMax    = "max"
	ReducerMode   = "mode"
	ReducerFirst  = "first"
	ReducerLast   = "last"
)

// Properties set on composite records.
const (
	PropCompositeCount   = "composite:count"
	PropCompositeReducer = "composite:reducer"
)

var numericReducers = map[string]func([]float64) float64{
	ReducerMedian: median,
	ReducerMean:   mean,
	ReducerMin:    slices.Min[[]float64],
	ReducerMax:    slices.Max[[]float64],
	ReducerMode:   mode,
}

// ValidateReducer returns ErrUnknownReducer for unsupported reducer names.
func ValidateReducer(name string) error {
	if name == ReducerFirst || name == ReducerLast {
		return nil
	}
	if _, ok := numericReducers[name]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownReducer, name)
}

// Bucket is the half-open time window [Start, End).
type Bucket struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the bucket.
func (b Bucket) Contains(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End)
}

// DateBuckets returns one bucket per date, each periodDays long. Order is
// preserved and overlapping windows are allowed.
func DateBuckets(dates []time.Time, periodDays int) []Bucket {
	if periodDays <= 0 {
		periodDays = 1
	}
	buckets := make([]Bucket, len(dates))
	for i, d := range dates {
		buckets[i] = Bucket{Start: d, End: d.AddDate(0, 0, periodDays)}
	}
	return buckets
}

// DayBuckets returns one bucket per distinct UTC day holding a timed record,
// ascending.
func DayBuckets(records []*Record) []Bucket {
	var days []time.Time
	for _, r := range records {
		if !r.HasTime() {
			continue
		}
		d := r.Time.UTC().Truncate(day)
		if !slices.ContainsFunc(days, d.Equal) {
			days = append(days, d)
		}
	}
	slices.SortFunc(days, time.Time.Compare)
	return DateBuckets(days, 1)
}

// AggregateSpec configures a temporal aggregation.
type AggregateSpec struct {
	Reducer string

	// Buckets lists the windows to reduce, in output order. Nil buckets the
	// records by distinct UTC day.
	Buckets []Bucket
}

// AggregateRecords reduces the records in each bucket into one record
// stamped with the bucket start. Empty buckets produce no record.
//
// The first and last reducers return the earliest or latest record of the
// bucket, restamped. The other reducers build a composite exposing the bands
// common to the bucket and the envelope of the footprints. Numeric properties
// shared by all inputs are reduced with the same reducer; other properties
// are kept when every input agrees.
func AggregateRecords(records []*Record, spec AggregateSpec) ([]*Record, error) {
	if err := ValidateReducer(spec.Reducer); err != nil {
		return nil, err
	}

	buckets := spec.Buckets
	if buckets == nil {
		buckets = DayBuckets(records)
	}

	sorted := slices.Clone(records)
	SortByTime(sorted)

	out := make([]*Record, 0, len(buckets))
	for _, b := range buckets {
		var members []*Record
		for _, r := range sorted {
			if r.HasTime() && b.Contains(r.Time) {
				members = append(members, r)
			}
		}
		if len(members) == 0 {
			continue
		}

		var (
			r   *Record
			err error
		)
		switch spec.Reducer {
		case ReducerFirst:
			r = members[0].Clone()
		case ReducerLast:
			r = members[len(members)-1].Clone()
		default:
			r, err = composite(members, spec.Reducer, b)
		}
		if err != nil {
			return nil, err
		}
		r.Time = b.Start
		out = append(out, r)
	}
	return out, nil
}

func composite(members []*Record, reducer string, b Bucket) (*Record, error) {
	info, err := Describe(members)
	if err != nil {
		return nil, err
	}

	var geom *geojson.Geometry
	if info.Extent != nil {
		if geom, err = geojson.NewPolygonFromBBox(info.Extent); err != nil {
			return nil, err
		}
	}

	reduce := numericReducers[reducer]
	props := map[string]any{
		PropCompositeCount:   len(members),
		PropCompositeReducer: reducer,
	}
	for _, key := range slices.Sorted(maps.Keys(members[0].Properties)) {
		values := make([]float64, 0, len(members))
		for _, m := range members {
			v, ok := toFloat(m.Properties[key])
			if !ok {
				break
			}
			values = append(values, v)
		}
		switch {
		case len(values) == len(members):
			props[key] = reduce(values)
		case agree(members, key):
			props[key] = members[0].Properties[key]
		}
	}

	return &Record{
		ID:         fmt.Sprintf("%s_%s", reducer, b.Start.UTC().Format("20060102")),
		Geometry:   geom,
		Bands:      info.Bands,
		Properties: props,
	}, nil
}

// agree reports whether every member carries the same value for key.
func agree(members []*Record, key string) bool {
	first := members[0].Properties[key]
	for _, m := range members[1:] {
		v, ok := m.Properties[key]
		if !ok || !reflect.DeepEqual(v, first) {
			return false
		}
	}
	return true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func median(values []float64) float64 {
	s := slices.Clone(values)
	slices.Sort(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// mode returns the most frequent value, the smallest on ties.
func mode(values []float64) float64 {
	counts := make(map[float64]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	best := values[0]
	for v, n := range counts {
		if n > counts[best] || (n == counts[best] && cmp.Less(v, best)) {
			best = v
		}
	}
	return best
}
