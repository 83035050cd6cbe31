package collection

import (
	"cmp"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/robert-malhotra/eoset/pkg/geojson"
)

const day = 24 * time.Hour

// JoinSpec configures a spatiotemporal join.
type JoinSpec struct {
	// Window is the largest time difference between matched records. Zero
	// selects the same-UTC-day policy.
	Window time.Duration

	// Prefix is prepended to the band names of the right-hand records.
	Prefix string

	// Clip further restricts output footprints. Nil means no clipping.
	Clip *geojson.Geometry
}

// Matches reports whether timestamps a and b fall in the same window.
func (s JoinSpec) Matches(a, b time.Time) bool {
	if s.Window <= 0 {
		return a.UTC().Truncate(day).Equal(b.UTC().Truncate(day))
	}
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= s.Window
}

type candidate struct {
	left, right int
	dt          time.Duration
	geom        *geojson.Geometry
}

// JoinRecords pairs left records with right records acquired within the
// window whose footprints overlap. Each record is used at most once; among
// competing candidates the pair closest in time wins, then the earlier left
// record, then the earlier right record. Output records carry the bands of
// both sides and the overlap of both footprints, sorted by time.
func JoinRecords(left, right []*Record, spec JoinSpec) ([]*Record, error) {
	order := make([]int, len(right))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(i, j int) int { return right[i].Time.Compare(right[j].Time) })

	var candidates []candidate
	for i, a := range left {
		if !a.HasTime() {
			continue
		}
		lo, hi := spec.searchRange(a.Time)
		from := sort.Search(len(order), func(k int) bool { return !right[order[k]].Time.Before(lo) })
		for k := from; k < len(order); k++ {
			j := order[k]
			b := right[j]
			if b.Time.After(hi) {
				break
			}
			if !b.HasTime() || !spec.Matches(a.Time, b.Time) {
				continue
			}
			geom, ok, err := overlap(a.Geometry, b.Geometry, spec.Clip)
			if err != nil {
				return nil, fmt.Errorf("join %s with %s: %w", a.ID, b.ID, err)
			}
			if !ok {
				continue
			}
			dt := a.Time.Sub(b.Time)
			if dt < 0 {
				dt = -dt
			}
			candidates = append(candidates, candidate{left: i, right: j, dt: dt, geom: geom})
		}
	}

	slices.SortFunc(candidates, func(x, y candidate) int {
		return cmp.Or(
			cmp.Compare(x.dt, y.dt),
			cmp.Compare(x.left, y.left),
			cmp.Compare(x.right, y.right),
		)
	})

	usedLeft := make(map[int]bool)
	usedRight := make(map[int]bool)
	var pairs []candidate
	for _, c := range candidates {
		if usedLeft[c.left] || usedRight[c.right] {
			continue
		}
		usedLeft[c.left] = true
		usedRight[c.right] = true
		pairs = append(pairs, c)
	}
	slices.SortFunc(pairs, func(x, y candidate) int { return cmp.Compare(x.left, y.left) })

	out := make([]*Record, 0, len(pairs))
	for _, p := range pairs {
		r, err := spec.combine(left[p.left], right[p.right], p.geom)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	SortByTime(out)
	return out, nil
}

// searchRange returns the inclusive time range holding every possible match
// for a record acquired at t.
func (s JoinSpec) searchRange(t time.Time) (time.Time, time.Time) {
	if s.Window <= 0 {
		start := t.UTC().Truncate(day)
		return start, start.Add(day)
	}
	return t.Add(-s.Window), t.Add(s.Window)
}

func (s JoinSpec) combine(a, b *Record, geom *geojson.Geometry) (*Record, error) {
	bands := slices.Clone(a.Bands)
	for _, name := range b.Bands {
		name = s.Prefix + name
		if slices.Contains(bands, name) {
			return nil, fmt.Errorf("join %s with %s: %w: %q", a.ID, b.ID, ErrBandCollision, name)
		}
		bands = append(bands, name)
	}

	props := make(map[string]any, len(a.Properties)+len(b.Properties))
	for k, v := range b.Properties {
		props[k] = v
	}
	for k, v := range a.Properties {
		props[k] = v
	}

	t := a.Time
	if s.Window <= 0 {
		t = a.Time.UTC().Truncate(day)
	}

	return &Record{
		ID:         a.ID + "_" + b.ID,
		Time:       t,
		Geometry:   geom,
		Bands:      bands,
		Properties: props,
	}, nil
}

// overlap intersects two footprints and an optional clip region.
func overlap(a, b, clip *geojson.Geometry) (*geojson.Geometry, bool, error) {
	g, ok, err := IntersectRegions(a, b)
	if err != nil || !ok {
		return nil, false, err
	}
	return IntersectRegions(g, clip)
}

// CollidingBands returns the band names that would appear twice when right
// is joined to left with prefix.
func CollidingBands(left, right []string, prefix string) []string {
	var out []string
	for _, name := range right {
		if slices.Contains(left, prefix+name) {
			out = append(out, prefix+name)
		}
	}
	return out
}
