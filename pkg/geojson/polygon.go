package geojson

import (
	"errors"
	"fmt"
	"math"
	"sort"

	polyclip "github.com/ctessum/polyclip-go"
)

var (
	// ErrEmptyGeometry is returned when a geometry has no usable coordinates.
	ErrEmptyGeometry = errors.New("geometry has no coordinates")

	// ErrNonFiniteCoordinate is returned when a coordinate is NaN or infinite.
	ErrNonFiniteCoordinate = errors.New("geometry has a non-finite coordinate")

	// ErrDegenerateRing is returned when an exterior ring encloses no area.
	ErrDegenerateRing = errors.New("polygon ring encloses no area")
)

// eps is the planar tolerance used for on-boundary tests.
const eps = 1e-9

type point [2]float64

// Validate checks that g is a bounded areal geometry: a Polygon or
// MultiPolygon with at least one ring, finite coordinates and a non-zero
// exterior area.
func Validate(g *Geometry) error {
	polygons, err := g.Polygons()
	if err != nil {
		return err
	}
	if len(polygons) == 0 {
		return ErrEmptyGeometry
	}

	for i, polygon := range polygons {
		if len(polygon) == 0 || len(polygon[0]) == 0 {
			return fmt.Errorf("polygon %d: %w", i, ErrEmptyGeometry)
		}
		for _, ring := range polygon {
			for _, p := range ring {
				if len(p) < 2 {
					return fmt.Errorf("polygon %d: position must have at least 2 coordinates", i)
				}
				if !isFinite(p[0]) || !isFinite(p[1]) {
					return fmt.Errorf("polygon %d: %w", i, ErrNonFiniteCoordinate)
				}
			}
		}
		exterior := toRing(polygon[0])
		if len(exterior) < 3 || math.Abs(ringArea(exterior)) < eps*eps {
			return fmt.Errorf("polygon %d: %w", i, ErrDegenerateRing)
		}
	}
	return nil
}

// Intersects reports whether a and b share at least one point. A polygon
// lying strictly inside a hole of the other does not intersect it.
func Intersects(a, b *Geometry) (bool, error) {
	pa, err := polygonsOf(a)
	if err != nil {
		return false, err
	}
	pb, err := polygonsOf(b)
	if err != nil {
		return false, err
	}

	for _, x := range pa {
		for _, y := range pb {
			if !ringsIntersect(x[0], y[0]) {
				continue
			}
			if insideHole(y[0], x[1:]) || insideHole(x[0], y[1:]) {
				continue
			}
			return true, nil
		}
	}
	return false, nil
}

// Intersection returns the area shared by a and b, holes included, or nil
// when they share no positive area. A single part is returned as a
// Polygon, several as a MultiPolygon.
func Intersection(a, b *Geometry) (*Geometry, error) {
	pa, err := polygonsOf(a)
	if err != nil {
		return nil, err
	}
	pb, err := polygonsOf(b)
	if err != nil {
		return nil, err
	}
	if !bboxOverlap(polygonsBBox(pa), polygonsBBox(pb)) {
		return nil, nil
	}

	out := toClip(pa).Construct(polyclip.INTERSECTION, toClip(pb))
	parts := fromClip(out)

	switch len(parts) {
	case 0:
		return nil, nil
	case 1:
		return NewPolygon(parts[0])
	default:
		return NewMultiPolygon(parts)
	}
}

// Envelope returns the smallest axis-aligned polygon containing every
// geometry.
func Envelope(gs ...*Geometry) (*Geometry, error) {
	if len(gs) == 0 {
		return nil, ErrEmptyGeometry
	}

	bbox := []float64{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for _, g := range gs {
		b, err := g.BBox()
		if err != nil {
			return nil, err
		}
		bbox = unionBBox(bbox, b)
	}
	return NewPolygonFromBBox(bbox)
}

// Covers reports whether every exterior vertex of g lies inside or on the
// boundary of one of container's polygons, outside its holes, and no hole
// of container reaches into g.
func Covers(container, g *Geometry) (bool, error) {
	outer, err := polygonsOf(container)
	if err != nil {
		return false, err
	}
	inner, err := polygonsOf(g)
	if err != nil {
		return false, err
	}

	for _, polygon := range inner {
		ring := polygon[0]
		for _, p := range ring {
			if !pointCovered(p, outer) {
				return false, nil
			}
		}
		for _, c := range outer {
			for _, hole := range c[1:] {
				if ringsOverlap(ring, hole) {
					return false, nil
				}
			}
		}
	}
	return true, nil
}

func pointCovered(p point, polygons [][][]point) bool {
	for _, c := range polygons {
		if !pointInRing(p, c[0]) && !pointOnRing(p, c[0]) {
			continue
		}
		inHole := false
		for _, hole := range c[1:] {
			if pointInRing(p, hole) && !pointOnRing(p, hole) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// polygonsOf returns every polygon of g as open rings, exterior first.
// Rings with fewer than three vertices are dropped.
func polygonsOf(g *Geometry) ([][][]point, error) {
	polygons, err := g.Polygons()
	if err != nil {
		return nil, err
	}
	out := make([][][]point, 0, len(polygons))
	for _, polygon := range polygons {
		if len(polygon) == 0 {
			continue
		}
		exterior := toRing(polygon[0])
		if len(exterior) < 3 {
			continue
		}
		rings := [][]point{exterior}
		for _, hole := range polygon[1:] {
			if r := toRing(hole); len(r) >= 3 {
				rings = append(rings, r)
			}
		}
		out = append(out, rings)
	}
	if len(out) == 0 {
		return nil, ErrEmptyGeometry
	}
	return out, nil
}

// toRing converts GeoJSON positions to an open ring (closing point dropped).
func toRing(coords [][]float64) []point {
	ring := make([]point, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		ring = append(ring, point{c[0], c[1]})
	}
	if n := len(ring); n > 1 && ring[0] == ring[n-1] {
		ring = ring[:n-1]
	}
	return ring
}

func closeRing(ring []point) [][]float64 {
	out := make([][]float64, 0, len(ring)+1)
	for _, p := range ring {
		out = append(out, []float64{p[0], p[1]})
	}
	return append(out, []float64{ring[0][0], ring[0][1]})
}

// toClip flattens polygons into a single contour set; the clipper treats
// nested contours as holes.
func toClip(polygons [][][]point) polyclip.Polygon {
	var out polyclip.Polygon
	for _, polygon := range polygons {
		for _, ring := range polygon {
			c := make(polyclip.Contour, len(ring))
			for i, p := range ring {
				c[i] = polyclip.Point{X: p[0], Y: p[1]}
			}
			out = append(out, c)
		}
	}
	return out
}

// fromClip rebuilds GeoJSON polygons from clipper contours. A contour
// nested in an odd number of others is a hole of the smallest exterior
// containing it. Exteriors are counter-clockwise, holes clockwise.
func fromClip(p polyclip.Polygon) [][][][]float64 {
	var rings [][]point
	for _, c := range p {
		ring := make([]point, 0, len(c))
		for _, v := range c {
			ring = append(ring, point{v.X, v.Y})
		}
		ring = dedupe(ring)
		if len(ring) < 3 || math.Abs(ringArea(ring)) < eps*eps {
			continue
		}
		rings = append(rings, ring)
	}

	depth := make([]int, len(rings))
	for i, r := range rings {
		for j, other := range rings {
			if i != j && ringInside(r, other) {
				depth[i]++
			}
		}
	}

	var exteriors []int
	for i := range rings {
		if depth[i]%2 == 0 {
			exteriors = append(exteriors, i)
		}
	}
	sort.SliceStable(exteriors, func(x, y int) bool {
		return math.Abs(ringArea(rings[exteriors[x]])) > math.Abs(ringArea(rings[exteriors[y]]))
	})

	holes := make(map[int][]int, len(exteriors))
	for i, r := range rings {
		if depth[i]%2 == 0 {
			continue
		}
		owner, best := -1, math.Inf(1)
		for _, e := range exteriors {
			if depth[e] != depth[i]-1 || !ringInside(r, rings[e]) {
				continue
			}
			if area := math.Abs(ringArea(rings[e])); area < best {
				owner, best = e, area
			}
		}
		if owner >= 0 {
			holes[owner] = append(holes[owner], i)
		}
	}

	out := make([][][][]float64, 0, len(exteriors))
	for _, e := range exteriors {
		polygon := [][][]float64{closeRing(orient(rings[e], true))}
		for _, h := range holes[e] {
			polygon = append(polygon, closeRing(orient(rings[h], false)))
		}
		out = append(out, polygon)
	}
	return out
}

// orient returns ring wound counter-clockwise when ccw is set, clockwise
// otherwise.
func orient(ring []point, ccw bool) []point {
	if (ringArea(ring) > 0) == ccw {
		return ring
	}
	out := make([]point, len(ring))
	for i, p := range ring {
		out[len(ring)-1-i] = p
	}
	return out
}

// ringInside reports whether inner lies within outer, judged by the first
// vertex of inner that is not on outer's boundary.
func ringInside(inner, outer []point) bool {
	for _, p := range inner {
		if pointOnRing(p, outer) {
			continue
		}
		return pointInRing(p, outer)
	}
	return false
}

// insideHole reports whether ring lies strictly inside one of holes.
func insideHole(ring []point, holes [][]point) bool {
	for _, hole := range holes {
		if ringsTouch(ring, hole) {
			continue
		}
		if pointInRing(ring[0], hole) {
			return true
		}
	}
	return false
}

// ringsOverlap reports whether a and b share interior area.
func ringsOverlap(a, b []point) bool {
	for i := range a {
		a1, a2 := a[i], a[(i+1)%len(a)]
		for j := range b {
			if segmentsCross(a1, a2, b[j], b[(j+1)%len(b)]) {
				return true
			}
		}
	}
	return ringInside(a, b) || ringInside(b, a)
}

// ringsTouch reports whether any edge of a meets any edge of b.
func ringsTouch(a, b []point) bool {
	for i := range a {
		a1, a2 := a[i], a[(i+1)%len(a)]
		for j := range b {
			if segmentsIntersect(a1, a2, b[j], b[(j+1)%len(b)]) {
				return true
			}
		}
	}
	return false
}

// ringArea is the signed shoelace area; positive for counter-clockwise rings.
func ringArea(ring []point) float64 {
	var sum float64
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
	}
	return sum / 2
}

func cross(o, a, b point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func dedupe(ring []point) []point {
	out := ring[:0:0]
	for _, p := range ring {
		if n := len(out); n > 0 && samePoint(out[n-1], p) {
			continue
		}
		out = append(out, p)
	}
	if n := len(out); n > 1 && samePoint(out[0], out[n-1]) {
		out = out[:n-1]
	}
	return out
}

func samePoint(a, b point) bool {
	return math.Abs(a[0]-b[0]) < eps && math.Abs(a[1]-b[1]) < eps
}

func ringsIntersect(a, b []point) bool {
	if !bboxOverlap(ringBBox(a), ringBBox(b)) {
		return false
	}
	for i := range a {
		a1, a2 := a[i], a[(i+1)%len(a)]
		for j := range b {
			if segmentsIntersect(a1, a2, b[j], b[(j+1)%len(b)]) {
				return true
			}
		}
	}
	return pointInRing(a[0], b) || pointInRing(b[0], a)
}

// segmentsCross reports whether p1p2 and q1q2 cross at a single interior
// point of both.
func segmentsCross(p1, p2, q1, q2 point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)
	return ((d1 > eps && d2 < -eps) || (d1 < -eps && d2 > eps)) &&
		((d3 > eps && d4 < -eps) || (d3 < -eps && d4 > eps))
}

func segmentsIntersect(p1, p2, q1, q2 point) bool {
	if segmentsCross(p1, p2, q1, q2) {
		return true
	}
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)
	return (math.Abs(d1) <= eps && onSegment(q1, q2, p1)) ||
		(math.Abs(d2) <= eps && onSegment(q1, q2, p2)) ||
		(math.Abs(d3) <= eps && onSegment(p1, p2, q1)) ||
		(math.Abs(d4) <= eps && onSegment(p1, p2, q2))
}

func onSegment(a, b, p point) bool {
	return p[0] >= math.Min(a[0], b[0])-eps && p[0] <= math.Max(a[0], b[0])+eps &&
		p[1] >= math.Min(a[1], b[1])-eps && p[1] <= math.Max(a[1], b[1])+eps
}

// pointInRing is an even-odd ray cast; boundary points are undefined.
func pointInRing(p point, ring []point) bool {
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a[1] > p[1]) != (b[1] > p[1]) &&
			p[0] < (b[0]-a[0])*(p[1]-a[1])/(b[1]-a[1])+a[0] {
			inside = !inside
		}
	}
	return inside
}

func pointOnRing(p point, ring []point) bool {
	for i := range ring {
		a, b := ring[i], ring[(i+1)%len(ring)]
		if math.Abs(cross(a, b, p)) <= eps && onSegment(a, b, p) {
			return true
		}
	}
	return false
}

func ringBBox(ring []point) []float64 {
	bbox := []float64{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for _, p := range ring {
		bbox = unionBBox(bbox, []float64{p[0], p[1], p[0], p[1]})
	}
	return bbox
}

func polygonsBBox(polygons [][][]point) []float64 {
	bbox := []float64{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for _, polygon := range polygons {
		bbox = unionBBox(bbox, ringBBox(polygon[0]))
	}
	return bbox
}

func unionBBox(a, b []float64) []float64 {
	return []float64{
		math.Min(a[0], b[0]),
		math.Min(a[1], b[1]),
		math.Max(a[2], b[2]),
		math.Max(a[3], b[3]),
	}
}

func bboxOverlap(a, b []float64) bool {
	return a[0] <= b[2]+eps && b[0] <= a[2]+eps && a[1] <= b[3]+eps && b[1] <= a[3]+eps
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
