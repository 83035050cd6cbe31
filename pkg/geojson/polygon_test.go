package geojson

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func mustBBox(t *testing.T, bbox []float64) *Geometry {
	t.Helper()
	g, err := NewPolygonFromBBox(bbox)
	if err != nil {
		t.Fatalf("NewPolygonFromBBox(%v) error: %v", bbox, err)
	}
	return g
}

func mustPolygon(t *testing.T, rings [][][]float64) *Geometry {
	t.Helper()
	g, err := NewPolygon(rings)
	if err != nil {
		t.Fatalf("NewPolygon() error: %v", err)
	}
	return g
}

// polygonArea sums exterior areas less hole areas.
func polygonArea(t *testing.T, g *Geometry) float64 {
	t.Helper()
	polygons, err := polygonsOf(g)
	if err != nil {
		t.Fatalf("polygonsOf() error: %v", err)
	}
	var area float64
	for _, polygon := range polygons {
		area += math.Abs(ringArea(polygon[0]))
		for _, hole := range polygon[1:] {
			area -= math.Abs(ringArea(hole))
		}
	}
	return area
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		geom    *Geometry
		wantErr error
	}{
		{
			name: "valid polygon",
			geom: &Geometry{Type: "Polygon", Coordinates: json.RawMessage(`[[[0,0],[1,0],[1,1],[0,1],[0,0]]]`)},
		},
		{
			name:    "no rings",
			geom:    &Geometry{Type: "Polygon", Coordinates: json.RawMessage(`[]`)},
			wantErr: ErrEmptyGeometry,
		},
		{
			name:    "empty ring",
			geom:    &Geometry{Type: "Polygon", Coordinates: json.RawMessage(`[[]]`)},
			wantErr: ErrEmptyGeometry,
		},
		{
			name:    "collinear ring",
			geom:    &Geometry{Type: "Polygon", Coordinates: json.RawMessage(`[[[0,0],[1,1],[2,2],[0,0]]]`)},
			wantErr: ErrDegenerateRing,
		},
		{
			name:    "empty multipolygon",
			geom:    &Geometry{Type: "MultiPolygon", Coordinates: json.RawMessage(`[]`)},
			wantErr: ErrEmptyGeometry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.geom)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_NotAreal(t *testing.T) {
	g := &Geometry{Type: "Point", Coordinates: json.RawMessage(`[1, 2]`)}
	if err := Validate(g); err == nil {
		t.Error("Validate() should reject a Point")
	}
	if err := Validate(nil); err == nil {
		t.Error("Validate() should reject nil")
	}
}

func TestIntersects(t *testing.T) {
	base := mustBBox(t, []float64{0, 0, 10, 10})

	tests := []struct {
		name  string
		other []float64
		want  bool
	}{
		{"overlapping", []float64{5, 5, 15, 15}, true},
		{"contained", []float64{2, 2, 3, 3}, true},
		{"containing", []float64{-5, -5, 20, 20}, true},
		{"touching edge", []float64{10, 0, 20, 10}, true},
		{"disjoint", []float64{11, 11, 20, 20}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Intersects(base, mustBBox(t, tt.other))
			if err != nil {
				t.Fatalf("Intersects() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Intersects() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntersection_Rectangles(t *testing.T) {
	a := mustBBox(t, []float64{0, 0, 10, 10})
	b := mustBBox(t, []float64{5, -5, 15, 5})

	got, err := Intersection(a, b)
	if err != nil {
		t.Fatalf("Intersection() error: %v", err)
	}
	if got == nil {
		t.Fatal("Intersection() = nil, want overlap")
	}

	bbox, err := got.BBox()
	if err != nil {
		t.Fatalf("BBox() error: %v", err)
	}
	if want := []float64{5, 0, 10, 5}; !floatSlicesEqual(bbox, want) {
		t.Errorf("Intersection() bbox = %v, want %v", bbox, want)
	}

	for _, container := range []*Geometry{a, b} {
		ok, err := Covers(container, got)
		if err != nil {
			t.Fatalf("Covers() error: %v", err)
		}
		if !ok {
			t.Error("intersection should be covered by both inputs")
		}
	}
}

func TestIntersection_Disjoint(t *testing.T) {
	got, err := Intersection(mustBBox(t, []float64{0, 0, 1, 1}), mustBBox(t, []float64{2, 2, 3, 3}))
	if err != nil {
		t.Fatalf("Intersection() error: %v", err)
	}
	if got != nil {
		t.Errorf("Intersection() = %v, want nil", got)
	}
}

func TestIntersection_TouchingIsEmpty(t *testing.T) {
	got, err := Intersection(mustBBox(t, []float64{0, 0, 1, 1}), mustBBox(t, []float64{1, 0, 2, 1}))
	if err != nil {
		t.Fatalf("Intersection() error: %v", err)
	}
	if got != nil {
		t.Errorf("Intersection() of edge-touching boxes = %v, want nil", got)
	}
}

func TestIntersection_ConcaveSubject(t *testing.T) {
	// L-shaped region clipped by a convex scene footprint.
	concave, err := NewPolygon([][][]float64{{
		{0, 0}, {10, 0}, {10, 4}, {4, 4}, {4, 10}, {0, 10}, {0, 0},
	}})
	if err != nil {
		t.Fatalf("NewPolygon() error: %v", err)
	}
	scene := mustBBox(t, []float64{2, 2, 6, 6})

	got, err := Intersection(concave, scene)
	if err != nil {
		t.Fatalf("Intersection() error: %v", err)
	}
	if got == nil {
		t.Fatal("Intersection() = nil, want overlap")
	}

	// 4x4 scene minus the 2x2 notch at [4,6]x[4,6]
	if area := polygonArea(t, got); math.Abs(area-12) > 1e-9 {
		t.Errorf("intersection area = %v, want 12", area)
	}
}

func TestIntersection_ConcaveBoth(t *testing.T) {
	// Bottom bar plus a left column, and bottom bar plus a right column:
	// only the bar is shared.
	left := mustPolygon(t, [][][]float64{{
		{0, 0}, {10, 0}, {10, 4}, {4, 4}, {4, 10}, {0, 10}, {0, 0},
	}})
	right := mustPolygon(t, [][][]float64{{
		{0, 0}, {10, 0}, {10, 10}, {6, 10}, {6, 4}, {0, 4}, {0, 0},
	}})

	got, err := Intersection(left, right)
	if err != nil {
		t.Fatalf("Intersection() error: %v", err)
	}
	if got == nil {
		t.Fatal("Intersection() = nil, want overlap")
	}

	bbox, err := got.BBox()
	if err != nil {
		t.Fatalf("BBox() error: %v", err)
	}
	if want := []float64{0, 0, 10, 4}; !floatSlicesEqual(bbox, want) {
		t.Errorf("Intersection() bbox = %v, want %v", bbox, want)
	}
	if area := polygonArea(t, got); math.Abs(area-40) > 1e-9 {
		t.Errorf("intersection area = %v, want 40", area)
	}
	for _, container := range []*Geometry{left, right} {
		ok, err := Covers(container, got)
		if err != nil {
			t.Fatalf("Covers() error: %v", err)
		}
		if !ok {
			t.Errorf("intersection %s should be covered by both inputs", got.Coordinates)
		}
	}
}

func TestIntersection_KeepsHoles(t *testing.T) {
	holed := mustPolygon(t, [][][]float64{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{4, 4}, {4, 6}, {6, 6}, {6, 4}, {4, 4}},
	})
	scene := mustBBox(t, []float64{2, 2, 8, 8})

	got, err := Intersection(holed, scene)
	if err != nil {
		t.Fatalf("Intersection() error: %v", err)
	}
	if got == nil {
		t.Fatal("Intersection() = nil, want overlap")
	}

	polygons, err := got.Polygons()
	if err != nil {
		t.Fatalf("Polygons() error: %v", err)
	}
	if len(polygons) != 1 || len(polygons[0]) != 2 {
		t.Fatalf("Intersection() = %s, want one polygon with one hole", got.Coordinates)
	}
	if area := polygonArea(t, got); math.Abs(area-32) > 1e-9 {
		t.Errorf("intersection area = %v, want 32", area)
	}
}

func TestIntersection_InsideHoleIsEmpty(t *testing.T) {
	holed := mustPolygon(t, [][][]float64{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{2, 2}, {2, 8}, {8, 8}, {8, 2}, {2, 2}},
	})

	got, err := Intersection(holed, mustBBox(t, []float64{4, 4, 6, 6}))
	if err != nil {
		t.Fatalf("Intersection() error: %v", err)
	}
	if got != nil {
		t.Errorf("Intersection() = %s, want nil", got.Coordinates)
	}
}

func TestIntersects_Holes(t *testing.T) {
	holed := mustPolygon(t, [][][]float64{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{2, 2}, {2, 8}, {8, 8}, {8, 2}, {2, 2}},
	})

	tests := []struct {
		name  string
		other []float64
		want  bool
	}{
		{"strictly inside hole", []float64{4, 4, 6, 6}, false},
		{"touching hole boundary", []float64{2, 4, 4, 6}, true},
		{"straddling hole boundary", []float64{1, 4, 3, 6}, true},
		{"covering hole", []float64{1, 1, 9, 9}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			footprint := mustBBox(t, tt.other)
			for _, pair := range [][2]*Geometry{{holed, footprint}, {footprint, holed}} {
				got, err := Intersects(pair[0], pair[1])
				if err != nil {
					t.Fatalf("Intersects() error: %v", err)
				}
				if got != tt.want {
					t.Errorf("Intersects() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestCovers_Holes(t *testing.T) {
	holed := mustPolygon(t, [][][]float64{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{4, 4}, {4, 6}, {6, 6}, {6, 4}, {4, 4}},
	})

	tests := []struct {
		name string
		g    []float64
		want bool
	}{
		{"beside hole", []float64{0, 0, 3, 3}, true},
		{"sharing hole edge", []float64{0, 4, 4, 6}, true},
		{"inside hole", []float64{4.5, 4.5, 5.5, 5.5}, false},
		{"surrounding hole", []float64{3, 3, 7, 7}, false},
		{"straddling hole", []float64{3, 4.5, 5, 5.5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Covers(holed, mustBBox(t, tt.g))
			if err != nil {
				t.Fatalf("Covers() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Covers() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnvelope(t *testing.T) {
	g, err := Envelope(mustBBox(t, []float64{0, 0, 1, 1}), mustBBox(t, []float64{5, -2, 6, 0}))
	if err != nil {
		t.Fatalf("Envelope() error: %v", err)
	}
	bbox, _ := g.BBox()
	if want := []float64{0, -2, 6, 1}; !floatSlicesEqual(bbox, want) {
		t.Errorf("Envelope() bbox = %v, want %v", bbox, want)
	}

	if _, err := Envelope(); !errors.Is(err, ErrEmptyGeometry) {
		t.Errorf("Envelope() error = %v, want ErrEmptyGeometry", err)
	}
}
