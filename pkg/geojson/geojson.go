// Package geojson holds the GeoJSON geometry type shared by records and
// regions, together with the planar polygon operations used on footprints.
package geojson

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Geometry types understood here.
const (
	TypePoint        = "Point"
	TypePolygon      = "Polygon"
	TypeMultiPolygon = "MultiPolygon"
)

// Geometry is a GeoJSON geometry whose coordinates are decoded on demand.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

func encode(typ string, coords any) (*Geometry, error) {
	raw, err := json.Marshal(coords)
	if err != nil {
		return nil, fmt.Errorf("encoding %s coordinates: %w", typ, err)
	}
	return &Geometry{Type: typ, Coordinates: raw}, nil
}

// decode unmarshals the coordinates of g, which must be of type typ.
func decode[T any](g *Geometry, typ string) (T, error) {
	var coords T
	if g == nil {
		return coords, fmt.Errorf("nil geometry, want %s", typ)
	}
	if g.Type != typ {
		return coords, fmt.Errorf("%s geometry, want %s", g.Type, typ)
	}
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return coords, fmt.Errorf("decoding %s coordinates: %w", typ, err)
	}
	return coords, nil
}

// NewPolygon builds a Polygon from an exterior ring and optional holes.
func NewPolygon(rings [][][]float64) (*Geometry, error) {
	return encode(TypePolygon, rings)
}

// NewMultiPolygon builds a MultiPolygon.
func NewMultiPolygon(polygons [][][][]float64) (*Geometry, error) {
	return encode(TypeMultiPolygon, polygons)
}

// NewPolygonFromBBox builds the rectangle of bbox, given as
// [minLon, minLat, maxLon, maxLat].
func NewPolygonFromBBox(bbox []float64) (*Geometry, error) {
	if len(bbox) != 4 {
		return nil, fmt.Errorf("bbox needs 4 numbers, got %d", len(bbox))
	}
	x0, y0, x1, y1 := bbox[0], bbox[1], bbox[2], bbox[3]
	if x0 > x1 || y0 > y1 {
		return nil, fmt.Errorf("bbox %v has min greater than max", bbox)
	}
	return NewPolygon([][][]float64{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}})
}

// Point decodes a Point as [lon, lat].
func (g *Geometry) Point() ([]float64, error) {
	p, err := decode[[]float64](g, TypePoint)
	if err == nil && len(p) < 2 {
		err = fmt.Errorf("point has %d ordinates", len(p))
	}
	return p, err
}

// Polygon decodes a Polygon's rings.
func (g *Geometry) Polygon() ([][][]float64, error) {
	return decode[[][][]float64](g, TypePolygon)
}

// MultiPolygon decodes a MultiPolygon's polygons.
func (g *Geometry) MultiPolygon() ([][][][]float64, error) {
	return decode[[][][][]float64](g, TypeMultiPolygon)
}

// Polygons decodes a Polygon or MultiPolygon as a list of polygons.
func (g *Geometry) Polygons() ([][][][]float64, error) {
	if g != nil && g.Type == TypePolygon {
		p, err := g.Polygon()
		if err != nil {
			return nil, err
		}
		return [][][][]float64{p}, nil
	}
	return g.MultiPolygon()
}

// Clone returns a copy of g that shares no memory with it.
func (g *Geometry) Clone() *Geometry {
	if g == nil {
		return nil
	}
	return &Geometry{Type: g.Type, Coordinates: append(json.RawMessage(nil), g.Coordinates...)}
}

// BBox returns [minLon, minLat, maxLon, maxLat] over every vertex of g.
func (g *Geometry) BBox() ([]float64, error) {
	if g != nil && g.Type == TypePoint {
		p, err := g.Point()
		if err != nil {
			return nil, err
		}
		return []float64{p[0], p[1], p[0], p[1]}, nil
	}

	polygons, err := g.Polygons()
	if err != nil {
		return nil, err
	}
	bbox := []float64{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for _, polygon := range polygons {
		for _, ring := range polygon {
			for _, v := range ring {
				if len(v) >= 2 {
					bbox = unionBBox(bbox, []float64{v[0], v[1], v[0], v[1]})
				}
			}
		}
	}
	if math.IsInf(bbox[0], 1) {
		return nil, ErrEmptyGeometry
	}
	return bbox, nil
}

// ToWKT renders a Point, Polygon or MultiPolygon as well-known text.
func ToWKT(g *Geometry) (string, error) {
	if g == nil {
		return "", fmt.Errorf("nil geometry")
	}

	var b strings.Builder
	switch g.Type {
	case TypePoint:
		p, err := g.Point()
		if err != nil {
			return "", err
		}
		b.WriteString("POINT(")
		writeVertex(&b, p)
		b.WriteByte(')')
	case TypePolygon:
		rings, err := g.Polygon()
		if err != nil {
			return "", err
		}
		b.WriteString("POLYGON")
		if err := writeRings(&b, rings); err != nil {
			return "", err
		}
	case TypeMultiPolygon:
		polygons, err := g.MultiPolygon()
		if err != nil {
			return "", err
		}
		b.WriteString("MULTIPOLYGON(")
		for i, rings := range polygons {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeRings(&b, rings); err != nil {
				return "", err
			}
		}
		b.WriteByte(')')
	default:
		return "", fmt.Errorf("no WKT form for %s geometry", g.Type)
	}
	return b.String(), nil
}

// writeRings writes "((x y,...),(x y,...))".
func writeRings(b *strings.Builder, rings [][][]float64) error {
	b.WriteByte('(')
	for i, ring := range rings {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		for j, v := range ring {
			if len(v) < 2 {
				return fmt.Errorf("ring %d vertex %d has %d ordinates", i, j, len(v))
			}
			if j > 0 {
				b.WriteByte(',')
			}
			writeVertex(b, v)
		}
		b.WriteByte(')')
	}
	b.WriteByte(')')
	return nil
}

func writeVertex(b *strings.Builder, v []float64) {
	b.WriteString(strconv.FormatFloat(v[0], 'f', -1, 64))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatFloat(v[1], 'f', -1, 64))
}
