package stac

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	gostac "github.com/planetlabs/go-stac"
	"github.com/robert-malhotra/eoset/internal/collection"
	"github.com/robert-malhotra/eoset/pkg/geojson"
)

// DefaultVersion is the STAC version written on items built from records.
const DefaultVersion = "1.0.0"

// ItemToRecord converts a STAC item into a collection record. When bands is
// empty the record exposes the item's data assets, sorted by key.
func ItemToRecord(item *Item, bands []string) (*collection.Record, error) {
	if item == nil {
		return nil, fmt.Errorf("item is nil")
	}
	if item.Id == "" {
		return nil, fmt.Errorf("item has no id")
	}

	r := &collection.Record{
		ID:         item.Id,
		Bands:      slices.Clone(bands),
		Properties: maps.Clone(item.Properties),
	}
	if r.Properties == nil {
		r.Properties = make(map[string]any)
	}

	t, err := itemTime(item.Properties)
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", item.Id, err)
	}
	r.Time = t

	if item.Geometry != nil {
		g, err := toGeometry(item.Geometry)
		if err != nil {
			return nil, fmt.Errorf("item %s: invalid geometry: %w", item.Id, err)
		}
		r.Geometry = g
	}

	if len(r.Bands) == 0 {
		for _, key := range slices.Sorted(maps.Keys(item.Assets)) {
			if a := item.Assets[key]; a != nil && slices.Contains(a.Roles, "data") {
				r.Bands = append(r.Bands, key)
			}
		}
	}

	if item.Collection != "" {
		r.SetProperty("collection", item.Collection)
	}
	return r, nil
}

// RecordToItem converts a record into a STAC item of collectionID.
func RecordToItem(r *collection.Record, collectionID string) (*Item, error) {
	item := &Item{
		Version:    DefaultVersion,
		Id:         r.ID,
		Collection: collectionID,
		Properties: maps.Clone(r.Properties),
		Assets:     make(map[string]*gostac.Asset),
		Links:      make([]*gostac.Link, 0),
	}
	if item.Properties == nil {
		item.Properties = make(map[string]any)
	}
	delete(item.Properties, "collection")

	if r.HasTime() {
		item.Properties["datetime"] = r.Time.UTC().Format(time.RFC3339Nano)
	} else {
		item.Properties["datetime"] = nil
	}
	item.Properties["bands"] = slices.Clone(r.Bands)

	if r.Geometry != nil {
		item.Geometry = r.Geometry
		bbox, err := r.Geometry.BBox()
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		item.Bbox = bbox
	}
	return item, nil
}

// itemTime resolves the acquisition time from datetime, falling back to
// start_datetime. A missing timestamp yields the zero time.
func itemTime(props map[string]any) (time.Time, error) {
	for _, key := range []string{"datetime", "start_datetime"} {
		s, ok := props[key].(string)
		if !ok || s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid %s %q: %w", key, s, err)
		}
		return t.UTC(), nil
	}
	return time.Time{}, nil
}

// toGeometry re-encodes a decoded GeoJSON geometry.
func toGeometry(v any) (*geojson.Geometry, error) {
	if g, ok := v.(*geojson.Geometry); ok {
		return g.Clone(), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var g geojson.Geometry
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	if g.Type == "" {
		return nil, fmt.Errorf("geometry has no type")
	}
	return &g, nil
}
