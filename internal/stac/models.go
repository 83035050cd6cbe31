// Package stac searches STAC APIs for records and renders records as STAC
// items. Core types come from planetlabs/go-stac.
package stac

import (
	"encoding/json"

	"github.com/planetlabs/go-ogc/filter"
	gostac "github.com/planetlabs/go-stac"
)

// Item is a STAC item.
type Item = gostac.Item

const (
	relNext = "next"

	mediaTypeGeoJSON = "application/geo+json"

	filterLangJSON = "cql2-json"
)

// ItemCollection is the FeatureCollection returned by item searches, with
// the context fields of the STAC API.
type ItemCollection struct {
	Type           string         `json:"type"`
	Features       []*Item        `json:"features"`
	Links          []*gostac.Link `json:"links"`
	NumberMatched  *int           `json:"numberMatched,omitempty"`
	NumberReturned int            `json:"numberReturned"`
}

// NewItemCollection wraps items in a collection with no links.
func NewItemCollection(items []*Item) *ItemCollection {
	if items == nil {
		items = []*Item{}
	}
	return &ItemCollection{
		Type:           "FeatureCollection",
		Features:       items,
		Links:          []*gostac.Link{},
		NumberReturned: len(items),
	}
}

// AddLink appends a link. An empty media type defaults to GeoJSON.
func (ic *ItemCollection) AddLink(rel, href, mediaType string) {
	if mediaType == "" {
		mediaType = mediaTypeGeoJSON
	}
	ic.Links = append(ic.Links, &gostac.Link{Rel: rel, Href: href, Type: mediaType})
}

// NextLink returns the pagination link, or nil on the last page.
func (ic *ItemCollection) NextLink() *gostac.Link {
	for _, l := range ic.Links {
		if l != nil && l.Rel == relNext {
			return l
		}
	}
	return nil
}

// SearchRequest is the body of POST /search. Intersects takes precedence
// over BBox on servers that receive both.
type SearchRequest struct {
	Collections []string        `json:"collections,omitempty"`
	Intersects  json.RawMessage `json:"intersects,omitempty"`
	BBox        []float64       `json:"bbox,omitempty"`
	DateTime    string          `json:"datetime,omitempty"`
	Filter      *filter.Filter  `json:"filter,omitempty"`
	FilterLang  string          `json:"filter-lang,omitempty"`
	Limit       int             `json:"limit,omitempty"`
}
