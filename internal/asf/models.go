package asf

import (
	"cmp"

	"github.com/robert-malhotra/eoset/pkg/geojson"
)

// SearchResponse is the feature collection returned for output=geojson.
type SearchResponse struct {
	Type     string    `json:"type"`
	Features []Granule `json:"features"`
}

// Granule is one search hit.
type Granule struct {
	Type       string            `json:"type"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties GranuleProperties `json:"properties"`
}

// GranuleProperties is the subset of granule metadata kept on records.
type GranuleProperties struct {
	SceneName       string   `json:"sceneName"`
	FileID          string   `json:"fileID"`
	Platform        string   `json:"platform"`
	BeamMode        string   `json:"beamModeType"`
	Polarization    string   `json:"polarization"`
	FlightDirection string   `json:"flightDirection"`
	Frame           *int     `json:"frameNumber"`
	AbsoluteOrbit   *int     `json:"absoluteOrbit"`
	PathNumber      *int     `json:"pathNumber"`
	ProcessingLevel string   `json:"processingLevel"`
	StartTime       string   `json:"startTime"`
	StopTime        string   `json:"stopTime"`
	OffNadirAngle   *float64 `json:"offNadirAngle"`
}

// ID identifies the granule product: the file ID, else the scene name.
func (p GranuleProperties) ID() string {
	return cmp.Or(p.FileID, p.SceneName)
}
