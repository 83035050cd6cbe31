package asf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robert-malhotra/eoset/internal/collection"
)

// AngleBand is the incidence angle band every Sentinel-1 GRD record carries.
const AngleBand = "angle"

// ErrNoIdentifier is returned for granules with neither a file ID nor a
// scene name.
var ErrNoIdentifier = errors.New("granule has no fileID or sceneName")

// Layouts seen in search responses, most common first.
var timeLayouts = []string{
	"2006-01-02T15:04:05.000000",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// ParseTime parses a granule timestamp such as "2023-06-15T14:00:00.000000".
// Timestamps without a zone are UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// GranuleToRecord converts g into a record. The bands are the granule
// polarizations followed by AngleBand.
func GranuleToRecord(g *Granule) (*collection.Record, error) {
	if g == nil {
		return nil, errors.New("nil granule")
	}
	p := g.Properties
	id := p.ID()
	if id == "" {
		return nil, ErrNoIdentifier
	}

	r := &collection.Record{
		ID:         id,
		Geometry:   g.Geometry,
		Bands:      append(ParsePolarizations(p.Polarization), AngleBand),
		Properties: map[string]any{"platform": strings.ToLower(p.Platform)},
	}
	if p.StartTime != "" {
		t, err := ParseTime(p.StartTime)
		if err != nil {
			return nil, fmt.Errorf("granule %s: %w", id, err)
		}
		r.Time = t
	}

	setString := func(key, value string) {
		if value != "" {
			r.SetProperty(key, value)
		}
	}
	setString("asf:scene_name", p.SceneName)
	setString("sar:instrument_mode", p.BeamMode)
	setString("processing:level", p.ProcessingLevel)
	setString("sat:orbit_state", strings.ToLower(p.FlightDirection))

	setInt := func(key string, value *int) {
		if value != nil {
			r.SetProperty(key, *value)
		}
	}
	setInt("sat:relative_orbit", p.PathNumber)
	setInt("sat:absolute_orbit", p.AbsoluteOrbit)
	setInt("asf:frame", p.Frame)

	if p.OffNadirAngle != nil {
		r.SetProperty("view:off_nadir", *p.OffNadirAngle)
	}
	if t, err := ParseTime(p.StopTime); err == nil {
		r.SetProperty("end_datetime", t.Format(time.RFC3339))
	}
	return r, nil
}

// ParsePolarizations splits "VV+VH" into ["VV", "VH"].
func ParsePolarizations(pol string) []string {
	fields := strings.FieldsFunc(strings.ToUpper(pol), func(r rune) bool {
		return r == '+' || r == ',' || r == ' '
	})
	if fields == nil {
		return []string{}
	}
	return fields
}
