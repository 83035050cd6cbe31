// Package sensors defines the named dataset presets: the remote source,
// native bands, canonical band renaming and quality-assessment policy of
// each supported sensor.
package sensors

import (
	"context"
	"fmt"
	"time"

	"github.com/robert-malhotra/eoset/internal/collection"
	"github.com/robert-malhotra/eoset/internal/dataset"
	"github.com/robert-malhotra/eoset/pkg/geojson"
)

// Canonical band names shared by the optical presets.
var Canonical = []string{"blue", "green", "red", "nir", "swir1", "swir2"}

// Catalog types a preset can be served from.
const (
	CatalogSTAC = "stac"
	CatalogASF  = "asf"
)

// Catalog describes where the records of a preset are searched. An empty
// Type leaves the source to the fallback catalog.
type Catalog struct {
	Type string `json:"type,omitempty"`

	// Collection is the STAC collection ID.
	Collection string `json:"collection,omitempty"`

	// Platform restricts STAC searches to items whose platform property
	// matches, for collections shared by several missions.
	Platform string `json:"platform,omitempty"`

	// Datasets, ProcessingLevel and BeamMode configure ASF searches.
	Datasets        []string `json:"datasets,omitempty"`
	ProcessingLevel string   `json:"processing_level,omitempty"`
	BeamMode        string   `json:"beam_mode,omitempty"`
}

// Preset is a named dataset configuration.
type Preset struct {
	ID          string
	Title       string
	Description string
	Variant     dataset.Variant
	Catalog     Catalog
}

// Dataset builds a dataset of the preset within region and [start, end).
func (p Preset) Dataset(remote dataset.Remote, region *geojson.Geometry, start, end time.Time, opts ...dataset.Option) (*dataset.Dataset, error) {
	opts = append([]dataset.Option{dataset.WithName(p.ID)}, opts...)
	d, err := dataset.New(remote, p.Variant, region, start, end, opts...)
	if err != nil {
		return nil, fmt.Errorf("preset %s: %w", p.ID, err)
	}
	return d, nil
}

// FromCollection wraps a pre-filtered collection of the preset's source.
func (p Preset) FromCollection(ctx context.Context, remote dataset.Remote, h *collection.Handle, opts ...dataset.Option) (*dataset.Dataset, error) {
	opts = append([]dataset.Option{dataset.WithName(p.ID)}, opts...)
	return dataset.FromCollection(ctx, remote, h, opts...)
}

// CanonicalRename maps native band names, in canonical order, onto
// Canonical.
func CanonicalRename(native ...string) []collection.BandMapping {
	out := make([]collection.BandMapping, 0, len(native))
	for i, name := range native {
		if i >= len(Canonical) {
			break
		}
		out = append(out, collection.BandMapping{From: name, To: Canonical[i]})
	}
	return out
}

func qaRef(name string) *collection.Transform {
	t, ok := QA(name)
	if !ok {
		panic("sensors: unknown qa policy " + name)
	}
	return &t
}

func optical(id, title, sourceID string, native []string, qaBand, qa string, catalog Catalog) Preset {
	return Preset{
		ID:    id,
		Title: title,
		Variant: dataset.Variant{
			Name:     id,
			SourceID: sourceID,
			Bands:    append(append([]string(nil), native...), qaBand),
			Rename:   CanonicalRename(native...),
			QA:       qaRef(qa),
		},
		Catalog: catalog,
	}
}

// Sentinel1 is the Sentinel-1 GRD preset, served by ASF.
func Sentinel1() Preset {
	return Preset{
		ID:          "sentinel-1",
		Title:       "Sentinel-1 GRD",
		Description: "C-band SAR backscatter with VV and VH polarizations.",
		Variant: dataset.Variant{
			Name:     "sentinel-1",
			SourceID: "COPERNICUS/S1_GRD",
			Bands:    []string{"VV", "VH", "angle"},
			QA:       qaRef(QASentinel1BorderNoise),
		},
		Catalog: Catalog{
			Type:            CatalogASF,
			Datasets:        []string{"SENTINEL-1"},
			ProcessingLevel: "GRD_HD",
			BeamMode:        "IW",
		},
	}
}

// Sentinel2 is the Sentinel-2 surface reflectance preset.
func Sentinel2() Preset {
	p := optical("sentinel-2", "Sentinel-2 L2A", "COPERNICUS/S2_SR_HARMONIZED",
		[]string{"B2", "B3", "B4", "B8", "B11", "B12"}, "QA60", QASentinel2CloudMask,
		Catalog{Type: CatalogSTAC, Collection: "sentinel-2-l2a"})
	p.Description = "Sentinel-2 MSI surface reflectance, cloud masked with QA60."
	return p
}

// Landsat7 is the Landsat 7 ETM+ collection 2 surface reflectance preset.
func Landsat7() Preset {
	p := optical("landsat-7", "Landsat 7 C2 L2", "LANDSAT/LE07/C02/T1_L2",
		[]string{"SR_B1", "SR_B2", "SR_B3", "SR_B4", "SR_B5", "SR_B7"}, "QA_PIXEL", QALandsatPixel,
		Catalog{Type: CatalogSTAC, Collection: "landsat-c2-l2", Platform: "landsat-7"})
	p.Description = "Landsat 7 ETM+ surface reflectance, masked with QA_PIXEL."
	return p
}

// Landsat8 is the Landsat 8 OLI collection 2 surface reflectance preset.
func Landsat8() Preset {
	p := optical("landsat-8", "Landsat 8 C2 L2", "LANDSAT/LC08/C02/T1_L2",
		[]string{"SR_B2", "SR_B3", "SR_B4", "SR_B5", "SR_B6", "SR_B7"}, "QA_PIXEL", QALandsatPixel,
		Catalog{Type: CatalogSTAC, Collection: "landsat-c2-l2", Platform: "landsat-8"})
	p.Description = "Landsat 8 OLI surface reflectance, masked with QA_PIXEL."
	return p
}

// VIIRS is the VIIRS daily surface reflectance preset.
func VIIRS() Preset {
	p := optical("viirs", "VIIRS VNP09GA", "NOAA/VIIRS/001/VNP09GA",
		[]string{"M3", "M4", "I1", "I2", "I3", "M11"}, "QF1", QAVIIRSQualityFlags, Catalog{})
	p.Description = "VIIRS daily surface reflectance, masked with the QF quality flags."
	return p
}

// MODIS is the MODIS Terra daily surface reflectance preset.
func MODIS() Preset {
	p := optical("modis", "MODIS MOD09GA", "MODIS/061/MOD09GA",
		[]string{"sur_refl_b03", "sur_refl_b04", "sur_refl_b01", "sur_refl_b02", "sur_refl_b06", "sur_refl_b07"},
		"state_1km", QAMODISState, Catalog{})
	p.Description = "MODIS Terra daily surface reflectance, masked with state_1km."
	return p
}

// Builtin returns every built-in preset.
func Builtin() []Preset {
	return []Preset{Sentinel1(), Sentinel2(), Landsat7(), Landsat8(), VIIRS(), MODIS()}
}
