package sensors

import (
	"maps"
	"slices"

	"github.com/robert-malhotra/eoset/internal/collection"
)

// Properties written by the quality-assessment transforms.
const (
	PropQAPolicy      = "qa:policy"
	PropValidFraction = "qa:valid_fraction"
)

// Names of the built-in quality-assessment policies.
const (
	QASentinel1BorderNoise = "s1_border_noise"
	QASentinel2CloudMask   = "s2_cloud_mask"
	QALandsatPixel         = "landsat_qa_pixel"
	QAVIIRSQualityFlags    = "viirs_qf"
	QAMODISState           = "modis_state"
)

// PropCloudCover is the STAC eo extension cloud percentage, read when a
// record lacks its sensor's native cloud property.
const PropCloudCover = "eo:cloud_cover"

// qaMask returns a transform stamping policy on every record. When
// cloudProperty, or failing that eo:cloud_cover, holds a cloud percentage
// the valid fraction is derived from it. Applying the transform twice
// yields the same record.
func qaMask(policy, cloudProperty string) collection.Transform {
	return collection.Transform{
		Name: policy,
		Apply: func(r *collection.Record, _ collection.Params) (*collection.Record, error) {
			out := r.Clone()
			out.SetProperty(PropQAPolicy, policy)
			if cloudProperty == "" {
				return out, nil
			}
			v, ok := r.Property(cloudProperty)
			if !ok {
				v, ok = r.Property(PropCloudCover)
			}
			if ok {
				if pct, ok := percentage(v); ok {
					out.SetProperty(PropValidFraction, 1-pct/100)
				}
			}
			return out, nil
		},
	}
}

func percentage(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, false
	}
	return min(max(f, 0), 100), true
}

var qaTransforms = map[string]collection.Transform{
	QASentinel1BorderNoise: qaMask(QASentinel1BorderNoise, ""),
	QASentinel2CloudMask:   qaMask(QASentinel2CloudMask, "CLOUDY_PIXEL_PERCENTAGE"),
	QALandsatPixel:         qaMask(QALandsatPixel, "CLOUD_COVER"),
	QAVIIRSQualityFlags:    qaMask(QAVIIRSQualityFlags, ""),
	QAMODISState:           qaMask(QAMODISState, ""),
}

// QA returns the quality-assessment transform registered under name.
func QA(name string) (collection.Transform, bool) {
	t, ok := qaTransforms[name]
	return t, ok
}

// QANames returns the registered policy names, sorted.
func QANames() []string {
	return slices.Sorted(maps.Keys(qaTransforms))
}
