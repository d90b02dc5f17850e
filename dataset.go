package districtmap

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// EsriDataset is an ESRI JSON feature set as exported by ArcGIS.
type EsriDataset struct {
	DisplayFieldName string                 `json:"displayFieldName,omitempty"`
	GeometryType     string                 `json:"geometryType,omitempty"`
	SpatialReference map[string]interface{} `json:"spatialReference,omitempty"`
	Features         []EsriFeature          `json:"features"`
}

// EsriFeature is one polygon feature of an EsriDataset.
type EsriFeature struct {
	Attributes map[string]interface{} `json:"attributes"`
	Geometry   *EsriGeometry          `json:"geometry"`
}

// EsriGeometry holds polygon rings in projected coordinates. Each point is
// [x, y] and may carry extra ordinates (z, m) which are ignored.
type EsriGeometry struct {
	Rings [][][]float64 `json:"rings"`

	// malformed is set when the rings could not be decoded. The feature
	// then fails conversion on its own instead of failing the dataset.
	malformed error
}

// UnmarshalJSON decodes the rings leniently: a ring structure that is not
// an array of numeric points is recorded on the geometry, not returned.
func (g *EsriGeometry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Rings [][][]*float64 `json:"rings"`
	}
	*g = EsriGeometry{}
	if err := json.Unmarshal(data, &raw); err != nil {
		g.malformed = err
		return nil
	}

	rings := make([][][]float64, len(raw.Rings))
	for ri, ring := range raw.Rings {
		rings[ri] = make([][]float64, len(ring))
		for pi, pt := range ring {
			out := make([]float64, len(pt))
			for oi, v := range pt {
				if v == nil {
					g.malformed = fmt.Errorf("ring %d point %d: null ordinate", ri, pi)
					return nil
				}
				out[oi] = *v
			}
			rings[ri][pi] = out
		}
	}
	g.Rings = rings
	return nil
}

// District returns the feature's DISTRICT attribute as a string.
func (f *EsriFeature) District() string {
	if f.Attributes == nil {
		return ""
	}
	if s, ok := f.Attributes[DistrictKey].(string); ok {
		return s
	}
	if v, ok := f.Attributes[DistrictKey]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

// ReadEsriDataset decodes an ESRI JSON feature set. Numeric attributes are
// kept as json.Number so they pass through conversion unmodified.
func ReadEsriDataset(r io.Reader) (*EsriDataset, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var ds EsriDataset
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &ds, nil
}

// OpenEsriDataset reads an ESRI JSON feature set from path.
func OpenEsriDataset(path string) (*EsriDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds, err := ReadEsriDataset(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}
