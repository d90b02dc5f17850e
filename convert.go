package districtmap

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/tingold/district-atlas/internal/metrics"
	"github.com/tingold/district-atlas/lcc"
)

// Projector inverse-projects grid coordinates to (lon, lat) degrees.
type Projector interface {
	Inverse(x, y float64) (lon, lat float64, err error)
}

// NewProjector builds the inverse projection described by spec.
func NewProjector(spec ProjectionSpec) (*lcc.Projection, error) {
	p, err := lcc.New(spec.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProjection, spec.Name, err)
	}
	return p, nil
}

// ConvertFeature converts one source feature into a GeoJSON polygon feature.
// Ring count and per-ring point count are preserved; the attributes are
// copied into the feature properties as they are.
func ConvertFeature(f *EsriFeature, proj Projector) (*geojson.Feature, error) {
	if f.Geometry != nil && f.Geometry.malformed != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGeometry, f.Geometry.malformed)
	}
	if f.Geometry == nil || len(f.Geometry.Rings) == 0 {
		return nil, fmt.Errorf("%w: missing rings", ErrMalformedGeometry)
	}

	poly := make(orb.Polygon, 0, len(f.Geometry.Rings))
	for ri, ring := range f.Geometry.Rings {
		if distinctPoints(ring) < 3 {
			return nil, fmt.Errorf("%w: ring %d has fewer than 3 distinct points", ErrMalformedGeometry, ri)
		}

		out := make(orb.Ring, 0, len(ring))
		for pi, pt := range ring {
			if len(pt) < 2 {
				return nil, fmt.Errorf("%w: ring %d point %d has %d ordinates", ErrMalformedGeometry, ri, pi, len(pt))
			}
			lon, lat, err := proj.Inverse(pt[0], pt[1])
			if err != nil {
				return nil, fmt.Errorf("%w: ring %d point %d: %v", ErrProjection, ri, pi, err)
			}
			if !validLonLat(lon, lat) {
				return nil, fmt.Errorf("%w: ring %d point %d: (%v, %v) outside geographic range", ErrProjection, ri, pi, lon, lat)
			}
			out = append(out, orb.Point{lon, lat})
		}
		poly = append(poly, out)
	}

	feature := geojson.NewFeature(poly)
	for k, v := range f.Attributes {
		feature.Properties[k] = v
	}
	return feature, nil
}

// ConvertRegionDataset converts every feature of ds. It fails on the first
// feature that cannot be converted, returning a *FeatureError.
func ConvertRegionDataset(ds *EsriDataset, spec ProjectionSpec) (*geojson.FeatureCollection, error) {
	proj, err := NewProjector(spec)
	if err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()
	for i := range ds.Features {
		feature, err := ConvertFeature(&ds.Features[i], proj)
		if err != nil {
			return nil, &FeatureError{Index: i, District: ds.Features[i].District(), Err: err}
		}
		fc.Append(feature)
	}
	return fc, nil
}

// LoadRegion converts ds leniently: features with malformed geometry or
// failed projections are skipped and logged, the rest are returned in
// source order together with the skipped feature errors.
func LoadRegion(ds *EsriDataset, spec ProjectionSpec, l *slog.Logger) (*geojson.FeatureCollection, []*FeatureError, error) {
	proj, err := NewProjector(spec)
	if err != nil {
		return nil, nil, err
	}
	if l == nil {
		l = slog.Default()
	}

	fc := geojson.NewFeatureCollection()
	var skipped []*FeatureError
	for i := range ds.Features {
		feature, err := ConvertFeature(&ds.Features[i], proj)
		if err != nil {
			fe := &FeatureError{Index: i, District: ds.Features[i].District(), Err: err}
			l.Warn("feature_skipped", "index", i, "district", fe.District, "err", err)
			metrics.FeaturesSkippedTotal.WithLabelValues(skipReason(err)).Inc()
			skipped = append(skipped, fe)
			continue
		}
		fc.Append(feature)
	}
	metrics.FeaturesConvertedTotal.Add(float64(len(fc.Features)))

	l.Info("region_converted", "features", len(fc.Features), "skipped", len(skipped), "projection", spec.Name)
	return fc, skipped, nil
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, ErrMalformedGeometry):
		return "malformed_geometry"
	case errors.Is(err, ErrProjection):
		return "projection"
	}
	return "other"
}

func distinctPoints(ring [][]float64) int {
	seen := make(map[[2]float64]struct{}, len(ring))
	for _, pt := range ring {
		if len(pt) < 2 {
			continue
		}
		seen[[2]float64{pt[0], pt[1]}] = struct{}{}
		if len(seen) >= 3 {
			break
		}
	}
	return len(seen)
}

func validLonLat(lon, lat float64) bool {
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return false
	}
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}
