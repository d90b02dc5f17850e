package districtmap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// AllDistricts is the selection value meaning "no filter".
const AllDistricts = "all"

// Region is a converted feature collection indexed by district name.
type Region struct {
	fc     *geojson.FeatureCollection
	byName map[string]*geojson.Feature
	bound  orb.Bound
}

// NewRegion indexes fc by the DISTRICT property. Names are matched
// case-insensitively after trimming surrounding whitespace.
func NewRegion(fc *geojson.FeatureCollection) (*Region, error) {
	if fc == nil || len(fc.Features) == 0 {
		return nil, ErrEmptyRegion
	}

	r := &Region{
		fc:     fc,
		byName: make(map[string]*geojson.Feature, len(fc.Features)),
	}
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			return nil, fmt.Errorf("%w: feature %d has no geometry", ErrInvalidData, i)
		}
		if i == 0 {
			r.bound = f.Geometry.Bound()
		} else {
			r.bound = r.bound.Union(f.Geometry.Bound())
		}
		if name := DistrictName(f); name != "" {
			r.byName[normalize(name)] = f
		}
	}
	return r, nil
}

// FeatureCollection returns the underlying collection.
func (r *Region) FeatureCollection() *geojson.FeatureCollection {
	return r.fc
}

// Bound returns the envelope of every district.
func (r *Region) Bound() orb.Bound {
	return r.bound
}

// Len returns the number of features in the region.
func (r *Region) Len() int {
	return len(r.fc.Features)
}

// Feature looks up a district by name.
func (r *Region) Feature(name string) (*geojson.Feature, bool) {
	f, ok := r.byName[normalize(name)]
	return f, ok
}

// Names returns the sorted, de-duplicated district names of the region.
func (r *Region) Names() []string {
	return DistrictNames(r.fc)
}

// Filter returns the districts named in selected. An empty selection or
// one containing "all" returns the whole region.
func (r *Region) Filter(selected []string) *geojson.FeatureCollection {
	return FilterDistricts(r.fc, selected)
}

// Locate returns the district whose polygon contains pt.
func (r *Region) Locate(pt orb.Point) (*geojson.Feature, bool) {
	if !r.bound.Contains(pt) {
		return nil, false
	}
	for _, f := range r.fc.Features {
		if !f.Geometry.Bound().Contains(pt) {
			continue
		}
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			if planar.PolygonContains(g, pt) {
				return f, true
			}
		case orb.MultiPolygon:
			if planar.MultiPolygonContains(g, pt) {
				return f, true
			}
		}
	}
	return nil, false
}

// DistrictName returns the DISTRICT property of f.
func DistrictName(f *geojson.Feature) string {
	if f == nil || f.Properties == nil {
		return ""
	}
	if s, ok := f.Properties[DistrictKey].(string); ok {
		return s
	}
	if v, ok := f.Properties[DistrictKey]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

// DistrictNames returns the sorted unique district names in fc.
func DistrictNames(fc *geojson.FeatureCollection) []string {
	if fc == nil {
		return nil
	}
	seen := make(map[string]bool, len(fc.Features))
	names := make([]string, 0, len(fc.Features))
	for _, f := range fc.Features {
		name := DistrictName(f)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FilterDistricts returns a collection holding only the named districts,
// in source order. Names must match exactly. An empty selection or one
// containing "all" returns fc itself.
func FilterDistricts(fc *geojson.FeatureCollection, selected []string) *geojson.FeatureCollection {
	if fc == nil {
		return geojson.NewFeatureCollection()
	}
	want := make(map[string]bool, len(selected))
	for _, s := range selected {
		if s == AllDistricts {
			return fc
		}
		want[s] = true
	}
	if len(want) == 0 {
		return fc
	}

	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		if want[DistrictName(f)] {
			out.Append(f)
		}
	}
	return out
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
