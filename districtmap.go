// Package districtmap converts projected district boundary datasets into
// geographic GeoJSON for web maps, and exports the converted region to
// FlatGeobuf so it can be cached and served without re-projecting.
//
// Source datasets are ESRI JSON feature sets whose polygon rings are in a
// Lambert Conformal Conic grid. Output features are orb polygons in
// (longitude, latitude) order with the source attributes carried over as
// properties.
package districtmap

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tingold/district-atlas/lcc"
)

// Common errors returned by this package.
var (
	ErrMalformedGeometry = errors.New("districtmap: malformed geometry")
	ErrProjection        = errors.New("districtmap: projection failed")
	ErrEmptyRegion       = errors.New("districtmap: region has no features")
	ErrInvalidData       = errors.New("districtmap: invalid data")
	ErrNoIndex           = errors.New("districtmap: file has no spatial index")
)

// DistrictKey is the attribute holding a feature's district name.
const DistrictKey = "DISTRICT"

// FeatureError reports why a single source feature could not be converted.
type FeatureError struct {
	Index    int    // position of the feature in the source dataset
	District string // DISTRICT attribute, if present
	Err      error
}

func (e *FeatureError) Error() string {
	if e.District != "" {
		return fmt.Sprintf("feature %d (%s): %v", e.Index, e.District, e.Err)
	}
	return fmt.Sprintf("feature %d: %v", e.Index, e.Err)
}

func (e *FeatureError) Unwrap() error {
	return e.Err
}

// ProjectionSpec names the projected coordinate system a dataset is stored in.
type ProjectionSpec struct {
	Name   string
	Params lcc.Params
}

// TelanganaLCC returns the Lambert Conformal Conic grid used by the
// Telangana district boundary dataset.
func TelanganaLCC() ProjectionSpec {
	return ProjectionSpec{
		Name: "India LCC (Telangana)",
		Params: lcc.Params{
			Lat1:          12.472944,
			Lat2:          35.172806,
			Lat0:          24,
			Lon0:          80,
			FalseEasting:  4000000,
			FalseNorthing: 4000000,
			Ellipsoid:     lcc.WGS84,
		},
	}
}

// Proj4 renders the projection as a PROJ.4 definition string.
func (s ProjectionSpec) Proj4() string {
	p := s.Params
	return fmt.Sprintf("+proj=lcc +lat_1=%s +lat_2=%s +lat_0=%s +lon_0=%s +x_0=%s +y_0=%s +datum=WGS84 +units=m",
		ftoa(p.Lat1), ftoa(p.Lat2), ftoa(p.Lat0), ftoa(p.Lon0), ftoa(p.FalseEasting), ftoa(p.FalseNorthing))
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CRS represents a coordinate reference system.
type CRS struct {
	Code        int    // EPSG code (e.g., 4326 for WGS84)
	Name        string // CRS name
	Description string // CRS description
}

// WGS84 returns the geographic CRS converted regions are expressed in.
func WGS84() *CRS {
	return &CRS{
		Code: 4326,
		Name: "WGS 84",
	}
}

// Options configures FlatGeobuf export of a region.
type Options struct {
	Name         string // Layer name
	Description  string // Layer description
	IncludeIndex bool   // Include spatial index (default: true)
	CRS          *CRS   // Coordinate reference system (default: WGS84)
}

// DefaultOptions returns default options for exporting a region.
func DefaultOptions() *Options {
	return &Options{
		Name:         "districts",
		IncludeIndex: true,
		CRS:          WGS84(),
	}
}

// ColumnInfo describes an attribute column of an exported region.
type ColumnInfo struct {
	Name     string // Column name
	Type     string // Column type ("Long", "Double", "String", "Json", etc.)
	Nullable bool
}

// Header contains metadata about an exported region file.
type Header struct {
	Name          string
	Description   string
	GeometryType  string
	FeaturesCount uint64
	Envelope      [4]float64 // [minX, minY, maxX, maxY]
	CRS           *CRS
	HasIndex      bool
	Columns       []ColumnInfo
}
