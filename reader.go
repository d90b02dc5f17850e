package districtmap

import (
	"fmt"
	"os"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// RegionReader reads a region previously exported with WriteRegion.
type RegionReader struct {
	fgb *flatgeobuf.FlatGeoBuf
}

// OpenRegionCache opens an exported region file.
func OpenRegionCache(path string) (*RegionReader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	fgb, err := flatgeobuf.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidData, path, err)
	}
	return &RegionReader{fgb: fgb}, nil
}

// NewRegionReader reads an exported region held in memory.
func NewRegionReader(data []byte) (*RegionReader, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrInvalidData)
	}
	fgb, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &RegionReader{fgb: fgb}, nil
}

// Header returns metadata about the exported region.
func (r *RegionReader) Header() *Header {
	h := r.fgb.Header()
	if h == nil {
		return nil
	}

	out := &Header{
		Name:          string(h.Name()),
		Description:   string(h.Description()),
		FeaturesCount: h.FeaturesCount(),
		HasIndex:      h.IndexNodeSize() > 0,
		GeometryType:  flattypes.EnumNamesGeometryType[h.GeometryType()],
		CRS:           headerCRS(h),
		Columns:       headerColumns(h),
	}
	if h.EnvelopeLength() >= 4 {
		for i := range out.Envelope {
			out.Envelope[i] = h.Envelope(i)
		}
	}
	return out
}

func headerCRS(h *flattypes.Header) *CRS {
	var crs flattypes.Crs
	if h.Crs(&crs) == nil {
		return nil
	}
	return &CRS{
		Code:        int(crs.Code()),
		Name:        string(crs.Name()),
		Description: string(crs.Description()),
	}
}

func headerColumns(h *flattypes.Header) []ColumnInfo {
	var cols []ColumnInfo
	var col flattypes.Column
	for i := 0; i < h.ColumnsLength(); i++ {
		if !h.Columns(&col, i) {
			continue
		}
		cols = append(cols, ColumnInfo{
			Name:     string(col.Name()),
			Type:     flattypes.EnumNamesColumnType[col.Type()],
			Nullable: col.Nullable(),
		})
	}
	return cols
}

// ReadAll reads every district of the region in spatial index order. The
// file must carry a spatial index; features are located by searching the
// header envelope.
func (r *RegionReader) ReadAll() (*geojson.FeatureCollection, error) {
	h := r.fgb.Header()
	if h.FeaturesCount() == 0 {
		return nil, ErrEmptyRegion
	}
	if h.IndexNodeSize() == 0 {
		return nil, ErrNoIndex
	}
	if h.EnvelopeLength() < 4 {
		return nil, fmt.Errorf("%w: header has no envelope", ErrInvalidData)
	}

	return r.search(h, h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3))
}

// Search returns the districts whose bounding boxes intersect bounds.
func (r *RegionReader) Search(bounds orb.Bound) (*geojson.FeatureCollection, error) {
	h := r.fgb.Header()
	if h.IndexNodeSize() == 0 {
		return nil, ErrNoIndex
	}
	return r.search(h, bounds.Min[0], bounds.Min[1], bounds.Max[0], bounds.Max[1])
}

func (r *RegionReader) search(h *flattypes.Header, minX, minY, maxX, maxY float64) (*geojson.FeatureCollection, error) {
	hits, err := r.fgb.Search(minX, minY, maxX, maxY)
	if err != nil {
		return nil, fmt.Errorf("search region: %w", err)
	}

	fc := geojson.NewFeatureCollection()
	for i, hit := range hits {
		district, err := decodeDistrict(hit, h)
		if err != nil {
			return nil, fmt.Errorf("district %d: %w", i, err)
		}
		if district != nil {
			fc.Append(district)
		}
	}
	return fc, nil
}

// Close releases the reader. The underlying buffer is reclaimed by the GC.
func (r *RegionReader) Close() error {
	r.fgb = nil
	return nil
}

// ReadRegion decodes a complete exported region from data.
func ReadRegion(data []byte) (*geojson.FeatureCollection, error) {
	r, err := NewRegionReader(data)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadAll()
}

// decodeDistrict turns a stored feature back into a district polygon with
// its attributes. Features without a usable boundary decode to nil.
func decodeDistrict(f *flattypes.Feature, h *flattypes.Header) (*geojson.Feature, error) {
	if f == nil {
		return nil, nil
	}
	var g flattypes.Geometry
	geom := f.Geometry(&g)
	if geom == nil {
		return nil, nil
	}
	boundary := decodeBoundary(geom)
	if boundary == nil {
		return nil, nil
	}

	district := geojson.NewFeature(boundary)
	if h.ColumnsLength() == 0 {
		return district, nil
	}
	if raw := f.PropertiesBytes(); len(raw) > 0 {
		props, err := decodeAttributes(raw, h)
		if err != nil {
			return nil, err
		}
		district.Properties = props
	}
	return district, nil
}
