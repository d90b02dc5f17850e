package districtmap

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb/geojson"
)

// WriteRegion writes a converted region to FlatGeobuf. Feature attributes
// become typed columns; features without polygonal geometry are skipped.
func WriteRegion(w io.Writer, fc *geojson.FeatureCollection, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	if fc == nil || len(fc.Features) == 0 {
		return ErrEmptyRegion
	}

	schema := inferSchema(fc.Features)
	builder := flatbuffers.NewBuilder(4096)
	header := regionHeader(builder, opts, schema, regionGeometryType(fc.Features))
	feed := &districtFeed{features: fc.Features, schema: schema}

	if _, err := writer.NewWriter(header, opts.IncludeIndex, feed, nil).Write(w); err != nil {
		return fmt.Errorf("write flatgeobuf: %w", err)
	}
	return nil
}

// regionGeometryType is the boundary type shared by every feature, or
// Unknown when polygons and multipolygons are mixed.
func regionGeometryType(features []*geojson.Feature) flattypes.GeometryType {
	typ := flattypes.GeometryTypeUnknown
	for _, f := range features {
		if f == nil || f.Geometry == nil {
			continue
		}
		switch t := boundaryType(f.Geometry); {
		case typ == flattypes.GeometryTypeUnknown:
			typ = t
		case t != typ:
			return flattypes.GeometryTypeUnknown
		}
	}
	return typ
}

func regionHeader(b *flatbuffers.Builder, opts *Options, schema []attributeColumn, typ flattypes.GeometryType) *writer.Header {
	h := writer.NewHeader(b)
	h.SetGeometryType(typ)
	if opts.Name != "" {
		h.SetName(opts.Name)
	}
	if opts.Description != "" {
		h.SetDescription(opts.Description)
	}
	if len(schema) > 0 {
		h.SetColumns(buildColumns(schema, b))
	}
	if c := opts.CRS; c != nil {
		crs := writer.NewCrs(b)
		crs.SetOrg("EPSG")
		if c.Code > 0 {
			crs.SetCode(int32(c.Code))
		}
		if c.Name != "" {
			crs.SetName(c.Name)
		}
		if c.Description != "" {
			crs.SetDescription(c.Description)
		}
		h.SetCrs(crs)
	}
	return h
}

// WriteRegionFile writes the region to path, replacing any existing file.
func WriteRegionFile(path string, fc *geojson.FeatureCollection, opts *Options) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(f)
	if err := WriteRegion(bw, fc, opts); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// districtFeed hands district features to the FlatGeobuf writer one at a
// time, skipping those without a polygonal boundary.
type districtFeed struct {
	features []*geojson.Feature
	schema   []attributeColumn
	next     int
}

func (d *districtFeed) Generate() *writer.Feature {
	for d.next < len(d.features) {
		f := d.features[d.next]
		d.next++
		if f == nil || f.Geometry == nil {
			continue
		}

		b := flatbuffers.NewBuilder(1024)
		boundary := encodeBoundary(f.Geometry, b)
		if boundary == nil {
			continue
		}
		out := writer.NewFeature(b)
		out.SetGeometry(boundary)
		if props := encodeAttributes(f.Properties, d.schema); len(props) > 0 {
			out.SetProperties(props)
		}
		return out
	}
	return nil
}
