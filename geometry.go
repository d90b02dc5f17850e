package districtmap

import (
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// boundaryType maps a district boundary to its FlatGeobuf type. Anything
// that is not a polygon or multipolygon is Unknown and is not exported.
func boundaryType(geom orb.Geometry) flattypes.GeometryType {
	switch geom.(type) {
	case orb.Polygon:
		return flattypes.GeometryTypePolygon
	case orb.MultiPolygon:
		return flattypes.GeometryTypeMultiPolygon
	}
	return flattypes.GeometryTypeUnknown
}

// encodeBoundary builds the FlatGeobuf geometry of a district. A
// multipolygon is stored as one polygon part per island.
func encodeBoundary(geom orb.Geometry, b *flatbuffers.Builder) *writer.Geometry {
	switch v := geom.(type) {
	case orb.Polygon:
		return polygonGeometry(v, b)
	case orb.MultiPolygon:
		islands := make([]writer.Geometry, 0, len(v))
		for _, poly := range v {
			islands = append(islands, *polygonGeometry(poly, b))
		}
		g := writer.NewGeometry(b)
		g.SetType(flattypes.GeometryTypeMultiPolygon)
		g.SetParts(islands)
		return g
	}
	return nil
}

func polygonGeometry(poly orb.Polygon, b *flatbuffers.Builder) *writer.Geometry {
	g := writer.NewGeometry(b)
	g.SetType(flattypes.GeometryTypePolygon)
	xy, ends := flattenRings(poly)
	g.SetXY(xy)
	g.SetEnds(ends)
	return g
}

// flattenRings interleaves ring coordinates and records, per ring, the
// running point count at which it ends. Rings are written as stored.
func flattenRings(poly orb.Polygon) (xy []float64, ends []uint32) {
	n := 0
	for _, r := range poly {
		n += len(r)
	}
	xy = make([]float64, 0, 2*n)
	ends = make([]uint32, len(poly))
	for i, r := range poly {
		for _, pt := range r {
			xy = append(xy, pt.X(), pt.Y())
		}
		ends[i] = uint32(len(xy) / 2)
	}
	return xy, ends
}

// decodeBoundary rebuilds a district boundary. Non-polygonal geometries
// yield nil.
func decodeBoundary(g *flattypes.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}
	switch g.Type() {
	case flattypes.GeometryTypePolygon:
		return readRings(g)
	case flattypes.GeometryTypeMultiPolygon:
		return readIslands(g)
	}
	return nil
}

// readRings splits the xy array of g at its ring ends. Without ends the
// whole array is one exterior ring.
func readRings(g *flattypes.Geometry) orb.Polygon {
	points := g.XyLength() / 2
	if points == 0 {
		return orb.Polygon{}
	}

	bounds := []uint32{uint32(points)}
	if n := g.EndsLength(); n > 0 {
		bounds = make([]uint32, n)
		for i := range bounds {
			bounds[i] = g.Ends(i)
		}
	}

	poly := make(orb.Polygon, 0, len(bounds))
	var from uint32
	for _, to := range bounds {
		if to < from || int(to) > points {
			break
		}
		ring := make(orb.Ring, 0, to-from)
		for k := int(from); k < int(to); k++ {
			ring = append(ring, orb.Point{g.Xy(2 * k), g.Xy(2*k + 1)})
		}
		poly = append(poly, ring)
		from = to
	}
	return poly
}

// readIslands reads each polygon part of a multipolygon. A multipolygon
// written without parts is read as a single island.
func readIslands(g *flattypes.Geometry) orb.MultiPolygon {
	n := g.PartsLength()
	if n == 0 {
		if poly := readRings(g); len(poly) > 0 {
			return orb.MultiPolygon{poly}
		}
		return orb.MultiPolygon{}
	}

	mp := make(orb.MultiPolygon, 0, n)
	var part flattypes.Geometry
	for i := 0; i < n; i++ {
		if !g.Parts(&part, i) {
			continue
		}
		if poly := readRings(&part); len(poly) > 0 {
			mp = append(mp, poly)
		}
	}
	return mp
}
