package districtmap

import (
	"reflect"
	"testing"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

func TestBoundaryType(t *testing.T) {
	tests := []struct {
		name     string
		geom     orb.Geometry
		expected flattypes.GeometryType
	}{
		{"Polygon", orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}, flattypes.GeometryTypePolygon},
		{"MultiPolygon", orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}}, flattypes.GeometryTypeMultiPolygon},
		{"Point", orb.Point{1, 2}, flattypes.GeometryTypeUnknown},
		{"LineString", orb.LineString{{0, 0}, {1, 1}}, flattypes.GeometryTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := boundaryType(tt.geom); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestEncodeBoundary(t *testing.T) {
	builder := flatbuffers.NewBuilder(256)

	poly := orb.Polygon{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{2, 2}, {8, 2}, {8, 8}, {2, 8}, {2, 2}},
	}
	if encodeBoundary(poly, builder) == nil {
		t.Error("expected polygon to convert")
	}

	mp := orb.MultiPolygon{poly, {{{20, 20}, {25, 20}, {25, 25}, {20, 20}}}}
	if encodeBoundary(mp, builder) == nil {
		t.Error("expected multipolygon to convert")
	}

	if encodeBoundary(orb.Point{1, 2}, builder) != nil {
		t.Error("expected point to be rejected")
	}
}

func TestFlattenRings(t *testing.T) {
	poly := orb.Polygon{
		{{0, 0}, {4, 0}, {4, 4}, {0, 0}},
		{{1, 1}, {2, 1}, {2, 2}, {1, 1}},
	}

	xy, ends := flattenRings(poly)

	if len(xy) != 16 {
		t.Errorf("expected 16 ordinates, got %d", len(xy))
	}
	if !reflect.DeepEqual(ends, []uint32{4, 8}) {
		t.Errorf("expected ends [4 8], got %v", ends)
	}
	if xy[8] != 1 || xy[9] != 1 {
		t.Errorf("expected hole to start at (1, 1), got (%v, %v)", xy[8], xy[9])
	}
}
