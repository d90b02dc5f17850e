package districtmap

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tingold/district-atlas/lcc"
)

// lonLatSquare is a closed square ring in geographic degrees.
func lonLatSquare(lon, lat, size float64) [][2]float64 {
	return [][2]float64{
		{lon, lat},
		{lon + size, lat},
		{lon + size, lat + size},
		{lon, lat + size},
		{lon, lat},
	}
}

// projectedFeature builds a source feature whose single ring is the
// forward projection of ring.
func projectedFeature(t testing.TB, district string, rings ...[][2]float64) EsriFeature {
	t.Helper()
	proj := lcc.MustNew(TelanganaLCC().Params)

	geom := &EsriGeometry{}
	for _, ring := range rings {
		out := make([][]float64, 0, len(ring))
		for _, p := range ring {
			x, y, err := proj.Forward(p[0], p[1])
			if err != nil {
				t.Fatalf("Forward failed: %v", err)
			}
			out = append(out, []float64{x, y})
		}
		geom.Rings = append(geom.Rings, out)
	}

	return EsriFeature{
		Attributes: map[string]interface{}{
			DistrictKey:  district,
			"OBJECTID":   json.Number("1"),
			"Shape_Area": json.Number("1234.5"),
		},
		Geometry: geom,
	}
}

// testDataset returns three adjacent districts near Hyderabad.
func testDataset(t testing.TB) *EsriDataset {
	t.Helper()
	return &EsriDataset{
		GeometryType: "esriGeometryPolygon",
		Features: []EsriFeature{
			projectedFeature(t, "Hyderabad", lonLatSquare(78.4, 17.3, 0.1)),
			projectedFeature(t, "Rangareddy", lonLatSquare(78.0, 17.0, 0.3)),
			projectedFeature(t, "Medchal-Malkajgiri", lonLatSquare(78.5, 17.5, 0.2)),
		},
	}
}

func testRegion(t testing.TB) *geojson.FeatureCollection {
	t.Helper()
	fc, err := ConvertRegionDataset(testDataset(t), TelanganaLCC())
	if err != nil {
		t.Fatalf("ConvertRegionDataset failed: %v", err)
	}
	return fc
}

func nearlyEqual(a, b orb.Point) bool {
	const eps = 1e-7
	return abs(a[0]-b[0]) < eps && abs(a[1]-b[1]) < eps
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
