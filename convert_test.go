package districtmap

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

func TestConvertRegionDataset(t *testing.T) {
	ds := testDataset(t)

	fc, err := ConvertRegionDataset(ds, TelanganaLCC())
	if err != nil {
		t.Fatalf("ConvertRegionDataset failed: %v", err)
	}

	if len(fc.Features) != len(ds.Features) {
		t.Fatalf("expected %d features, got %d", len(ds.Features), len(fc.Features))
	}

	for i, f := range fc.Features {
		poly, ok := f.Geometry.(orb.Polygon)
		if !ok {
			t.Fatalf("feature %d: expected orb.Polygon, got %T", i, f.Geometry)
		}
		src := ds.Features[i].Geometry.Rings
		if len(poly) != len(src) {
			t.Errorf("feature %d: expected %d rings, got %d", i, len(src), len(poly))
		}
		for r := range poly {
			if len(poly[r]) != len(src[r]) {
				t.Errorf("feature %d ring %d: expected %d points, got %d", i, r, len(src[r]), len(poly[r]))
			}
		}
		if f.Properties[DistrictKey] != ds.Features[i].Attributes[DistrictKey] {
			t.Errorf("feature %d: expected district %v, got %v", i, ds.Features[i].Attributes[DistrictKey], f.Properties[DistrictKey])
		}
	}
}

func TestConvertFeature_LonLatOrder(t *testing.T) {
	ring := lonLatSquare(78.4, 17.3, 0.1)
	f := projectedFeature(t, "Hyderabad", ring)

	proj, err := NewProjector(TelanganaLCC())
	if err != nil {
		t.Fatalf("NewProjector failed: %v", err)
	}
	out, err := ConvertFeature(&f, proj)
	if err != nil {
		t.Fatalf("ConvertFeature failed: %v", err)
	}

	poly := out.Geometry.(orb.Polygon)
	for i, p := range poly[0] {
		want := orb.Point{ring[i][0], ring[i][1]}
		if !nearlyEqual(p, want) {
			t.Errorf("point %d: expected %v, got %v", i, want, p)
		}
	}
}

func TestConvertFeature_Origin(t *testing.T) {
	f := EsriFeature{
		Attributes: map[string]interface{}{DistrictKey: "Origin"},
		Geometry: &EsriGeometry{Rings: [][][]float64{{
			{4000000, 4000000},
			{4010000, 4000000},
			{4010000, 4010000},
			{4000000, 4000000},
		}}},
	}

	proj, err := NewProjector(TelanganaLCC())
	if err != nil {
		t.Fatalf("NewProjector failed: %v", err)
	}
	out, err := ConvertFeature(&f, proj)
	if err != nil {
		t.Fatalf("ConvertFeature failed: %v", err)
	}

	first := out.Geometry.(orb.Polygon)[0][0]
	if !nearlyEqual(first, orb.Point{80, 24}) {
		t.Errorf("expected (80, 24), got %v", first)
	}
}

func TestConvertFeature_Attributes(t *testing.T) {
	f := projectedFeature(t, "Hyderabad", lonLatSquare(78.4, 17.3, 0.1))
	f.Attributes["Remarks"] = nil

	proj, _ := NewProjector(TelanganaLCC())
	out, err := ConvertFeature(&f, proj)
	if err != nil {
		t.Fatalf("ConvertFeature failed: %v", err)
	}

	if len(out.Properties) != len(f.Attributes) {
		t.Errorf("expected %d properties, got %d", len(f.Attributes), len(out.Properties))
	}
	for k, v := range f.Attributes {
		if out.Properties[k] != v {
			t.Errorf("property %s: expected %v, got %v", k, v, out.Properties[k])
		}
	}

	// The source attributes must not alias the output properties.
	out.Properties["added"] = true
	if _, ok := f.Attributes["added"]; ok {
		t.Error("expected attributes to be copied")
	}
}

func TestConvertFeature_Malformed(t *testing.T) {
	tests := []struct {
		name string
		geom *EsriGeometry
	}{
		{"nil geometry", nil},
		{"no rings", &EsriGeometry{}},
		{"two distinct points", &EsriGeometry{Rings: [][][]float64{{{1, 1}, {2, 2}, {1, 1}}}}},
		{"short point", &EsriGeometry{Rings: [][][]float64{{{4}, {1, 1}, {2, 2}, {3, 1}}}}},
	}

	proj, _ := NewProjector(TelanganaLCC())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := EsriFeature{Geometry: tt.geom}
			_, err := ConvertFeature(&f, proj)
			if !errors.Is(err, ErrMalformedGeometry) {
				t.Errorf("expected ErrMalformedGeometry, got %v", err)
			}
		})
	}
}

type failingProjector struct{}

func (failingProjector) Inverse(x, y float64) (float64, float64, error) {
	return math.NaN(), math.NaN(), nil
}

func TestConvertFeature_ProjectionError(t *testing.T) {
	f := projectedFeature(t, "Hyderabad", lonLatSquare(78.4, 17.3, 0.1))

	_, err := ConvertFeature(&f, failingProjector{})
	if !errors.Is(err, ErrProjection) {
		t.Errorf("expected ErrProjection, got %v", err)
	}

	f.Geometry.Rings[0][1] = []float64{math.Inf(1), 0}
	proj, _ := NewProjector(TelanganaLCC())
	_, err = ConvertFeature(&f, proj)
	if !errors.Is(err, ErrProjection) {
		t.Errorf("expected ErrProjection for infinite input, got %v", err)
	}
}

func TestConvertRegionDataset_Strict(t *testing.T) {
	ds := testDataset(t)
	ds.Features[1].Geometry = nil

	_, err := ConvertRegionDataset(ds, TelanganaLCC())
	var fe *FeatureError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FeatureError, got %v", err)
	}
	if fe.Index != 1 || fe.District != "Rangareddy" {
		t.Errorf("expected feature 1 (Rangareddy), got %d (%s)", fe.Index, fe.District)
	}
	if !errors.Is(err, ErrMalformedGeometry) {
		t.Errorf("expected ErrMalformedGeometry, got %v", err)
	}
}

func TestLoadRegion_SkipsAndLogs(t *testing.T) {
	ds := testDataset(t)
	ds.Features[0].Geometry = nil

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))

	fc, skipped, err := LoadRegion(ds, TelanganaLCC(), l)
	if err != nil {
		t.Fatalf("LoadRegion failed: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Errorf("expected 2 features, got %d", len(fc.Features))
	}
	if len(skipped) != 1 || skipped[0].District != "Hyderabad" {
		t.Errorf("expected Hyderabad to be skipped, got %v", skipped)
	}
	if DistrictName(fc.Features[0]) != "Rangareddy" {
		t.Errorf("expected source order to be kept, got %s first", DistrictName(fc.Features[0]))
	}
	if !strings.Contains(buf.String(), "feature_skipped") {
		t.Errorf("expected skip to be logged, got %q", buf.String())
	}
}

func TestLoadRegion_SkipsUndecodableRings(t *testing.T) {
	good, err := json.Marshal(projectedFeature(t, "Hyderabad", lonLatSquare(78.4, 17.3, 0.1)))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	tests := []struct {
		name  string
		rings string
	}{
		{"string ordinates", `[[["a","b"],[1,2],[3,4]]]`},
		{"object point", `[[{"x":1},[1,2],[3,4]]]`},
		{"null ordinate", `[[[null,1],[1,2],[3,4]]]`},
		{"rings not an array", `"none"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `{"features":[` + string(good) +
				`,{"attributes":{"DISTRICT":"Nalgonda"},"geometry":{"rings":` + tt.rings + `}}]}`
			ds, err := ReadEsriDataset(strings.NewReader(doc))
			if err != nil {
				t.Fatalf("ReadEsriDataset failed: %v", err)
			}

			fc, skipped, err := LoadRegion(ds, TelanganaLCC(), slog.New(slog.NewTextHandler(io.Discard, nil)))
			if err != nil {
				t.Fatalf("LoadRegion failed: %v", err)
			}
			if len(fc.Features) != 1 || DistrictName(fc.Features[0]) != "Hyderabad" {
				t.Errorf("expected only Hyderabad to load, got %d features", len(fc.Features))
			}
			if len(skipped) != 1 || skipped[0].District != "Nalgonda" {
				t.Fatalf("expected Nalgonda to be skipped, got %v", skipped)
			}
			if !errors.Is(skipped[0], ErrMalformedGeometry) {
				t.Errorf("expected ErrMalformedGeometry, got %v", skipped[0])
			}
		})
	}
}

func TestNewProjector_Invalid(t *testing.T) {
	spec := TelanganaLCC()
	spec.Params.Lat1, spec.Params.Lat2 = 10, -10

	if _, err := NewProjector(spec); !errors.Is(err, ErrProjection) {
		t.Errorf("expected ErrProjection, got %v", err)
	}
}

func TestProj4(t *testing.T) {
	want := "+proj=lcc +lat_1=12.472944 +lat_2=35.172806 +lat_0=24 +lon_0=80 +x_0=4000000 +y_0=4000000 +datum=WGS84 +units=m"
	if got := TelanganaLCC().Proj4(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
