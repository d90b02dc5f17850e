package districtmap

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleEsri = `{
  "displayFieldName": "DISTRICT",
  "geometryType": "esriGeometryPolygon",
  "spatialReference": {"wkt": "lcc"},
  "features": [
    {
      "attributes": {"OBJECTID": 7, "DISTRICT": "Nalgonda", "Shape_Area": 7122.5},
      "geometry": {"rings": [[[3900000, 3400000], [3950000, 3400000], [3950000, 3450000, 12], [3900000, 3400000]]]}
    },
    {
      "attributes": {"OBJECTID": 8, "DISTRICT": "Suryapet"},
      "geometry": null
    }
  ]
}`

func TestReadEsriDataset(t *testing.T) {
	ds, err := ReadEsriDataset(strings.NewReader(sampleEsri))
	if err != nil {
		t.Fatalf("ReadEsriDataset failed: %v", err)
	}

	if len(ds.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(ds.Features))
	}
	if ds.Features[0].District() != "Nalgonda" {
		t.Errorf("expected Nalgonda, got %q", ds.Features[0].District())
	}
	if n, ok := ds.Features[0].Attributes["Shape_Area"].(json.Number); !ok || n.String() != "7122.5" {
		t.Errorf("expected json.Number 7122.5, got %#v", ds.Features[0].Attributes["Shape_Area"])
	}
	if got := len(ds.Features[0].Geometry.Rings[0][2]); got != 3 {
		t.Errorf("expected z ordinate to be kept, got %d ordinates", got)
	}
	if ds.Features[1].Geometry != nil {
		t.Error("expected nil geometry for the second feature")
	}
}

func TestReadEsriDataset_Invalid(t *testing.T) {
	_, err := ReadEsriDataset(strings.NewReader(`{"features": [`))
	if !errors.Is(err, ErrInvalidData) {
		t.Errorf("expected ErrInvalidData, got %v", err)
	}
}

func TestOpenEsriDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TS_DISTRICTS_TOTAL.json")
	if err := os.WriteFile(path, []byte(sampleEsri), 0o644); err != nil {
		t.Fatalf("failed to write dataset: %v", err)
	}

	ds, err := OpenEsriDataset(path)
	if err != nil {
		t.Fatalf("OpenEsriDataset failed: %v", err)
	}

	fc, skipped, err := LoadRegion(ds, TelanganaLCC(), nil)
	if err != nil {
		t.Fatalf("LoadRegion failed: %v", err)
	}
	if len(fc.Features) != 1 || len(skipped) != 1 {
		t.Errorf("expected 1 converted and 1 skipped, got %d and %d", len(fc.Features), len(skipped))
	}

	if _, err := OpenEsriDataset(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEsriFeature_District(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]interface{}
		want  string
	}{
		{"string", map[string]interface{}{DistrictKey: "Mulugu"}, "Mulugu"},
		{"number", map[string]interface{}{DistrictKey: json.Number("12")}, "12"},
		{"missing", map[string]interface{}{}, ""},
		{"nil attributes", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := EsriFeature{Attributes: tt.attrs}
			if got := f.District(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
