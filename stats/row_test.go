package stats

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

const sampleRows = `[
  {"District": "Adilabad", "TotalPop": 708972, "Males": 356407, "Females": 352565, "rowId": 2},
  {"District": "Hyderabad", "TotalPop": 3943323, "Males": 2018575, "Females": 1924748, "rowId": 3}
]`

func TestDecodeRows(t *testing.T) {
	rows, err := DecodeRows(strings.NewReader(sampleRows))
	if err != nil {
		t.Fatalf("DecodeRows failed: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	want := []string{"District", "TotalPop", "Males", "Females", "rowId"}
	if got := rows[0].Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected key order %v, got %v", want, got)
	}
	if rows[1].District() != "Hyderabad" {
		t.Errorf("expected Hyderabad, got %q", rows[1].District())
	}
	if rows[1].RowID() != "3" {
		t.Errorf("expected rowId 3, got %q", rows[1].RowID())
	}
	if v, _ := rows[0].Get("TotalPop"); v != json.Number("708972") {
		t.Errorf("expected json.Number 708972, got %#v", v)
	}
}

func TestDecodeRows_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"object instead of array", `{"District": "Adilabad"}`},
		{"array of scalars", `[1, 2]`},
		{"truncated", `[{"District": "Adilabad"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeRows(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRow_JSONRoundTrip(t *testing.T) {
	in := `{"District":"Mulugu","Z":1,"A":"x","rowId":"r-1"}`

	var r Row
	if err := json.Unmarshal([]byte(in), &r); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != in {
		t.Errorf("expected %s, got %s", in, out)
	}
}

func TestRow_Set(t *testing.T) {
	r := NewRow(Field{"District", "Medak"}, Field{"Fleet", 10})
	r.Set("Fleet", 12)
	r.Set("rowId", "7")

	if got := r.Names(); !reflect.DeepEqual(got, []string{"District", "Fleet", "rowId"}) {
		t.Errorf("unexpected names %v", got)
	}
	if v, _ := r.Get("Fleet"); v != 12 {
		t.Errorf("expected 12, got %v", v)
	}
	if got := r.FieldNames(); !reflect.DeepEqual(got, []string{"Fleet"}) {
		t.Errorf("expected [Fleet], got %v", got)
	}
}

func TestRow_Zero(t *testing.T) {
	var r Row
	if r.District() != "" || r.RowID() != "" || r.Len() != 0 {
		t.Error("expected zero row to be empty")
	}
	if _, ok := r.Get("District"); ok {
		t.Error("expected no District on zero row")
	}
	out, err := json.Marshal(r)
	if err != nil || string(out) != "{}" {
		t.Errorf("expected {}, got %s (%v)", out, err)
	}
}

func TestNormalizeDistrict(t *testing.T) {
	if got := NormalizeDistrict("  Rajanna Sircilla\t"); got != "RAJANNA SIRCILLA" {
		t.Errorf("expected RAJANNA SIRCILLA, got %q", got)
	}
}
