package stats

import (
	"encoding/json"
	"math"
)

const (
	// AllFields selects every statistic field of a category.
	AllFields = "all"
	// Placeholder is rendered for values a row does not carry.
	Placeholder = "-"
)

// PlaceholderMode decides which values DisplayRows replaces with the
// placeholder.
type PlaceholderMode int

const (
	// PlaceholderAbsent replaces only fields the row does not carry or
	// holds as null. Legitimate zero counts are shown as 0.
	PlaceholderAbsent PlaceholderMode = iota
	// PlaceholderFalsy also replaces nil, false, empty strings, zero and
	// NaN, matching the spreadsheet dashboard's rendering.
	PlaceholderFalsy
)

// ParsePlaceholderMode maps "absent" and "falsy" to a mode. Anything else
// yields PlaceholderAbsent.
func ParsePlaceholderMode(s string) PlaceholderMode {
	if s == "falsy" {
		return PlaceholderFalsy
	}
	return PlaceholderAbsent
}

func (m PlaceholderMode) String() string {
	if m == PlaceholderFalsy {
		return "falsy"
	}
	return "absent"
}

// DisplayColumns returns the table header for rows. District is always
// first; subField "all" adds every field of the first row in order,
// otherwise only subField follows. No rows means no columns.
func DisplayColumns(rows []Row, subField string) []string {
	if len(rows) == 0 {
		return []string{}
	}
	if subField != AllFields {
		return []string{DistrictField, subField}
	}
	return append([]string{DistrictField}, rows[0].FieldNames()...)
}

// DisplayRows projects every row onto columns, keeping input order.
func DisplayRows(rows []Row, columns []string, mode PlaceholderMode) [][]any {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		cells := make([]any, len(columns))
		for i, c := range columns {
			v, ok := r.Get(c)
			if !ok || v == nil || (mode == PlaceholderFalsy && falsy(v)) {
				cells[i] = Placeholder
				continue
			}
			cells[i] = v
		}
		out = append(out, cells)
	}
	return out
}

// SelectDistrict returns the rows whose District equals name after
// trimming and case folding. An empty result is a valid answer.
func SelectDistrict(rows []Row, name string) []Row {
	want := NormalizeDistrict(name)
	out := []Row{}
	for _, r := range rows {
		if !r.Has(DistrictField) {
			continue
		}
		if NormalizeDistrict(r.District()) == want {
			out = append(out, r)
		}
	}
	return out
}

// FilterFieldNames lists the statistic fields offered as sub-field
// filters: the first row's fields without District and rowId.
func FilterFieldNames(rows []Row) []string {
	if len(rows) == 0 {
		return []string{}
	}
	return rows[0].FieldNames()
}

func falsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	case json.Number:
		f, err := x.Float64()
		return err == nil && (f == 0 || math.IsNaN(f))
	case float64:
		return x == 0 || math.IsNaN(x)
	case float32:
		return x == 0 || math.IsNaN(float64(x))
	case int:
		return x == 0
	case int64:
		return x == 0
	}
	return false
}
