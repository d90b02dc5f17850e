package stats

import (
	"fmt"
	"strconv"
	"strings"
)

// CategoryField is the form key carrying the category of a saved record.
const CategoryField = "category"

// Record is a validated entry-form submission.
type Record struct {
	Category string
	RowID    string // empty for new rows
	District string
	Values   []Field
}

// NewRecord validates form values against the category's entry form and
// returns them in form order. Numeric inputs may be left empty.
func NewRecord(category, rowID string, form map[string]string) (Record, error) {
	fields, err := FormFields(category)
	if err != nil {
		return Record{}, err
	}

	known := make(map[string]FormField, len(fields))
	for _, f := range fields {
		known[f.Name] = f
	}
	for name := range form {
		if name == CategoryField || name == RowIDField {
			continue
		}
		if _, ok := known[name]; !ok {
			return Record{}, fmt.Errorf("%w: %q in %s", ErrUnknownField, name, category)
		}
	}

	rec := Record{Category: category, RowID: strings.TrimSpace(rowID)}

	raw := strings.TrimSpace(form[DistrictField])
	if raw == "" {
		return Record{}, ErrMissingDistrict
	}
	district, ok := CanonicalDistrict(raw)
	if !ok {
		return Record{}, fmt.Errorf("%w: %q", ErrUnknownDistrict, raw)
	}
	rec.District = district

	for _, f := range fields[1:] {
		v := strings.TrimSpace(form[f.Name])
		switch f.Kind {
		case InputNumber:
			if v != "" {
				if _, err := strconv.ParseFloat(v, 64); err != nil {
					return Record{}, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidValue, f.Name, v)
				}
			}
		case InputSelect:
			if v == "" && len(f.Options) > 0 {
				v = f.Options[0]
			}
			if !contains(f.Options, v) {
				return Record{}, fmt.Errorf("%w: %s=%q", ErrInvalidValue, f.Name, v)
			}
		}
		rec.Values = append(rec.Values, Field{Name: f.Name, Value: v})
	}
	return rec, nil
}

// FormData returns the record as the key/value object sent to the store:
// category, rowId, District and then the form fields in order.
func (r Record) FormData() Row {
	row := NewRow(
		Field{Name: CategoryField, Value: r.Category},
		Field{Name: RowIDField, Value: r.RowID},
		Field{Name: DistrictField, Value: r.District},
	)
	for _, f := range r.Values {
		row.Set(f.Name, f.Value)
	}
	return row
}

// Row returns the record as a stored statistic row: District first, the
// form fields, then rowId.
func (r Record) Row() Row {
	row := NewRow(Field{Name: DistrictField, Value: r.District})
	for _, f := range r.Values {
		row.Set(f.Name, f.Value)
	}
	row.Set(RowIDField, r.RowID)
	return row
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
