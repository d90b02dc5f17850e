package stats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Reserved field names carried by every row.
const (
	DistrictField = "District"
	RowIDField    = "rowId"
)

// Field is one named value of a Row.
type Field struct {
	Name  string
	Value any
}

// Row is one record of a statistic category: an ordered list of named
// values. Field order is the order of the source object's keys.
type Row struct {
	fields []Field
	index  map[string]int
}

// NewRow builds a row from fields. A repeated name overwrites the earlier
// value in place.
func NewRow(fields ...Field) Row {
	var r Row
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Set assigns name, appending it if the row does not carry it yet.
func (r *Row) Set(name string, value any) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// Get returns the value stored under name.
func (r Row) Get(name string) (any, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.fields[i].Value, true
}

// Has reports whether the row carries name.
func (r Row) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Len returns the number of fields, reserved ones included.
func (r Row) Len() int {
	return len(r.fields)
}

// Fields returns a copy of every field in order.
func (r Row) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Names returns every field name in order, reserved ones included.
func (r Row) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// FieldNames returns the statistic field names in order, without
// District and rowId.
func (r Row) FieldNames() []string {
	names := make([]string, 0, len(r.fields))
	for _, f := range r.fields {
		if f.Name == DistrictField || f.Name == RowIDField {
			continue
		}
		names = append(names, f.Name)
	}
	return names
}

// District returns the row's district name, or "" when absent.
func (r Row) District() string {
	return r.stringField(DistrictField)
}

// RowID returns the row's store identifier, or "" when absent.
func (r Row) RowID() string {
	return r.stringField(RowIDField)
}

func (r Row) stringField(name string) string {
	v, ok := r.Get(name)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// MarshalJSON writes the row as a JSON object with keys in field order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping its key order. Numbers are
// kept as json.Number.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	row, err := decodeRow(dec)
	if err != nil {
		return err
	}
	*r = row
	return nil
}

// DecodeRows reads a JSON array of row objects.
func DecodeRows(rd io.Reader) ([]Row, error) {
	dec := json.NewDecoder(rd)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("expected array, got %v", tok)
	}

	var rows []Row
	for dec.More() {
		row, err := decodeRow(dec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(rows), err)
		}
		rows = append(rows, row)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return rows, nil
}

func decodeRow(dec *json.Decoder) (Row, error) {
	tok, err := dec.Token()
	if err != nil {
		return Row{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Row{}, fmt.Errorf("expected object, got %v", tok)
	}

	var r Row
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Row{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Row{}, fmt.Errorf("expected key, got %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return Row{}, fmt.Errorf("field %s: %w", key, err)
		}
		r.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return Row{}, err
	}
	return r, nil
}

// NormalizeDistrict folds a district name for comparison: surrounding
// whitespace is trimmed and letters are upper-cased.
func NormalizeDistrict(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
