package districtmap

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb/geojson"
)

// attributeColumn is one column of the attribute schema written to the
// FlatGeobuf header.
type attributeColumn struct {
	name  string
	typ   flattypes.ColumnType
	typed bool // false while only nulls have been seen
}

// inferSchema walks every feature's properties and returns the column
// schema. Columns appear in first-seen order, keys of a single feature
// being visited alphabetically; types are widened across features.
func inferSchema(features []*geojson.Feature) []attributeColumn {
	index := make(map[string]int)
	var schema []attributeColumn

	for _, f := range features {
		if f == nil || len(f.Properties) == 0 {
			continue
		}
		keys := make([]string, 0, len(f.Properties))
		for k := range f.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			v := f.Properties[k]
			i, ok := index[k]
			if !ok {
				i = len(schema)
				index[k] = i
				schema = append(schema, attributeColumn{name: k, typ: flattypes.ColumnTypeString})
			}
			if v == nil {
				continue
			}
			if schema[i].typed {
				schema[i].typ = promoteColumnType(schema[i].typ, inferColumnType(v))
			} else {
				schema[i].typ = inferColumnType(v)
				schema[i].typed = true
			}
		}
	}
	return schema
}

// buildColumns turns a schema into FlatGeobuf header columns.
func buildColumns(schema []attributeColumn, builder *flatbuffers.Builder) []*writer.Column {
	columns := make([]*writer.Column, 0, len(schema))
	for _, c := range schema {
		col := writer.NewColumn(builder)
		col.SetName(c.name)
		col.SetTitle(c.name)
		col.SetType(c.typ)
		col.SetNullable(true)
		columns = append(columns, col)
	}
	return columns
}

// inferColumnType maps an attribute value to a column type. Values decoded
// from ESRI JSON are strings, json.Number, bools or nil.
func inferColumnType(value interface{}) flattypes.ColumnType {
	switch v := value.(type) {
	case nil:
		return flattypes.ColumnTypeString
	case bool:
		return flattypes.ColumnTypeBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		return flattypes.ColumnTypeLong
	case float32, float64:
		return flattypes.ColumnTypeDouble
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return flattypes.ColumnTypeLong
		}
		return flattypes.ColumnTypeDouble
	case string:
		return flattypes.ColumnTypeString
	default:
		return flattypes.ColumnTypeJson
	}
}

// promoteColumnType returns the narrowest type able to hold both a and b.
// Long widens to Double; any other mix becomes Json so each value keeps
// its own JSON type.
func promoteColumnType(a, b flattypes.ColumnType) flattypes.ColumnType {
	if a == b {
		return a
	}
	if numericColumn(a) && numericColumn(b) {
		return flattypes.ColumnTypeDouble
	}
	return flattypes.ColumnTypeJson
}

func numericColumn(t flattypes.ColumnType) bool {
	return t == flattypes.ColumnTypeLong || t == flattypes.ColumnTypeDouble
}

// encodeAttributes encodes props as FlatGeobuf properties:
// [uint16 column index][value] for every non-null value, in schema order.
func encodeAttributes(props geojson.Properties, schema []attributeColumn) []byte {
	if len(props) == 0 || len(schema) == 0 {
		return nil
	}

	var out []byte
	for i, c := range schema {
		if value := props[c.name]; value != nil {
			out = binary.LittleEndian.AppendUint16(out, uint16(i))
			out = appendAttributeValue(out, value, c.typ)
		}
	}
	return out
}

func appendAttributeValue(out []byte, value interface{}, typ flattypes.ColumnType) []byte {
	le := binary.LittleEndian
	switch typ {
	case flattypes.ColumnTypeBool:
		if b, _ := value.(bool); b {
			return append(out, 1)
		}
		return append(out, 0)
	case flattypes.ColumnTypeLong:
		n, _ := toInt64(value)
		return le.AppendUint64(out, uint64(n))
	case flattypes.ColumnTypeDouble:
		f, _ := toFloat64(value)
		return le.AppendUint64(out, math.Float64bits(f))
	case flattypes.ColumnTypeString:
		return appendSized(out, []byte(toString(value)))
	}
	raw, err := json.Marshal(value)
	if err != nil {
		raw = []byte("null")
	}
	return appendSized(out, raw)
}

// appendSized writes a variable-length value: a little-endian uint32 byte
// count followed by the bytes.
func appendSized(out, b []byte) []byte {
	out = binary.LittleEndian.AppendUint32(out, uint32(len(b)))
	return append(out, b...)
}

// decodeAttributes decodes FlatGeobuf properties using the header columns.
func decodeAttributes(data []byte, header *flattypes.Header) (geojson.Properties, error) {
	props := make(geojson.Properties)
	if len(data) == 0 || header == nil {
		return props, nil
	}

	offset := 0
	for offset < len(data) {
		if offset+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated column index", ErrInvalidData)
		}
		colIndex := int(binary.LittleEndian.Uint16(data[offset : offset+2]))
		offset += 2

		var col flattypes.Column
		if colIndex >= header.ColumnsLength() || !header.Columns(&col, colIndex) {
			return nil, fmt.Errorf("%w: column %d not in header", ErrInvalidData, colIndex)
		}

		value, n := readAttributeValue(data[offset:], col.Type())
		if n == 0 {
			return nil, fmt.Errorf("%w: truncated value for %s", ErrInvalidData, col.Name())
		}
		offset += n
		props[string(col.Name())] = value
	}
	return props, nil
}

// fixedWidth is the encoded size of the fixed-width column types.
var fixedWidth = map[flattypes.ColumnType]int{
	flattypes.ColumnTypeBool:   1,
	flattypes.ColumnTypeInt:    4,
	flattypes.ColumnTypeLong:   8,
	flattypes.ColumnTypeDouble: 8,
}

// readAttributeValue returns the decoded value and the bytes consumed. A
// zero count means data is too short for typ. Numbers come back as
// json.Number, the form they take when decoded from the source dataset.
func readAttributeValue(data []byte, typ flattypes.ColumnType) (interface{}, int) {
	if w, ok := fixedWidth[typ]; ok {
		if len(data) < w {
			return nil, 0
		}
		le := binary.LittleEndian
		switch typ {
		case flattypes.ColumnTypeBool:
			return data[0] != 0, w
		case flattypes.ColumnTypeInt:
			return json.Number(strconv.FormatInt(int64(int32(le.Uint32(data))), 10)), w
		case flattypes.ColumnTypeLong:
			return json.Number(strconv.FormatInt(int64(le.Uint64(data)), 10)), w
		default:
			f := math.Float64frombits(le.Uint64(data))
			return json.Number(strconv.FormatFloat(f, 'f', -1, 64)), w
		}
	}

	text, n := sized(data)
	if n == 0 {
		return nil, 0
	}
	switch typ {
	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime:
		return string(text), n
	case flattypes.ColumnTypeJson:
		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return string(text), n
		}
		return v, n
	case flattypes.ColumnTypeBinary:
		return append([]byte(nil), text...), n
	}
	return nil, 0
}

// sized splits a length-prefixed value off data. A zero count means the
// prefix or the bytes it announces are missing.
func sized(data []byte) ([]byte, int) {
	if len(data) < 4 {
		return nil, 0
	}
	size := binary.LittleEndian.Uint32(data)
	if uint64(size) > uint64(len(data)-4) {
		return nil, 0
	}
	end := 4 + int(size)
	return data[4:end], end
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		return int64(f), err == nil
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	i, ok := toInt64(v)
	return float64(i), ok
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}
