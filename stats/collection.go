package stats

// Schema is the ordered list of statistic fields of a category.
type Schema struct {
	Fields []string `json:"fields"`
}

// Has reports whether the schema names field.
func (s Schema) Has(field string) bool {
	for _, f := range s.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Matches reports whether r carries exactly the schema's fields, in order.
func (s Schema) Matches(r Row) bool {
	names := r.FieldNames()
	if len(names) != len(s.Fields) {
		return false
	}
	for i := range names {
		if names[i] != s.Fields[i] {
			return false
		}
	}
	return true
}

// Collection holds the rows of one category together with the schema
// derived from its first row.
type Collection struct {
	Category string `json:"category"`
	Schema   Schema `json:"schema"`
	Rows     []Row  `json:"rows"`
}

// NewCollection derives the schema from rows[0]. An empty rows slice gives
// an empty schema.
func NewCollection(category string, rows []Row) *Collection {
	c := &Collection{Category: category, Rows: rows}
	if rows == nil {
		c.Rows = []Row{}
	}
	c.Schema = Schema{Fields: FilterFieldNames(c.Rows)}
	return c
}

// Mismatched returns the indexes of rows whose fields differ from the
// schema. Such rows still render; columns they lack show the placeholder.
func (c *Collection) Mismatched() []int {
	var idx []int
	for i, r := range c.Rows {
		if !c.Schema.Matches(r) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Districts returns the District of every row in order.
func (c *Collection) Districts() []string {
	out := make([]string, 0, len(c.Rows))
	for _, r := range c.Rows {
		out = append(out, r.District())
	}
	return out
}
