package stats

import "fmt"

// Table is a rendered view of category rows.
type Table struct {
	Title   string   `json:"title"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Notice  string   `json:"notice,omitempty"`
}

// Empty reports whether the table has no data rows.
func (t *Table) Empty() bool {
	return len(t.Rows) == 0
}

// BuildTable renders rows under subField with the given title.
func BuildTable(title string, rows []Row, subField string, mode PlaceholderMode) *Table {
	columns := DisplayColumns(rows, subField)
	return &Table{
		Title:   title,
		Columns: columns,
		Rows:    DisplayRows(rows, columns, mode),
	}
}

// RegionTable renders every row of category under the region heading. An
// empty category carries NoDataNotice.
func RegionTable(region, category string, rows []Row, subField string, mode PlaceholderMode) *Table {
	t := BuildTable(RegionTitle(region, category), rows, subField, mode)
	if t.Empty() {
		t.Notice = NoDataNotice
	}
	return t
}

// DistrictTable renders the rows of district under its own heading. A
// district without rows carries the no-match notice.
func DistrictTable(district, category string, rows []Row, subField string, mode PlaceholderMode) *Table {
	t := BuildTable(DistrictTitle(district, category), SelectDistrict(rows, district), subField, mode)
	if t.Empty() {
		t.Notice = NoMatchNotice(district)
	}
	return t
}

// RegionTitle is the heading of the whole-region table.
func RegionTitle(region, category string) string {
	return fmt.Sprintf("%s %s Data", region, category)
}

// DistrictTitle is the heading of a single-district table.
func DistrictTitle(district, category string) string {
	return fmt.Sprintf("%s %s Data", district, category)
}

// NoMatchNotice is shown when a district has no rows in the category.
func NoMatchNotice(district string) string {
	return fmt.Sprintf("No data found for %s.", district)
}

// NoDataNotice is shown when a category has no rows at all.
const NoDataNotice = "No Data Available"
