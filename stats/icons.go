package stats

import "strings"

var categoryIcons = map[string]string{
	"Geographical Area":     "landscape",
	"Population Data":       "groups",
	"Literacy Rate":         "auto_stories",
	"Working Population":    "engineering",
	"Occupation":            "work",
	"Health Infrastructure": "local_hospital",
	"Education Sector":      "school",
	"Aasara Pensions":       "elderly",
	"Road Infrastructure":   "add_road",
	"Transport":             "directions_bus",
}

// CategoryIcon returns the Material icon name of a category.
func CategoryIcon(category string) string {
	if icon, ok := categoryIcons[category]; ok {
		return icon
	}
	return "info"
}

// FieldIcon picks a Material icon for a statistic field from keywords in
// its name. Rules are checked in order; the first match wins.
func FieldIcon(field string) string {
	k := strings.ToLower(field)
	switch {
	case strings.Contains(k, "male") && !strings.Contains(k, "fe"):
		return "man"
	case strings.Contains(k, "female"):
		return "woman"
	case strings.Contains(k, "total"):
		return "functions"
	case strings.Contains(k, "rural"):
		return "agriculture"
	case strings.Contains(k, "urban"):
		return "apartment"
	case strings.Contains(k, "school"), strings.Contains(k, "college"):
		return "school"
	case strings.Contains(k, "hospital"), strings.Contains(k, "bed"):
		return "local_hospital"
	case strings.Contains(k, "road"):
		return "edit_road"
	case strings.Contains(k, "area"), strings.Contains(k, "villages"):
		return "grid_on"
	case strings.Contains(k, "mandals"):
		return "map"
	default:
		return "label_important"
	}
}

// PopupEntry is one labelled value of a district popup.
type PopupEntry struct {
	Label string `json:"label"`
	Value any    `json:"value"`
	Icon  string `json:"icon"`
}

// Popup is the summary card of one district.
type Popup struct {
	District string       `json:"district"`
	Icon     string       `json:"icon"`
	Entries  []PopupEntry `json:"entries"`
	Notice   string       `json:"notice,omitempty"`
}

// NoFilterDataNotice is shown when a popup has no field for the filter.
const NoFilterDataNotice = "No data for selected filter."

// BuildPopup summarises the first row of rows matching district. It
// returns false when no row matches.
func BuildPopup(rows []Row, district, category, subField string) (*Popup, bool) {
	matches := SelectDistrict(rows, district)
	if len(matches) == 0 {
		return nil, false
	}

	p := &Popup{
		District: district,
		Icon:     CategoryIcon(category),
		Entries:  PopupEntries(matches[0], subField),
	}
	if len(p.Entries) == 0 {
		p.Notice = NoFilterDataNotice
	}
	return p, true
}

// DistrictPopup is BuildPopup with a no-match card for a district without
// rows.
func DistrictPopup(rows []Row, district, category, subField string) *Popup {
	if p, ok := BuildPopup(rows, district, category, subField); ok {
		return p
	}
	return &Popup{
		District: district,
		Icon:     CategoryIcon(category),
		Entries:  []PopupEntry{},
		Notice:   NoMatchNotice(district),
	}
}

// PopupEntries lists the statistic fields of row, limited to subField
// unless it is "all".
func PopupEntries(row Row, subField string) []PopupEntry {
	entries := []PopupEntry{}
	for _, f := range row.Fields() {
		if f.Name == DistrictField || f.Name == RowIDField {
			continue
		}
		if subField != AllFields && f.Name != subField {
			continue
		}
		entries = append(entries, PopupEntry{Label: f.Name, Value: f.Value, Icon: FieldIcon(f.Name)})
	}
	return entries
}
