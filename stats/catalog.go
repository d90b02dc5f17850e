package stats

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownCategory = errors.New("stats: unknown category")
	ErrUnknownDistrict = errors.New("stats: unknown district")
	ErrMissingDistrict = errors.New("stats: district is required")
	ErrUnknownField    = errors.New("stats: unknown field")
	ErrInvalidValue    = errors.New("stats: invalid value")
)

// Categories lists the statistic categories in menu order.
var Categories = []string{
	"Geographical Area",
	"Population Data",
	"Literacy Rate",
	"Working Population",
	"Occupation",
	"Health Infrastructure",
	"Education Sector",
	"Aasara Pensions",
	"Road Infrastructure",
	"Transport",
}

// Districts lists the districts offered by the entry form.
var Districts = []string{
	"Adilabad", "Bhadradri Kothagudem", "Hyderabad", "Jagtial", "Jangaon",
	"Jayashankar Bhupalpally", "Jogulamba Gadwal", "Kamareddy", "Karimnagar",
	"Khammam", "Kumuram Bheem", "Mahabubabad", "Mahabubnagar", "Mancherial",
	"Medak", "Medchal-Malkajgiri", "Mulugu", "Nagarkurnool", "Nalgonda",
	"Narayanpet", "Nirmal", "Nizamabad", "Peddapalli", "Rajanna Sircilla",
	"Rangareddy", "Sangareddy", "Siddipet", "Suryapet", "Vikarabad",
	"Wanaparthy", "Warangal", "Hanamkonda", "Yadadri Bhuvanagiri",
}

var formLabels = map[string][]string{
	"Geographical Area":     {"Revenue Villages", "Revenue Mandals", "Revenue Divisions", "Gram Panchayats"},
	"Population Data":       {"Total Pop", "Males", "Females", "Rural", "Urban"},
	"Literacy Rate":         {"Total Lit", "Male Lit", "Female Lit"},
	"Working Population":    {"Total Work", "Male Work", "Female Work"},
	"Occupation":            {"Cultivators", "Agri Labourers", "Household Ind", "Other Workers", "Non Working"},
	"Health Infrastructure": {"Sub Centers", "PHC", "Area Hospitals", "Dist Hospitals", "Teaching Hospitals"},
	"Education Sector":      {"Primary Schools", "Upper Primary", "High Schools", "Total Schools", "Model Schools", "KGBV", "Junior Colleges", "Degree Colleges", "Eng Colleges", "MBA Colleges"},
	"Aasara Pensions":       {"Old Age", "Disabled", "Widow", "Weavers", "Toddy Tappers"},
	"Road Infrastructure":   {"State Highways", "Major Dist Roads", "Rural Roads", "Total Roads"},
	"Transport":             {"Bus Depots", "Fleet", "Daily Kms"},
}

var occupationSplits = []string{"Total", "Male", "Female"}

// TransportTypes are the choices of the Transport category's type selector.
var TransportTypes = []string{"Road", "Rail"}

// InputKind is the kind of an entry form control.
type InputKind string

const (
	InputNumber InputKind = "number"
	InputSelect InputKind = "select"
)

// FormField describes one control of the entry form.
type FormField struct {
	Label    string    `json:"label"`
	Name     string    `json:"name"`
	Kind     InputKind `json:"kind"`
	Section  string    `json:"section,omitempty"`
	Options  []string  `json:"options,omitempty"`
	Required bool      `json:"required,omitempty"`
}

// IsCategory reports whether name is a known category.
func IsCategory(name string) bool {
	_, ok := formLabels[name]
	return ok
}

// CanonicalDistrict returns the listed spelling of name, matched after
// trimming and case folding.
func CanonicalDistrict(name string) (string, bool) {
	want := NormalizeDistrict(name)
	for _, d := range Districts {
		if NormalizeDistrict(d) == want {
			return d, true
		}
	}
	return "", false
}

// FormFields returns the entry form of category, District selector first.
func FormFields(category string) ([]FormField, error) {
	labels, ok := formLabels[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	fields := []FormField{{
		Label:    DistrictField,
		Name:     DistrictField,
		Kind:     InputSelect,
		Options:  Districts,
		Required: true,
	}}

	switch category {
	case "Occupation":
		for _, section := range labels {
			for _, split := range occupationSplits {
				f := numberInput(section + " " + split)
				f.Section = section
				fields = append(fields, f)
			}
		}
	case "Transport":
		fields = append(fields, FormField{
			Label:   "Type",
			Name:    "TransportType",
			Kind:    InputSelect,
			Options: TransportTypes,
		})
		for _, l := range labels {
			fields = append(fields, numberInput(l))
		}
	default:
		for _, l := range labels {
			fields = append(fields, numberInput(l))
		}
	}
	return fields, nil
}

func numberInput(label string) FormField {
	return FormField{
		Label: label,
		Name:  strings.ReplaceAll(label, " ", ""),
		Kind:  InputNumber,
	}
}
