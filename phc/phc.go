// Package phc loads the primary health centre listing: a delimited file
// with a header row naming at least the District, Mandal and PHC columns.
package phc

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/tingold/district-atlas/stats"
)

// Required columns.
const (
	DistrictColumn = "District"
	MandalColumn   = "Mandal"
	PHCColumn      = "PHC"
)

// NoDataNotice is shown for a district without health centres.
const NoDataNotice = "No PHC data found for this district."

var (
	ErrMissingColumn = errors.New("phc: missing column")
	ErrEmpty         = errors.New("phc: no header row")
)

// Entry is one health centre. Fields holds every column of its line.
type Entry struct {
	District string            `json:"district"`
	Mandal   string            `json:"mandal"`
	PHC      string            `json:"phc"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// Directory is an immutable list of entries.
type Directory struct {
	Columns []string
	entries []Entry
}

// Open loads the file at path.
func Open(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load parses a listing. A UTF-8 byte order mark is dropped and input that
// is not valid UTF-8 is read as Windows-1252. Blank lines are skipped.
func Load(r io.Reader) (*Directory, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("phc: read: %w", err)
	}
	text, err := decode(raw)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(bytes.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("phc: header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	for _, col := range []string{DistrictColumn, MandalColumn, PHCColumn} {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	d := &Directory{Columns: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("phc: line %d: %w", len(d.entries)+2, err)
		}
		if blank(rec) {
			continue
		}
		e := Entry{Fields: make(map[string]string, len(header))}
		for i, h := range header {
			if i < len(rec) {
				e.Fields[h] = strings.TrimSpace(rec[i])
			}
		}
		e.District = e.Fields[DistrictColumn]
		e.Mandal = e.Fields[MandalColumn]
		e.PHC = e.Fields[PHCColumn]
		d.entries = append(d.entries, e)
	}
	return d, nil
}

func decode(raw []byte) ([]byte, error) {
	if utf8.Valid(raw) {
		out, err := unicode.UTF8BOM.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("phc: decode utf-8: %w", err)
		}
		return out, nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("phc: decode windows-1252: %w", err)
	}
	return out, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Len returns the number of entries.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Entries returns a copy of every entry in file order.
func (d *Directory) Entries() []Entry {
	if d == nil {
		return nil
	}
	return append([]Entry(nil), d.entries...)
}

// ForDistrict returns the entries of name, matched after trimming and case
// folding, in file order.
func (d *Directory) ForDistrict(name string) []Entry {
	out := []Entry{}
	if d == nil {
		return out
	}
	want := stats.NormalizeDistrict(name)
	for _, e := range d.entries {
		if e.District != "" && stats.NormalizeDistrict(e.District) == want {
			out = append(out, e)
		}
	}
	return out
}

// Heading titles the listing of name: "<name> PHCs (<n>)", or just the
// name when it has no entries.
func (d *Directory) Heading(name string) string {
	n := len(d.ForDistrict(name))
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s PHCs (%d)", name, n)
}
