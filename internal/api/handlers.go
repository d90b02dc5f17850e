package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/paulmach/orb"

	districtmap "github.com/tingold/district-atlas"
	"github.com/tingold/district-atlas/phc"
	"github.com/tingold/district-atlas/stats"
	"github.com/tingold/district-atlas/store"
)

// maxUpload caps request bodies.
const maxUpload = 8 << 20

type tableResponse struct {
	*stats.Table
	Category   string   `json:"category"`
	SubField   string   `json:"subField"`
	SubFields  []string `json:"subFields"`
	Mismatched []int    `json:"mismatched,omitempty"`
}

type categoryInfo struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type phcResponse struct {
	District string      `json:"district"`
	Heading  string      `json:"heading"`
	Entries  []phc.Entry `json:"entries"`
	Notice   string      `json:"notice,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"districts": s.region.Len(),
		"phc":       s.PHC().Len(),
	})
}

func (s *Server) regionGeoJSON(w http.ResponseWriter, r *http.Request) {
	fc := s.region.Filter(r.URL.Query()["district"])
	data, err := fc.MarshalJSON()
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}

func (s *Server) regionFlatGeobuf(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(s.regionFGB)))
	w.Write(s.regionFGB)
}

func (s *Server) locate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lon, err1 := strconv.ParseFloat(q.Get("lon"), 64)
	lat, err2 := strconv.ParseFloat(q.Get("lat"), 64)
	if err1 != nil || err2 != nil {
		s.fail(w, r, http.StatusBadRequest, errors.New("lon and lat must be numbers"))
		return
	}
	f, ok := s.region.Locate(orb.Point{lon, lat})
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no district at location"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"district":   districtmap.DistrictName(f),
		"properties": f.Properties,
	})
}

func (s *Server) districts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"region": s.region.Names(),
		"form":   stats.Districts,
	})
}

func (s *Server) categories(w http.ResponseWriter, r *http.Request) {
	out := make([]categoryInfo, 0, len(stats.Categories))
	for _, c := range stats.Categories {
		out = append(out, categoryInfo{Name: c, Icon: stats.CategoryIcon(c)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) form(w http.ResponseWriter, r *http.Request) {
	fields, err := stats.FormFields(mux.Vars(r)["category"])
	if err != nil {
		s.fail(w, r, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

// rows reads and validates the category and sub-field query parameters
// and fetches the category.
func (s *Server) rows(w http.ResponseWriter, r *http.Request) (*stats.Collection, string, bool) {
	q := r.URL.Query()
	category := q.Get("category")
	if !stats.IsCategory(category) {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("%w: %q", stats.ErrUnknownCategory, category))
		return nil, "", false
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.FetchTimeout)
	defer cancel()
	rows, err := s.store.Read(ctx, category)
	if err != nil {
		s.fail(w, r, statusOf(err), err)
		return nil, "", false
	}
	coll := stats.NewCollection(category, rows)

	subField := q.Get("field")
	if subField == "" {
		subField = stats.AllFields
	}
	if subField != stats.AllFields && !coll.Schema.Has(subField) {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("unknown field %q in %s", subField, category))
		return nil, "", false
	}
	return coll, subField, true
}

func (s *Server) table(w http.ResponseWriter, r *http.Request) {
	coll, subField, ok := s.rows(w, r)
	if !ok {
		return
	}

	var t *stats.Table
	if district := strings.TrimSpace(r.URL.Query().Get("district")); district != "" {
		t = stats.DistrictTable(district, coll.Category, coll.Rows, subField, s.opts.PlaceholderMode)
	} else {
		t = stats.RegionTable(s.opts.RegionName, coll.Category, coll.Rows, subField, s.opts.PlaceholderMode)
	}

	writeJSON(w, http.StatusOK, tableResponse{
		Table:      t,
		Category:   coll.Category,
		SubField:   subField,
		SubFields:  coll.Schema.Fields,
		Mismatched: coll.Mismatched(),
	})
}

func (s *Server) popup(w http.ResponseWriter, r *http.Request) {
	district := strings.TrimSpace(r.URL.Query().Get("district"))
	if district == "" {
		s.fail(w, r, http.StatusBadRequest, errors.New("district is required"))
		return
	}
	coll, subField, ok := s.rows(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stats.DistrictPopup(coll.Rows, district, coll.Category, subField))
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	coll, _, ok := s.rows(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, coll.Rows)
}

func (s *Server) saveEntry(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	dec := json.NewDecoder(io.LimitReader(r.Body, maxUpload))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("decode entry: %w", err))
		return
	}

	form := make(map[string]string, len(body))
	for k, v := range body {
		if v == nil {
			continue
		}
		form[k] = fmt.Sprint(v)
	}
	rec, err := stats.NewRecord(form[stats.CategoryField], form[stats.RowIDField], form)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.FetchTimeout)
	defer cancel()
	msg, err := s.store.Save(ctx, rec)
	if err != nil {
		s.fail(w, r, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !stats.IsCategory(vars["category"]) {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("%w: %q", stats.ErrUnknownCategory, vars["category"]))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.FetchTimeout)
	defer cancel()
	msg, err := s.store.Delete(ctx, vars["category"], vars["rowId"])
	if err != nil {
		s.fail(w, r, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (s *Server) phcListing(w http.ResponseWriter, r *http.Request) {
	district := strings.TrimSpace(r.URL.Query().Get("district"))
	if district == "" {
		s.fail(w, r, http.StatusBadRequest, errors.New("district is required"))
		return
	}
	d := s.PHC()
	resp := phcResponse{
		District: district,
		Heading:  d.Heading(district),
		Entries:  d.ForDistrict(district),
	}
	if len(resp.Entries) == 0 {
		resp.Notice = phc.NoDataNotice
	}
	writeJSON(w, http.StatusOK, resp)
}

// phcUpload accepts the listing as a raw CSV body or as the "file" part of
// a multipart form.
func (s *Server) phcUpload(w http.ResponseWriter, r *http.Request) {
	var src io.Reader = io.LimitReader(r.Body, maxUpload)
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxUpload); err != nil {
			s.fail(w, r, http.StatusBadRequest, err)
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			s.fail(w, r, http.StatusBadRequest, err)
			return
		}
		defer f.Close()
		src = f
	}

	d, err := phc.Load(src)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	s.SetPHC(d)
	s.log.Info("phc_loaded", "entries", d.Len())
	writeJSON(w, http.StatusOK, map[string]any{"message": "PHC Data Loaded successfully.", "entries": d.Len()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, store.ErrFetchFailure):
		return http.StatusBadGateway
	case errors.Is(err, stats.ErrUnknownCategory),
		errors.Is(err, stats.ErrUnknownDistrict),
		errors.Is(err, stats.ErrMissingDistrict),
		errors.Is(err, stats.ErrUnknownField),
		errors.Is(err, stats.ErrInvalidValue):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("request_failed", "path", r.URL.Path, "status", status, "err", err)
	} else {
		s.log.Debug("request_rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
