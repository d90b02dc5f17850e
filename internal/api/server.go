// Package api serves the district atlas over HTTP: region boundaries as
// GeoJSON and FlatGeobuf, statistic tables and popups, entry writes and the
// PHC listing.
package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	districtmap "github.com/tingold/district-atlas"
	"github.com/tingold/district-atlas/internal/logger"
	"github.com/tingold/district-atlas/internal/metrics"
	"github.com/tingold/district-atlas/phc"
	"github.com/tingold/district-atlas/stats"
	"github.com/tingold/district-atlas/store"
)

// Options configures a Server.
type Options struct {
	RegionName      string
	FetchTimeout    time.Duration
	PlaceholderMode stats.PlaceholderMode
	AllowedOrigins  []string
	UIDir           string
	Logger          *slog.Logger
}

// Server holds the loaded region and the statistic store.
type Server struct {
	region    *districtmap.Region
	regionFGB []byte
	store     store.Store
	phc       atomic.Pointer[phc.Directory]
	opts      Options
	log       *slog.Logger
}

// New prepares a server. The region is encoded to FlatGeobuf once here.
func New(region *districtmap.Region, st store.Store, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 15 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	fgbOpts := districtmap.DefaultOptions()
	fgbOpts.Name = opts.RegionName
	var buf bytes.Buffer
	if err := districtmap.WriteRegion(&buf, region.FeatureCollection(), fgbOpts); err != nil {
		return nil, err
	}

	s := &Server{
		region:    region,
		regionFGB: buf.Bytes(),
		store:     st,
		opts:      opts,
		log:       opts.Logger,
	}
	s.phc.Store(&phc.Directory{})
	return s, nil
}

// SetPHC replaces the PHC listing.
func (s *Server) SetPHC(d *phc.Directory) {
	s.phc.Store(d)
}

// PHC returns the current PHC listing.
func (s *Server) PHC() *phc.Directory {
	return s.phc.Load()
}

// Router registers every route.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(instrument)

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/region.geojson", s.regionGeoJSON).Methods(http.MethodGet)
	api.HandleFunc("/region.fgb", s.regionFlatGeobuf).Methods(http.MethodGet)
	api.HandleFunc("/region/locate", s.locate).Methods(http.MethodGet)
	api.HandleFunc("/districts", s.districts).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.categories).Methods(http.MethodGet)
	api.HandleFunc("/categories/{category}/form", s.form).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.table).Methods(http.MethodGet)
	api.HandleFunc("/stats/popup", s.popup).Methods(http.MethodGet)
	api.HandleFunc("/entries", s.listEntries).Methods(http.MethodGet)
	api.HandleFunc("/entries", s.saveEntry).Methods(http.MethodPost)
	api.HandleFunc("/entries/{category}/{rowId}", s.deleteEntry).Methods(http.MethodDelete)
	api.HandleFunc("/phc", s.phcListing).Methods(http.MethodGet)
	api.HandleFunc("/phc", s.phcUpload).Methods(http.MethodPost)

	if s.opts.UIDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.opts.UIDir)))
	}
	return r
}

// Handler returns the router behind CORS and access logging.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Origin"},
		MaxAge:         86400,
	})
	return logger.AccessMiddleware(s.log)(c.Handler(s.Router()))
}

type codeWriter struct {
	http.ResponseWriter
	code int
}

func (w *codeWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cw := &codeWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(cw, r)
		route := "unknown"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(cw.code)).Inc()
	})
}
