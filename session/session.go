// Package session holds the dashboard state of one user: the region, the
// statistic rows of the selected category and the active district. All
// state lives behind a Controller; there are no package globals.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	districtmap "github.com/tingold/district-atlas"
	"github.com/tingold/district-atlas/stats"
	"github.com/tingold/district-atlas/store"
)

var (
	ErrStaleResponse   = errors.New("session: stale response discarded")
	ErrNoCategory      = errors.New("session: no category loaded")
	ErrUnknownSubField = errors.New("session: unknown sub-field")
	ErrNoRegion        = errors.New("session: no region loaded")
	ErrNoDistrict      = errors.New("session: no district at location")
)

// DefaultFetchTimeout bounds a store call when Options leaves it unset.
const DefaultFetchTimeout = 15 * time.Second

// State is the load state of the current category.
type State int

const (
	Unloaded State = iota
	Loading
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Selection is the chosen category and sub-field.
type Selection struct {
	Category string
	SubField string
}

// Options configures a Controller.
type Options struct {
	RegionName      string
	FetchTimeout    time.Duration
	PlaceholderMode stats.PlaceholderMode
	Logger          *slog.Logger
}

// Controller serialises every read and write of the session state.
type Controller struct {
	store store.Store
	opts  Options
	log   *slog.Logger

	mu       sync.Mutex
	state    State
	gen      uint64
	lastErr  error
	region   *districtmap.Region
	rows     *stats.Collection
	sel      Selection
	district string
}

// New returns an Unloaded controller reading from s.
func New(s store.Store, opts Options) *Controller {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Controller{store: s, opts: opts, log: opts.Logger, sel: Selection{SubField: stats.AllFields}}
}

// SetRegion replaces the district boundaries.
func (c *Controller) SetRegion(r *districtmap.Region) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.region = r
}

// Region returns the district boundaries, or nil before SetRegion.
func (c *Controller) Region() *districtmap.Region {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.region
}

// State returns the load state and, when Failed, the failure.
func (c *Controller) State() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.lastErr
}

// Selection returns the current category and sub-field.
func (c *Controller) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel
}

// ActiveDistrict returns the district shown, or "" for the whole region.
func (c *Controller) ActiveDistrict() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.district
}

// Rows returns the loaded collection, or nil before the first load.
func (c *Controller) Rows() *stats.Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

// LoadCategory fetches the rows of category and replaces the previous
// collection. The sub-field resets to "all" and the active district is
// cleared. When a later load starts before this one returns, the result is
// dropped and ErrStaleResponse is returned.
func (c *Controller) LoadCategory(ctx context.Context, category string) (*stats.Table, error) {
	if !stats.IsCategory(category) {
		return nil, fmt.Errorf("%w: %q", stats.ErrUnknownCategory, category)
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.state = Loading
	c.lastErr = nil
	c.rows = nil
	c.sel = Selection{Category: category, SubField: stats.AllFields}
	c.district = ""
	c.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
	defer cancel()
	rows, err := c.store.Read(fetchCtx, category)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.log.Debug("rows_stale", "category", category, "generation", gen, "latest", c.gen)
		return nil, ErrStaleResponse
	}
	if err != nil {
		c.state = Failed
		c.lastErr = err
		c.log.Error("rows_fetch_error", "category", category, "err", err)
		return nil, err
	}

	c.rows = stats.NewCollection(category, rows)
	c.state = Loaded
	if bad := c.rows.Mismatched(); len(bad) > 0 {
		c.log.Warn("rows_schema_mismatch", "category", category, "rows", bad)
	}
	c.log.Info("rows_loaded", "category", category, "rows", len(c.rows.Rows))
	return c.regionTable(), nil
}

// SubFields lists the sub-field filters of the loaded category.
func (c *Controller) SubFields() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loaded(); err != nil {
		return nil, err
	}
	return append([]string{}, c.rows.Schema.Fields...), nil
}

// SelectSubField narrows the view to one field, or every field for "all",
// and returns the table of the current view.
func (c *Controller) SelectSubField(name string) (*stats.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loaded(); err != nil {
		return nil, err
	}
	if name != stats.AllFields && !c.rows.Schema.Has(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubField, name)
	}
	c.sel.SubField = name
	if c.district != "" {
		return c.districtTable(c.district), nil
	}
	return c.regionTable(), nil
}

// Table returns the table of the current view.
func (c *Controller) Table() (*stats.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loaded(); err != nil {
		return nil, err
	}
	if c.district != "" {
		return c.districtTable(c.district), nil
	}
	return c.regionTable(), nil
}

// ShowDistrict makes name the active district and returns its rows. A
// district without rows yields a table carrying the NoMatch notice.
func (c *Controller) ShowDistrict(name string) (*stats.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loaded(); err != nil {
		return nil, err
	}
	c.district = name
	return c.districtTable(name), nil
}

// ClickFeature shows the district of a clicked region polygon.
func (c *Controller) ClickFeature(f *geojson.Feature) (*stats.Table, error) {
	name := districtmap.DistrictName(f)
	if name == "" {
		return nil, ErrNoDistrict
	}
	return c.ShowDistrict(name)
}

// ClickPoint shows the district containing pt.
func (c *Controller) ClickPoint(pt orb.Point) (*stats.Table, error) {
	c.mu.Lock()
	region := c.region
	c.mu.Unlock()
	if region == nil {
		return nil, ErrNoRegion
	}
	f, ok := region.Locate(pt)
	if !ok {
		return nil, ErrNoDistrict
	}
	return c.ClickFeature(f)
}

// Popup summarises the active district, or name when given.
func (c *Controller) Popup(name string) (*stats.Popup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loaded(); err != nil {
		return nil, err
	}
	if name == "" {
		name = c.district
	}
	if name == "" {
		return nil, ErrNoDistrict
	}
	return stats.DistrictPopup(c.rows.Rows, name, c.sel.Category, c.sel.SubField), nil
}

// Reset clears the active district and returns the whole-region table.
func (c *Controller) Reset() (*stats.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.district = ""
	if err := c.loaded(); err != nil {
		return nil, err
	}
	return c.regionTable(), nil
}

// Save writes rec and reloads its category when it is the one shown.
func (c *Controller) Save(ctx context.Context, rec stats.Record) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
	defer cancel()
	msg, err := c.store.Save(fetchCtx, rec)
	if err != nil {
		c.log.Error("row_save_error", "category", rec.Category, "err", err)
		return "", err
	}
	c.log.Info("row_saved", "category", rec.Category, "district", rec.District)
	return msg, c.reloadIfShown(ctx, rec.Category)
}

// Delete removes a row and reloads its category when it is the one shown.
func (c *Controller) Delete(ctx context.Context, category, rowID string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
	defer cancel()
	msg, err := c.store.Delete(fetchCtx, category, rowID)
	if err != nil {
		c.log.Error("row_delete_error", "category", category, "row_id", rowID, "err", err)
		return "", err
	}
	c.log.Info("row_deleted", "category", category, "row_id", rowID)
	return msg, c.reloadIfShown(ctx, category)
}

func (c *Controller) reloadIfShown(ctx context.Context, category string) error {
	if c.Selection().Category != category {
		return nil
	}
	_, err := c.LoadCategory(ctx, category)
	if errors.Is(err, ErrStaleResponse) {
		return nil
	}
	return err
}

// loaded requires c.mu.
func (c *Controller) loaded() error {
	switch c.state {
	case Loaded:
		return nil
	case Failed:
		return fmt.Errorf("%w: last load failed: %v", ErrNoCategory, c.lastErr)
	}
	return ErrNoCategory
}

// regionTable requires c.mu.
func (c *Controller) regionTable() *stats.Table {
	return stats.RegionTable(c.opts.RegionName, c.sel.Category, c.rows.Rows, c.sel.SubField, c.opts.PlaceholderMode)
}

// districtTable requires c.mu.
func (c *Controller) districtTable(name string) *stats.Table {
	return stats.DistrictTable(name, c.sel.Category, c.rows.Rows, c.sel.SubField, c.opts.PlaceholderMode)
}
