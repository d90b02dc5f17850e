// Package app wires configuration into the region, store and cache used by
// the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/paulmach/orb/geojson"

	districtmap "github.com/tingold/district-atlas"
	"github.com/tingold/district-atlas/internal/config"
	"github.com/tingold/district-atlas/pgstore"
	"github.com/tingold/district-atlas/rowcache"
	"github.com/tingold/district-atlas/sheets"
	"github.com/tingold/district-atlas/store"
)

// LoadRegion reads the region from the FlatGeobuf cache when it is present
// and not older than the ESRI dataset. Otherwise it converts the dataset
// and writes the cache for the next start. A failing cache write is
// logged, not returned.
func LoadRegion(cfg config.Config, log *slog.Logger) (*districtmap.Region, error) {
	if cfg.RegionCache != "" && cacheFresh(cfg.RegionCache, cfg.RegionDataset, log) {
		fc, err := readCache(cfg.RegionCache)
		switch {
		case err == nil:
			log.Info("region_loaded", "source", cfg.RegionCache, "features", len(fc.Features))
			return districtmap.NewRegion(fc)
		case errors.Is(err, fs.ErrNotExist):
		default:
			log.Warn("region_cache_unreadable", "path", cfg.RegionCache, "err", err)
		}
	}

	ds, err := districtmap.OpenEsriDataset(cfg.RegionDataset)
	if err != nil {
		return nil, err
	}
	fc, skipped, err := districtmap.LoadRegion(ds, districtmap.TelanganaLCC(), log)
	if err != nil {
		return nil, err
	}
	region, err := districtmap.NewRegion(fc)
	if err != nil {
		return nil, err
	}
	log.Info("region_loaded", "source", cfg.RegionDataset, "features", region.Len(), "skipped", len(skipped))

	if cfg.RegionCache != "" {
		opts := districtmap.DefaultOptions()
		opts.Name = cfg.RegionName
		if err := districtmap.WriteRegionFile(cfg.RegionCache, fc, opts); err != nil {
			log.Warn("region_cache_write_failed", "path", cfg.RegionCache, "err", err)
		}
	}
	return region, nil
}

// cacheFresh reports whether the cache may be used in place of the
// dataset. A missing dataset leaves an existing cache usable.
func cacheFresh(cachePath, datasetPath string, log *slog.Logger) bool {
	c, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	d, err := os.Stat(datasetPath)
	if err != nil {
		return true
	}
	if d.ModTime().After(c.ModTime()) {
		log.Info("region_cache_stale", "path", cachePath, "dataset", datasetPath)
		return false
	}
	return true
}

func readCache(path string) (*geojson.FeatureCollection, error) {
	r, err := districtmap.OpenRegionCache(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadAll()
}

// OpenStore builds the configured store backend behind metrics and the
// configured cache. The returned func releases its connections.
func OpenStore(ctx context.Context, cfg config.Config, log *slog.Logger) (store.Store, func(), error) {
	var (
		base    store.Store
		closers []func()
	)
	switch cfg.StoreBackend {
	case config.StoreSheets:
		base = sheets.New(cfg.ScriptURL, cfg.FetchTimeout)
	case config.StorePostgres:
		pg, err := pgstore.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { pg.Close() })
		base = pg
	case config.StoreMemory:
		base = store.NewMemory(nil)
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	st := store.Store(store.Instrument(cfg.StoreBackend, base))

	switch cfg.CacheBackend {
	case config.CacheRedis:
		rdb := rowcache.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if rdb == nil {
			log.Warn("redis_not_configured")
			break
		}
		closers = append(closers, func() { rdb.Close() })
		st = rowcache.New(st, rowcache.NewRedis(rdb, cfg.CacheTTL), log)
	case config.CacheMemory:
		st = rowcache.New(st, rowcache.NewMemory(cfg.CacheTTL), log)
	}

	log.Info("store_ready", "backend", cfg.StoreBackend, "cache", cfg.CacheBackend)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return st, closeAll, nil
}
