package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	districtmap "github.com/tingold/district-atlas"
	"github.com/tingold/district-atlas/internal/config"
	"github.com/tingold/district-atlas/lcc"
	"github.com/tingold/district-atlas/rowcache"
	"github.com/tingold/district-atlas/stats"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeDataset(t *testing.T, path string) {
	t.Helper()
	writeDistrict(t, path, "Medak")
}

func writeDistrict(t *testing.T, path, district string) {
	t.Helper()
	proj := lcc.MustNew(districtmap.TelanganaLCC().Params)
	square := func(lon, lat float64) [][]float64 {
		var ring [][]float64
		for _, p := range [][2]float64{{lon, lat}, {lon + 0.2, lat}, {lon + 0.2, lat + 0.2}, {lon, lat + 0.2}, {lon, lat}} {
			x, y, err := proj.Forward(p[0], p[1])
			if err != nil {
				t.Fatalf("Forward failed: %v", err)
			}
			ring = append(ring, []float64{x, y})
		}
		return ring
	}
	ds := map[string]any{
		"features": []any{
			map[string]any{
				"attributes": map[string]any{"DISTRICT": district, "OBJECTID": 4},
				"geometry":   map[string]any{"rings": [][][]float64{square(78.2, 17.9)}},
			},
			map[string]any{
				"attributes": map[string]any{"DISTRICT": "Broken"},
				"geometry":   map[string]any{"rings": [][][]float64{{{1, 2}}}},
			},
		},
	}
	data, err := json.Marshal(ds)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func TestLoadRegionWritesCache(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		RegionDataset: filepath.Join(dir, "districts.json"),
		RegionCache:   filepath.Join(dir, "districts.fgb"),
		RegionName:    "Telangana",
	}
	writeDataset(t, cfg.RegionDataset)

	region, err := LoadRegion(cfg, quiet())
	if err != nil {
		t.Fatalf("LoadRegion failed: %v", err)
	}
	if region.Len() != 1 {
		t.Fatalf("expected the broken feature skipped, got %d features", region.Len())
	}
	if _, err := os.Stat(cfg.RegionCache); err != nil {
		t.Fatalf("expected cache file: %v", err)
	}

	// The second load must come from the cache.
	os.Remove(cfg.RegionDataset)
	region, err = LoadRegion(cfg, quiet())
	if err != nil {
		t.Fatalf("LoadRegion from cache failed: %v", err)
	}
	if _, ok := region.Feature("medak"); !ok {
		t.Error("expected Medak in cached region")
	}
}

func TestLoadRegionStaleCache(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		RegionDataset: filepath.Join(dir, "districts.json"),
		RegionCache:   filepath.Join(dir, "districts.fgb"),
	}
	writeDataset(t, cfg.RegionDataset)
	if _, err := LoadRegion(cfg, quiet()); err != nil {
		t.Fatalf("LoadRegion failed: %v", err)
	}

	writeDistrict(t, cfg.RegionDataset, "Siddipet")
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(cfg.RegionDataset, later, later); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	region, err := LoadRegion(cfg, quiet())
	if err != nil {
		t.Fatalf("LoadRegion failed: %v", err)
	}
	if _, ok := region.Feature("siddipet"); !ok {
		t.Error("expected the updated dataset to replace the stale cache")
	}
	if _, ok := region.Feature("medak"); ok {
		t.Error("expected Medak from the stale cache to be gone")
	}
}

func TestLoadRegionCacheKeepsNumbers(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		RegionDataset: filepath.Join(dir, "districts.json"),
		RegionCache:   filepath.Join(dir, "districts.fgb"),
	}
	writeDataset(t, cfg.RegionDataset)
	if _, err := LoadRegion(cfg, quiet()); err != nil {
		t.Fatalf("LoadRegion failed: %v", err)
	}

	region, err := LoadRegion(cfg, quiet())
	if err != nil {
		t.Fatalf("LoadRegion from cache failed: %v", err)
	}
	f, ok := region.Feature("medak")
	if !ok {
		t.Fatal("expected Medak in cached region")
	}
	if id := f.Properties["OBJECTID"]; id != json.Number("4") {
		t.Errorf("expected OBJECTID json.Number 4, got %#v", id)
	}
}

func TestLoadRegionMissingDataset(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{RegionDataset: filepath.Join(dir, "nope.json")}
	if _, err := LoadRegion(cfg, quiet()); err == nil {
		t.Error("expected error for missing dataset")
	}
}

func TestOpenStoreMemory(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		StoreBackend: config.StoreMemory,
		CacheBackend: config.CacheMemory,
		CacheTTL:     time.Minute,
		FetchTimeout: time.Second,
	}
	st, closeStore, err := OpenStore(ctx, cfg, quiet())
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer closeStore()
	if _, ok := st.(*rowcache.Store); !ok {
		t.Errorf("expected a cached store, got %T", st)
	}

	rec, err := stats.NewRecord("Transport", "", map[string]string{"District": "Medak", "Fleet": "3"})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	if _, err := st.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	rows, err := st.Read(ctx, "Transport")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(rows))
	}
}

func TestOpenStoreUnknown(t *testing.T) {
	_, _, err := OpenStore(context.Background(), config.Config{StoreBackend: "excel"}, quiet())
	if err == nil {
		t.Error("expected error for unknown backend")
	}
}
