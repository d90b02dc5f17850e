// Command region-export converts the ESRI district dataset to GeoJSON and
// FlatGeobuf.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	districtmap "github.com/tingold/district-atlas"
	"github.com/tingold/district-atlas/internal/logger"
)

func main() {
	in := flag.String("in", "data/TS_DISTRICTS_TOTAL.json", "ESRI JSON dataset in the projected grid")
	outGeoJSON := flag.String("geojson", "", "GeoJSON output path")
	outFGB := flag.String("fgb", "", "FlatGeobuf output path")
	name := flag.String("name", "Telangana", "layer name")
	strict := flag.Bool("strict", false, "fail on the first bad feature instead of skipping it")
	noIndex := flag.Bool("no-index", false, "omit the spatial index from the FlatGeobuf output")
	flag.Parse()

	log := logger.Setup()
	if *outGeoJSON == "" && *outFGB == "" {
		fmt.Fprintln(os.Stderr, "region-export: at least one of -geojson or -fgb is required")
		flag.Usage()
		os.Exit(2)
	}

	ds, err := districtmap.OpenEsriDataset(*in)
	if err != nil {
		log.Error("dataset_open_failed", "path", *in, "err", err)
		os.Exit(1)
	}

	spec := districtmap.TelanganaLCC()
	var skipped []*districtmap.FeatureError
	fc, err := districtmap.ConvertRegionDataset(ds, spec)
	if err != nil && !*strict {
		fc, skipped, err = districtmap.LoadRegion(ds, spec, log)
	}
	if err != nil {
		log.Error("convert_failed", "err", err)
		os.Exit(1)
	}

	if *outGeoJSON != "" {
		data, err := json.Marshal(fc)
		if err != nil {
			log.Error("geojson_encode_failed", "err", err)
			os.Exit(1)
		}
		if err := writeFile(*outGeoJSON, data); err != nil {
			log.Error("geojson_write_failed", "path", *outGeoJSON, "err", err)
			os.Exit(1)
		}
	}

	if *outFGB != "" {
		opts := districtmap.DefaultOptions()
		opts.Name = *name
		opts.Description = "District boundaries converted from " + spec.Proj4()
		opts.IncludeIndex = !*noIndex
		if err := districtmap.WriteRegionFile(*outFGB, fc, opts); err != nil {
			log.Error("fgb_write_failed", "path", *outFGB, "err", err)
			os.Exit(1)
		}
	}

	log.Info("region_exported",
		"features", len(fc.Features),
		"skipped", len(skipped),
		"geojson", *outGeoJSON,
		"fgb", *outFGB,
	)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
