package main

import (
	"context"
	"flag"
	"os"

	"github.com/tingold/district-atlas/internal/app"
	"github.com/tingold/district-atlas/internal/config"
	"github.com/tingold/district-atlas/internal/logger"
	"github.com/tingold/district-atlas/phc"
	"github.com/tingold/district-atlas/session"
	"github.com/tingold/district-atlas/stats"
)

func main() {
	offline := flag.Bool("offline", false, "keep statistics in memory instead of the configured store")
	noRegion := flag.Bool("no-region", false, "skip loading district boundaries")
	flag.Parse()

	if _, err := config.LoadEnvFiles(); err != nil {
		logger.L().Error("env_load_failed", "err", err)
		os.Exit(1)
	}
	if os.Getenv("LOG_LEVEL") == "" {
		os.Setenv("LOG_LEVEL", "warn")
	}
	log := logger.Setup()

	if *offline {
		os.Setenv("STORE_BACKEND", config.StoreMemory)
		os.Setenv("CACHE_BACKEND", config.CacheNone)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Error("config_invalid", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st, closeStore, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error("store_open_failed", "backend", cfg.StoreBackend, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	ctl := session.New(st, session.Options{
		RegionName:      cfg.RegionName,
		FetchTimeout:    cfg.FetchTimeout,
		PlaceholderMode: stats.ParsePlaceholderMode(cfg.PlaceholderMode),
		Logger:          log,
	})
	if !*noRegion {
		region, err := app.LoadRegion(cfg, log)
		if err != nil {
			log.Warn("region_load_failed", "err", err)
		} else {
			ctl.SetRegion(region)
		}
	}

	r := newREPL(ctl, os.Stdin, os.Stdout)
	if cfg.PHCFile != "" {
		if d, err := phc.Open(cfg.PHCFile); err == nil {
			r.phc = d
		} else {
			log.Warn("phc_load_failed", "path", cfg.PHCFile, "err", err)
		}
	}
	r.run(ctx)
}
