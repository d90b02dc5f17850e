package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tingold/district-atlas/internal/api"
	"github.com/tingold/district-atlas/internal/app"
	"github.com/tingold/district-atlas/internal/config"
	"github.com/tingold/district-atlas/internal/logger"
	"github.com/tingold/district-atlas/phc"
	"github.com/tingold/district-atlas/stats"
)

func main() {
	loaded, envErr := config.LoadEnvFiles()
	log := logger.Setup()
	if envErr != nil {
		log.Error("env_load_failed", "err", envErr)
		os.Exit(1)
	}
	if len(loaded) > 0 {
		log.Debug("env_loaded", "files", loaded)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("config_invalid", "err", err)
		os.Exit(1)
	}

	region, err := app.LoadRegion(cfg, log)
	if err != nil {
		log.Error("region_load_failed", "path", cfg.RegionDataset, "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st, closeStore, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error("store_open_failed", "backend", cfg.StoreBackend, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	var origins []string
	if v := config.String("CORS_ORIGINS", ""); v != "" {
		origins = strings.Split(v, ",")
	}
	srv, err := api.New(region, st, api.Options{
		RegionName:      cfg.RegionName,
		FetchTimeout:    cfg.FetchTimeout,
		PlaceholderMode: stats.ParsePlaceholderMode(cfg.PlaceholderMode),
		AllowedOrigins:  origins,
		UIDir:           cfg.UIDir,
		Logger:          log,
	})
	if err != nil {
		log.Error("server_init_failed", "err", err)
		os.Exit(1)
	}

	if cfg.PHCFile != "" {
		d, err := phc.Open(cfg.PHCFile)
		if err != nil {
			log.Warn("phc_load_failed", "path", cfg.PHCFile, "err", err)
		} else {
			srv.SetPHC(d)
			log.Info("phc_loaded", "path", cfg.PHCFile, "entries", d.Len())
		}
	}

	hs := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.FetchTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server_start", "addr", cfg.Addr, "store", cfg.StoreBackend, "cache", cfg.CacheBackend)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
		log.Info("shutdown_signal")
	case err := <-serverErrors:
		log.Error("server_error", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown_failed", "err", err)
	}
	log.Info("server_stopped")
}
