// Package config reads service settings from the environment, optionally
// seeded from .env files.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvFiles are the .env locations tried by LoadEnvFiles, in order.
var EnvFiles = []string{".env", "data/env/.env"}

// LoadEnvFiles loads every existing file of EnvFiles. Variables already set
// in the environment win over file values. It returns the files loaded.
func LoadEnvFiles() ([]string, error) {
	var loaded []string
	for _, path := range EnvFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("load %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}

// Store backends.
const (
	StoreSheets   = "sheets"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Cache backends.
const (
	CacheRedis  = "redis"
	CacheMemory = "memory"
	CacheNone   = "none"
)

// Config holds every setting of the district atlas service.
type Config struct {
	Addr string

	RegionDataset string // ESRI JSON boundaries in the projected grid
	RegionCache   string // FlatGeobuf copy of the converted region
	RegionName    string

	StoreBackend string
	ScriptURL    string
	FetchTimeout time.Duration

	CacheBackend string
	CacheTTL     time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresDSN string

	PlaceholderMode string
	PHCFile         string
	UIDir           string
}

// Load reads Config from the environment.
func Load() (Config, error) {
	cfg := Config{
		Addr:            String("ADDR", ":8080"),
		RegionDataset:   String("REGION_DATASET", "data/TS_DISTRICTS_TOTAL.json"),
		RegionCache:     String("REGION_CACHE", "data/districts.fgb"),
		RegionName:      String("REGION_NAME", "Telangana"),
		StoreBackend:    strings.ToLower(String("STORE_BACKEND", StoreSheets)),
		ScriptURL:       String("SCRIPT_URL", ""),
		FetchTimeout:    Duration("FETCH_TIMEOUT", 15*time.Second),
		CacheBackend:    strings.ToLower(String("CACHE_BACKEND", CacheMemory)),
		CacheTTL:        Duration("CACHE_TTL", 5*time.Minute),
		RedisAddr:       String("REDIS_HOST", "127.0.0.1") + ":" + String("REDIS_PORT", "6379"),
		RedisPassword:   String("REDIS_PASS", ""),
		RedisDB:         Int("REDIS_DB", 0),
		PostgresDSN:     String("PG_DSN", ""),
		PlaceholderMode: strings.ToLower(String("PLACEHOLDER_MODE", "absent")),
		PHCFile:         String("PHC_FILE", ""),
		UIDir:           String("UI_DIR", ""),
	}
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = PostgresDSNFromEnv()
	}
	return cfg, cfg.Validate()
}

// Validate checks backend names and the settings each backend requires.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case StoreSheets:
		if c.ScriptURL == "" {
			return fmt.Errorf("config: SCRIPT_URL is required for the %s store", StoreSheets)
		}
		if _, err := url.ParseRequestURI(c.ScriptURL); err != nil {
			return fmt.Errorf("config: SCRIPT_URL: %w", err)
		}
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.CacheBackend {
	case CacheRedis, CacheMemory, CacheNone:
	default:
		return fmt.Errorf("config: unknown CACHE_BACKEND %q", c.CacheBackend)
	}

	switch c.PlaceholderMode {
	case "absent", "falsy":
	default:
		return fmt.Errorf("config: unknown PLACEHOLDER_MODE %q", c.PlaceholderMode)
	}

	if c.FetchTimeout <= 0 {
		return fmt.Errorf("config: FETCH_TIMEOUT must be positive")
	}
	return nil
}

// PostgresDSNFromEnv builds a connection URL from the PG_* variables.
func PostgresDSNFromEnv() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   String("PG_HOST", "localhost") + ":" + String("PG_PORT", "5432"),
		Path:   "/" + String("PG_DB", "districtmap"),
	}
	user := String("PG_USER", "postgres")
	if pass := os.Getenv("PG_PASSWORD"); pass != "" {
		u.User = url.UserPassword(user, pass)
	} else {
		u.User = url.User(user)
	}
	q := url.Values{}
	q.Set("sslmode", String("PG_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

// String returns the variable key, or def when unset or empty.
func String(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Int returns the variable key parsed as an integer, or def.
func Int(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Bool returns the variable key parsed as a boolean, or def.
func Bool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// Duration returns the variable key parsed by time.ParseDuration. A bare
// integer is read as seconds.
func Duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
