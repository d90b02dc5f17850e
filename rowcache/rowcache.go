// Package rowcache caches per-category statistic rows in front of a
// store.Store. Saves and deletes invalidate the category. A failing cache
// never fails a call: the inner store answers instead.
package rowcache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tingold/district-atlas/internal/metrics"
	"github.com/tingold/district-atlas/stats"
	"github.com/tingold/district-atlas/store"
)

// KeyPrefix prefixes every cache key.
const KeyPrefix = "districtmap:rows:"

// Backend holds cached row lists by key.
type Backend interface {
	Name() string
	Get(ctx context.Context, key string) ([]stats.Row, bool, error)
	Set(ctx context.Context, key string, rows []stats.Row) error
	Del(ctx context.Context, key string) error
}

// Store is a caching store.Store.
type Store struct {
	next    store.Store
	backend Backend
	log     *slog.Logger

	// mu orders invalidations against the Set that ends a read; a read
	// whose key was invalidated while it fetched does not fill the cache.
	mu       sync.Mutex
	versions map[string]uint64
}

// New puts backend in front of next.
func New(next store.Store, backend Backend, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{next: next, backend: backend, log: log, versions: make(map[string]uint64)}
}

// Key returns the cache key of category.
func Key(category string) string {
	return KeyPrefix + category
}

func (s *Store) Read(ctx context.Context, category string) ([]stats.Row, error) {
	key := Key(category)
	rows, ok, err := s.backend.Get(ctx, key)
	switch {
	case err != nil:
		s.log.Warn("cache_get_failed", "cache", s.backend.Name(), "key", key, "err", err)
	case ok:
		metrics.CacheHitsTotal.WithLabelValues(s.backend.Name()).Inc()
		return rows, nil
	}
	metrics.CacheMissesTotal.WithLabelValues(s.backend.Name()).Inc()

	s.mu.Lock()
	version := s.versions[key]
	s.mu.Unlock()

	rows, err = s.next.Read(ctx, category)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, key, version, rows)
	return rows, nil
}

func (s *Store) fill(ctx context.Context, key string, version uint64, rows []stats.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.versions[key] != version {
		s.log.Debug("cache_fill_skipped", "cache", s.backend.Name(), "key", key)
		return
	}
	if err := s.backend.Set(ctx, key, rows); err != nil {
		s.log.Warn("cache_set_failed", "cache", s.backend.Name(), "key", key, "err", err)
	}
}

func (s *Store) Save(ctx context.Context, rec stats.Record) (string, error) {
	msg, err := s.next.Save(ctx, rec)
	s.invalidate(ctx, rec.Category)
	return msg, err
}

func (s *Store) Delete(ctx context.Context, category, rowID string) (string, error) {
	msg, err := s.next.Delete(ctx, category, rowID)
	s.invalidate(ctx, category)
	return msg, err
}

// invalidate runs after failed writes too: the remote state is unknown.
func (s *Store) invalidate(ctx context.Context, category string) {
	key := Key(category)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[key]++
	if err := s.backend.Del(ctx, key); err != nil {
		s.log.Warn("cache_del_failed", "cache", s.backend.Name(), "key", key, "err", err)
	}
}
