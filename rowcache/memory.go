package rowcache

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tingold/district-atlas/stats"
)

// Memory is an in-process Backend.
type Memory struct {
	c *cache.Cache
}

// NewMemory returns a backend whose entries live for ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{c: cache.New(ttl, 2*ttl)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Get(_ context.Context, key string) ([]stats.Row, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	rows := v.([]stats.Row)
	return append([]stats.Row{}, rows...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, rows []stats.Row) error {
	m.c.SetDefault(key, append([]stats.Row{}, rows...))
	return nil
}

func (m *Memory) Del(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

// Flush drops every entry.
func (m *Memory) Flush() {
	m.c.Flush()
}
