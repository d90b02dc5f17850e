package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/tingold/district-atlas/stats"
)

// Memory is an in-process Store. It backs tests and the CLI's offline mode.
type Memory struct {
	mu     sync.Mutex
	rows   map[string][]stats.Row
	nextID int
}

// NewMemory returns a store seeded with rows per category.
func NewMemory(seed map[string][]stats.Row) *Memory {
	m := &Memory{rows: make(map[string][]stats.Row), nextID: 1}
	for cat, rows := range seed {
		m.rows[cat] = append([]stats.Row(nil), rows...)
		m.nextID += len(rows)
	}
	return m
}

func (m *Memory) Read(ctx context.Context, category string) ([]stats.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, FetchError("read", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stats.Row{}, m.rows[category]...), nil
}

func (m *Memory) Save(ctx context.Context, rec stats.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", FetchError("save", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.RowID != "" {
		for i, r := range m.rows[rec.Category] {
			if r.RowID() == rec.RowID {
				m.rows[rec.Category][i] = rec.Row()
				return "Data Updated Successfully", nil
			}
		}
	}

	if rec.RowID == "" {
		rec.RowID = strconv.Itoa(m.nextID)
		m.nextID++
	}
	m.rows[rec.Category] = append(m.rows[rec.Category], rec.Row())
	return "Data Saved Successfully", nil
}

func (m *Memory) Delete(ctx context.Context, category, rowID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", FetchError("delete", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.rows[category]
	for i, r := range rows {
		if r.RowID() == rowID {
			m.rows[category] = append(rows[:i:i], rows[i+1:]...)
			return "Deleted", nil
		}
	}
	return "", fmt.Errorf("%w: delete: row %s not found in %s", ErrFetchFailure, rowID, category)
}
