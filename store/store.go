// Package store defines the contract of the statistic store: per-category
// reads, and saves and deletes that answer with a human-readable message.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/tingold/district-atlas/stats"
)

// ErrFetchFailure wraps every network, service or database failure of a
// store call.
var ErrFetchFailure = errors.New("store: fetch failed")

// Store reads and writes statistic rows.
type Store interface {
	// Read returns every row of category in store order.
	Read(ctx context.Context, category string) ([]stats.Row, error)
	// Save inserts rec, or updates it when rec.RowID is set.
	Save(ctx context.Context, rec stats.Record) (string, error)
	// Delete removes the row rowID of category.
	Delete(ctx context.Context, category, rowID string) (string, error)
}

// FetchError builds an ErrFetchFailure for op with the underlying cause.
func FetchError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrFetchFailure, op, err)
}
