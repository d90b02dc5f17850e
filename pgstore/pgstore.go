// Package pgstore keeps statistic rows in PostgreSQL. Each row's form
// values live in a json column, which preserves key order.
package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/tingold/district-atlas/stats"
	"github.com/tingold/district-atlas/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS district_statistics (
	row_id     TEXT PRIMARY KEY,
	category   TEXT NOT NULL,
	district   TEXT NOT NULL,
	fields     JSON NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS district_statistics_category_idx
	ON district_statistics (category, created_at);`

type statRow struct {
	RowID     string    `db:"row_id"`
	District  string    `db:"district"`
	Fields    []byte    `db:"fields"`
	CreatedAt time.Time `db:"created_at"`
}

// Store is a store.Store over a PostgreSQL table.
type Store struct {
	db *sqlx.DB
}

// Open connects to dsn and makes sure the table exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: connect: %w", err)
	}
	s := New(db)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the statistics table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("pgstore: create schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Read(ctx context.Context, category string) ([]stats.Row, error) {
	const query = `
		SELECT row_id, district, fields, created_at
		FROM district_statistics
		WHERE category = $1
		ORDER BY created_at, row_id`

	var recs []statRow
	if err := s.db.SelectContext(ctx, &recs, query, category); err != nil {
		return nil, store.FetchError("read", err)
	}

	rows := make([]stats.Row, 0, len(recs))
	for _, rec := range recs {
		row, err := toRow(rec)
		if err != nil {
			return nil, store.FetchError("read", fmt.Errorf("row %s: %w", rec.RowID, err))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Store) Save(ctx context.Context, rec stats.Record) (string, error) {
	fields, err := json.Marshal(stats.NewRow(rec.Values...))
	if err != nil {
		return "", store.FetchError("save", err)
	}

	if rec.RowID == "" {
		const insert = `
			INSERT INTO district_statistics (row_id, category, district, fields)
			VALUES ($1, $2, $3, $4)`
		if _, err := s.db.ExecContext(ctx, insert, uuid.NewString(), rec.Category, rec.District, string(fields)); err != nil {
			return "", store.FetchError("save", err)
		}
		return "Data Saved Successfully", nil
	}

	const update = `
		UPDATE district_statistics
		SET district = $3, fields = $4, updated_at = now()
		WHERE row_id = $1 AND category = $2`
	res, err := s.db.ExecContext(ctx, update, rec.RowID, rec.Category, rec.District, string(fields))
	if err != nil {
		return "", store.FetchError("save", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", store.FetchError("save", fmt.Errorf("row %s not found in %s", rec.RowID, rec.Category))
	}
	return "Data Updated Successfully", nil
}

func (s *Store) Delete(ctx context.Context, category, rowID string) (string, error) {
	const query = `DELETE FROM district_statistics WHERE row_id = $1 AND category = $2`
	res, err := s.db.ExecContext(ctx, query, rowID, category)
	if err != nil {
		return "", store.FetchError("delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", store.FetchError("delete", fmt.Errorf("row %s not found in %s", rowID, category))
	}
	return "Deleted", nil
}

// toRow rebuilds the stored row: District, the form fields, then rowId.
func toRow(rec statRow) (stats.Row, error) {
	var fields stats.Row
	if err := json.Unmarshal(rec.Fields, &fields); err != nil {
		return stats.Row{}, err
	}
	row := stats.NewRow(stats.Field{Name: stats.DistrictField, Value: rec.District})
	for _, f := range fields.Fields() {
		row.Set(f.Name, f.Value)
	}
	row.Set(stats.RowIDField, rec.RowID)
	return row, nil
}
