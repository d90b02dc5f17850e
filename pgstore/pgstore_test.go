package pgstore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/tingold/district-atlas/stats"
	"github.com/tingold/district-atlas/store"
)

func TestToRowOrder(t *testing.T) {
	row, err := toRow(statRow{
		RowID:    "abc",
		District: "Medak",
		Fields:   []byte(`{"SubCenters":"3","PHC":"12","AreaHospitals":"1"}`),
	})
	if err != nil {
		t.Fatalf("toRow failed: %v", err)
	}
	want := []string{"District", "SubCenters", "PHC", "AreaHospitals", "rowId"}
	got := row.Names()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
			break
		}
	}
	if row.RowID() != "abc" {
		t.Errorf("expected rowId abc, got %q", row.RowID())
	}
}

func TestToRowBadJSON(t *testing.T) {
	if _, err := toRow(statRow{RowID: "x", Fields: []byte(`[1,2]`)}); err == nil {
		t.Error("expected error for non-object fields")
	}
}

// TestPostgresRoundTrip needs a disposable database in TEST_POSTGRES_DSN.
func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	const category = "Literacy Rate"
	if _, err := s.db.ExecContext(ctx, `DELETE FROM district_statistics WHERE category = $1`, category); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	rec, err := stats.NewRecord(category, "", map[string]string{"District": "Nalgonda", "TotalLit": "64.2"})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	if _, err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rows, err := s.Read(ctx, category)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(rows) != 1 || rows[0].District() != "Nalgonda" {
		t.Fatalf("expected one Nalgonda row, got %d", len(rows))
	}
	if v, _ := rows[0].Get("TotalLit"); v != "64.2" {
		t.Errorf("expected TotalLit 64.2, got %v", v)
	}

	id := rows[0].RowID()
	if _, err := s.Delete(ctx, category, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Delete(ctx, category, id); !errors.Is(err, store.ErrFetchFailure) {
		t.Errorf("expected ErrFetchFailure on second delete, got %v", err)
	}
}
