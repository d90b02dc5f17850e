package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tingold/district-atlas/stats"
	"github.com/tingold/district-atlas/store"
)

func TestReadKeepsKeyOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.URL.Query().Get("action"); got != "read" {
			t.Errorf("expected action=read, got %q", got)
		}
		if got := r.URL.Query().Get("category"); got != "Hospitals" {
			t.Errorf("expected category=Hospitals, got %q", got)
		}
		io.WriteString(w, `[{"District":"Hyderabad","Total Hospitals":12,"Beds":340,"rowId":"r1"},
			{"District":"Medak","Total Hospitals":4,"Beds":80,"rowId":"r2"}]`)
	}))
	defer srv.Close()

	rows, err := New(srv.URL, time.Second).Read(context.Background(), "Hospitals")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	want := []string{"District", "Total Hospitals", "Beds", "rowId"}
	got := rows[0].Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected names %v, got %v", want, got)
	}
	if rows[1].RowID() != "r2" {
		t.Errorf("expected rowId r2, got %q", rows[1].RowID())
	}
}

func TestReadEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	rows, err := New(srv.URL, time.Second).Read(context.Background(), "Schools")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestReadFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"script error", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"error":"sheet not found"}`)
		}},
		{"garbage", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `<html>login</html>`)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := New(srv.URL, time.Second).Read(context.Background(), "Hospitals")
			if !errors.Is(err, store.ErrFetchFailure) {
				t.Errorf("expected ErrFetchFailure, got %v", err)
			}
		})
	}
}

func TestReadTimeout(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	defer close(done)

	_, err := New(srv.URL, 50*time.Millisecond).Read(context.Background(), "Hospitals")
	if !errors.Is(err, store.ErrFetchFailure) {
		t.Errorf("expected ErrFetchFailure, got %v", err)
	}
}

func TestSave(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != postContentType {
			t.Errorf("expected content type %q, got %q", postContentType, ct)
		}
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		io.WriteString(w, `{"message":"Data Saved Successfully"}`)
	}))
	defer srv.Close()

	rec, err := stats.NewRecord("Health Infrastructure", "", map[string]string{
		"District": "hyderabad",
		"PHC":      "12",
	})
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	msg, err := New(srv.URL, time.Second).Save(context.Background(), rec)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if msg != "Data Saved Successfully" {
		t.Errorf("expected confirmation message, got %q", msg)
	}
	if !strings.HasPrefix(body, `{"action":"save","formData":{"category":"Health Infrastructure","rowId":"","District":"Hyderabad","SubCenters":"","PHC":"12"`) {
		t.Errorf("unexpected request body: %s", body)
	}
}

func TestDelete(t *testing.T) {
	var got deleteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		io.WriteString(w, `{"message":"Deleted"}`)
	}))
	defer srv.Close()

	msg, err := New(srv.URL, time.Second).Delete(context.Background(), "Schools", "r7")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if msg != "Deleted" {
		t.Errorf("expected Deleted, got %q", msg)
	}
	want := deleteRequest{Action: "delete", Category: "Schools", RowID: "r7"}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestDeleteScriptError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"error":"row not found"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Delete(context.Background(), "Schools", "missing")
	if !errors.Is(err, store.ErrFetchFailure) {
		t.Errorf("expected ErrFetchFailure, got %v", err)
	}
}
