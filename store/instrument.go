package store

import (
	"context"
	"time"

	"github.com/tingold/district-atlas/internal/metrics"
	"github.com/tingold/district-atlas/stats"
)

// Instrumented records request counts, failures and latency of a Store.
type Instrumented struct {
	backend string
	next    Store
}

// Instrument wraps s with metrics labelled by backend.
func Instrument(backend string, s Store) *Instrumented {
	return &Instrumented{backend: backend, next: s}
}

func (s *Instrumented) Read(ctx context.Context, category string) ([]stats.Row, error) {
	defer s.observe("read", time.Now())
	rows, err := s.next.Read(ctx, category)
	s.fail("read", err)
	return rows, err
}

func (s *Instrumented) Save(ctx context.Context, rec stats.Record) (string, error) {
	defer s.observe("save", time.Now())
	msg, err := s.next.Save(ctx, rec)
	s.fail("save", err)
	return msg, err
}

func (s *Instrumented) Delete(ctx context.Context, category, rowID string) (string, error) {
	defer s.observe("delete", time.Now())
	msg, err := s.next.Delete(ctx, category, rowID)
	s.fail("delete", err)
	return msg, err
}

func (s *Instrumented) observe(op string, start time.Time) {
	metrics.StoreRequestsTotal.WithLabelValues(s.backend, op).Inc()
	metrics.StoreDurationMs.WithLabelValues(s.backend, op).Observe(float64(time.Since(start).Milliseconds()))
}

func (s *Instrumented) fail(op string, err error) {
	if err != nil {
		metrics.StoreFailuresTotal.WithLabelValues(s.backend, op).Inc()
	}
}
