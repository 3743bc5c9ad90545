package db

import (
	"sync/atomic"
	"time"
)

// QueryStats is a goroutine-safe MetricsCollector that keeps running totals.
type QueryStats struct {
	statements atomic.Int64
	failures   atomic.Int64
	rows       atomic.Int64
	elapsed    atomic.Int64 // nanoseconds
}

// RecordQuery implements MetricsCollector. Any error counts as a failure,
// including a row lookup that found nothing.
func (s *QueryStats) RecordQuery(ev QueryEvent) {
	s.statements.Add(1)
	if ev.Err != nil {
		s.failures.Add(1)
	}
	if ev.Rows > 0 {
		s.rows.Add(ev.Rows)
	}
	s.elapsed.Add(int64(ev.Duration))
}

// Snapshot is a point-in-time copy of QueryStats.
type Snapshot struct {
	Statements int64
	Failures   int64
	// RowsAffected sums the affected-row counts of exec statements.
	RowsAffected int64
	Elapsed      time.Duration
}

// Snapshot returns the current totals.
func (s *QueryStats) Snapshot() Snapshot {
	return Snapshot{
		Statements:   s.statements.Load(),
		Failures:     s.failures.Load(),
		RowsAffected: s.rows.Load(),
		Elapsed:      time.Duration(s.elapsed.Load()),
	}
}
