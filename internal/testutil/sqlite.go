// Package testutil provides SQLite-backed fixtures for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Skryldev/jobly/db"
	"github.com/Skryldev/jobly/models"

	_ "github.com/mattn/go-sqlite3"
)

// Schema mirrors the PostgreSQL migrations in SQLite syntax.
const Schema = `
CREATE TABLE companies (
	handle        TEXT PRIMARY KEY CHECK (handle = lower(handle)),
	name          TEXT UNIQUE NOT NULL,
	num_employees INTEGER CHECK (num_employees >= 0),
	description   TEXT NOT NULL DEFAULT '',
	logo_url      TEXT
);

CREATE TABLE jobs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	title          TEXT NOT NULL,
	salary         INTEGER CHECK (salary >= 0),
	equity         REAL CHECK (equity <= 1.0),
	company_handle TEXT NOT NULL REFERENCES companies ON DELETE CASCADE,
	UNIQUE (title, company_handle)
);`

// MemoryDB opens an in-memory SQLite database with foreign keys enforced and
// the jobly schema applied. It is closed when the test ends.
func MemoryDB(t testing.TB, hooks ...db.Hook) *db.DB {
	t.Helper()
	return open(t, ":memory:?_foreign_keys=on", hooks)
}

// FileDSN creates a SQLite database file with the jobly schema in a
// temporary directory and returns its DSN, for code that opens its own
// connection.
func FileDSN(t testing.TB) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "jobly.db") + "?_foreign_keys=on"
	d := open(t, dsn, nil)
	if err := d.Close(); err != nil {
		t.Fatalf("close fixture db: %v", err)
	}
	return dsn
}

func open(t testing.TB, dsn string, hooks []db.Hook) *db.DB {
	t.Helper()
	d, err := db.Open(db.Config{
		DSN:        dsn,
		DriverName: "sqlite3",
		// every pooled connection to :memory: is a separate database
		MaxOpenConns: 1,
		Hooks:        hooks,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if _, err := d.Exec(context.Background(), Schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return d
}

// SeedCompanies inserts companies c1, c2 and c3 with 1, 2 and 3 employees.
func SeedCompanies(t testing.TB, d *db.DB) {
	t.Helper()
	for i, h := range []string{"c1", "c2", "c3"} {
		_, err := d.Exec(context.Background(),
			`INSERT INTO companies (handle, name, num_employees, description, logo_url)
			 VALUES ($1, $2, $3, $4, $5)`,
			h, "C"+h[1:], i+1, "Desc"+h[1:], "http://"+h+".img")
		if err != nil {
			t.Fatalf("seed company %s: %v", h, err)
		}
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// Job builds a CreateJobParams for tests.
func Job(title string, salary int, equity float64, handle string) models.CreateJobParams {
	return models.CreateJobParams{Title: title, Salary: Ptr(salary), Equity: Ptr(equity), CompanyHandle: handle}
}
