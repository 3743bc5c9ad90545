// The pluggable driver layer. Each driver adapter implements Driver and
// registers itself, so Open can pick the right dialect and error mapper while
// DSN construction stays explicit per database.

package db

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"sync"
)

// ─────────────────────────────────────────────────────────────────────────────
// Driver interface
// ─────────────────────────────────────────────────────────────────────────────

// Driver encapsulates database-specific behaviour:
//   - building a DSN from structured options
//   - the SQL dialect used for generated clauses
//   - a driver-specific ErrorMapper
type Driver interface {
	// Name returns the name the driver registered with database/sql.
	Name() string

	// DSN converts structured options into a driver DSN string.
	DSN(opts DriverOptions) (string, error)

	// Dialect returns the SQL dialect spoken through this driver.
	Dialect() Dialect

	// ErrorMapper returns a mapper tuned to this driver's error types.
	ErrorMapper() ErrorMapper
}

// DriverOptions carries the most common connection parameters in a structured,
// driver-agnostic form. DSN() converts them to the driver's native format.
type DriverOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // "disable", "require", "verify-full", etc.
	// Extra holds driver-specific key/value parameters.
	Extra map[string]string
}

// ─────────────────────────────────────────────────────────────────────────────
// Driver registry
// ─────────────────────────────────────────────────────────────────────────────

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// RegisterDriver adds a Driver to the global registry.
// Panics if a driver with the same name is already registered (use ReplaceDriver
// to override).
func RegisterDriver(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if _, ok := drivers[d.Name()]; ok {
		panic(fmt.Sprintf("jobly/db: driver %q already registered", d.Name()))
	}
	drivers[d.Name()] = d
}

// ReplaceDriver upserts a driver in the registry (no panic on collision).
func ReplaceDriver(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[d.Name()] = d
}

// LookupDriver returns the registered Driver by name or an error.
func LookupDriver(name string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	d, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("jobly/db: driver %q not registered", name)
	}
	return d, nil
}

// Drivers returns the names of all registered drivers, sorted.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for n := range drivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// OpenWithDriver opens a DB using a registered Driver and structured options,
// removing the need for manual DSN construction.
//
//	database, err := db.OpenWithDriver("postgres", db.DriverOptions{
//	    Host: "localhost", Port: 5432,
//	    User: "jobly", Password: "secret", Database: "jobly",
//	}, db.Config{MaxOpenConns: 25})
func OpenWithDriver(driverName string, driverOpts DriverOptions, cfg Config) (*DB, error) {
	drv, err := LookupDriver(driverName)
	if err != nil {
		return nil, err
	}

	dsn, err := drv.DSN(driverOpts)
	if err != nil {
		return nil, fmt.Errorf("jobly/db: DSN construction failed: %w", err)
	}

	cfg.DriverName = drv.Name()
	cfg.DSN = dsn
	return Open(cfg)
}

// driverMapper adapts a single-driver mapping function into an ErrorMapper
// that leaves already-mapped errors and errors it does not recognise
// untouched.
func driverMapper(fn func(error) error) ErrorMapper {
	return ErrorMapperFunc(func(err error) error {
		var dbe *DBError
		if err == nil || errors.As(err, &dbe) {
			return err
		}
		if mapped := fn(err); mapped != nil {
			return mapped
		}
		return err
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// PostgreSQL driver adapter (lib/pq)
// ─────────────────────────────────────────────────────────────────────────────

// PostgresDriver is the lib/pq adapter. lib/pq registers itself as
// "postgres" when imported.
type PostgresDriver struct{}

func (PostgresDriver) Name() string { return "postgres" }

func (PostgresDriver) DSN(o DriverOptions) (string, error) {
	if o.Host == "" || o.Database == "" {
		return "", fmt.Errorf("postgres driver: Host and Database are required")
	}
	port := o.Port
	if port == 0 {
		port = 5432
	}
	sslMode := o.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		o.Host, port, o.User, o.Password, o.Database, sslMode,
	)
	for _, k := range sortedKeys(o.Extra) {
		dsn += fmt.Sprintf(" %s=%s", k, o.Extra[k])
	}
	return dsn, nil
}

func (PostgresDriver) Dialect() Dialect         { return Postgres }
func (PostgresDriver) ErrorMapper() ErrorMapper { return driverMapper(mapPQError) }

// ─────────────────────────────────────────────────────────────────────────────
// pgx driver adapter (jackc/pgx/v5/stdlib)
// ─────────────────────────────────────────────────────────────────────────────

// PGXDriver is the pgx adapter. Import _ "github.com/jackc/pgx/v5/stdlib"
// to register "pgx" with database/sql.
type PGXDriver struct{}

func (PGXDriver) Name() string { return "pgx" }

func (PGXDriver) DSN(o DriverOptions) (string, error) {
	if o.Host == "" || o.Database == "" {
		return "", fmt.Errorf("pgx driver: Host and Database are required")
	}
	port := o.Port
	if port == 0 {
		port = 5432
	}
	q := url.Values{}
	sslMode := o.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q.Set("sslmode", sslMode)
	for k, v := range o.Extra {
		q.Set(k, v)
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     o.Host + ":" + strconv.Itoa(port),
		Path:     "/" + o.Database,
		RawQuery: q.Encode(),
	}
	if o.User != "" {
		u.User = url.UserPassword(o.User, o.Password)
	}
	return u.String(), nil
}

func (PGXDriver) Dialect() Dialect         { return Postgres }
func (PGXDriver) ErrorMapper() ErrorMapper { return driverMapper(mapPGXError) }

// ─────────────────────────────────────────────────────────────────────────────
// SQLite driver adapter
// ─────────────────────────────────────────────────────────────────────────────

// SQLiteDriver is the mattn/go-sqlite3 adapter.
type SQLiteDriver struct{}

func (SQLiteDriver) Name() string { return "sqlite3" }

func (SQLiteDriver) DSN(o DriverOptions) (string, error) {
	if o.Database == "" {
		return "", fmt.Errorf("sqlite3 driver: Database (file path) is required")
	}
	dsn := o.Database
	for i, k := range sortedKeys(o.Extra) {
		if i == 0 {
			dsn += "?"
		} else {
			dsn += "&"
		}
		dsn += k + "=" + o.Extra[k]
	}
	return dsn, nil
}

func (SQLiteDriver) Dialect() Dialect         { return SQLite }
func (SQLiteDriver) ErrorMapper() ErrorMapper { return driverMapper(mapSQLiteError) }

// ─────────────────────────────────────────────────────────────────────────────
// Built-in drivers are registered at init time
// ─────────────────────────────────────────────────────────────────────────────

func init() {
	RegisterDriver(PostgresDriver{})
	RegisterDriver(PGXDriver{})
	RegisterDriver(SQLiteDriver{})
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
