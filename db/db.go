// Package db is the SQL-first data-access toolkit behind jobly. It is NOT an
// ORM: statements are explicit and parameterised, and the only generated SQL
// is the partial-update SET clause and the filter WHERE clause, both built
// from trusted identifiers with positional placeholders for every value.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Config
// ─────────────────────────────────────────────────────────────────────────────

// Config holds all options for opening and managing the connection pool.
type Config struct {
	// DSN is the driver-specific data-source name.
	DSN string

	// DriverName is "postgres", "pgx", or "sqlite3".
	DriverName string

	// Pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Default query timeout applied when no deadline is set on the context.
	// Zero means no default timeout.
	DefaultTimeout time.Duration

	// Hooks executed around every statement (logging, metrics).
	// Nil entries are skipped.
	Hooks []Hook
}

// ─────────────────────────────────────────────────────────────────────────────
// DB: the central type
// ─────────────────────────────────────────────────────────────────────────────

// DB is a thin, concurrency-safe wrapper around *sql.DB.
// It adds context-aware helpers, hook dispatch, unified error mapping,
// dialect-aware SQL generation and transaction management.
type DB struct {
	sqldb   *sql.DB
	cfg     Config
	hooks   hookChain
	errMap  ErrorMapper
	dialect Dialect
}

// Open opens the database described by cfg and verifies connectivity with Ping.
// When cfg.DriverName is registered (see RegisterDriver) its dialect and error
// mapper are installed; otherwise PostgreSQL conventions are assumed.
func Open(cfg Config) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("jobly/db: DSN must not be empty")
	}
	if cfg.DriverName == "" {
		return nil, fmt.Errorf("jobly/db: DriverName must not be empty")
	}

	sqldb, err := sql.Open(cfg.DriverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("jobly/db: open: %w", err)
	}

	// Pool tuning
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	d := &DB{
		sqldb:   sqldb,
		cfg:     cfg,
		hooks:   newHookChain(cfg.Hooks),
		errMap:  DefaultErrorMapper(),
		dialect: Postgres,
	}
	if drv, err := LookupDriver(cfg.DriverName); err == nil {
		d.dialect = drv.Dialect()
		d.errMap = ChainMapper(drv.ErrorMapper(), DefaultErrorMapper())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("jobly/db: ping: %w", err)
	}

	return d, nil
}

// Raw returns the underlying *sql.DB for advanced use cases.
func (d *DB) Raw() *sql.DB { return d.sqldb }

// Dialect reports the SQL dialect used to render generated clauses.
func (d *DB) Dialect() Dialect { return d.dialect }

// Close closes all pooled connections and frees resources.
func (d *DB) Close() error { return d.sqldb.Close() }

// Ping verifies that the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := d.withDefaultTimeout(ctx)
	defer cancel()
	return d.mapErr(d.sqldb.PingContext(ctx))
}

// Stats returns connection pool statistics. The CLI logs them next to the
// QueryStats totals when a command finishes.
func (d *DB) Stats() sql.DBStats { return d.sqldb.Stats() }

// ─────────────────────────────────────────────────────────────────────────────
// Query execution helpers
// ─────────────────────────────────────────────────────────────────────────────

// Exec executes a statement that returns no rows (INSERT, UPDATE, DELETE, DDL),
// with errors translated through the unified error mapper.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, cancel := d.withDefaultTimeout(ctx)
	defer cancel()
	sp := d.hooks.begin(ctx, QueryEvent{Kind: KindExec, Query: query, Args: args})
	res, err := d.sqldb.ExecContext(ctx, query, args...)
	err = d.mapErr(err)
	sp.endExec(res, err)
	return res, err
}

// Query executes a query that returns rows.
// The caller MUST close the returned *sql.Rows.
//
// The default timeout is not applied here: cancelling the context would
// invalidate rows the caller has not read yet.
func (d *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	sp := d.hooks.begin(ctx, QueryEvent{Kind: KindQuery, Query: query, Args: args})
	rows, err := d.sqldb.QueryContext(ctx, query, args...)
	err = d.mapErr(err)
	sp.end(err)
	return rows, err
}

// QueryRow executes a query expected to return at most one row.
// Scan on the returned *Row yields ErrNotFound when no row matches. The
// AfterQuery hooks run from Scan, once the outcome is known.
func (d *DB) QueryRow(ctx context.Context, query string, args ...any) *Row {
	sp := d.hooks.begin(ctx, QueryEvent{Kind: KindRow, Query: query, Args: args})
	raw := d.sqldb.QueryRowContext(ctx, query, args...)
	return &Row{raw: raw, errMap: d.errMap, span: sp}
}

// ─────────────────────────────────────────────────────────────────────────────
// Prepared statements
// ─────────────────────────────────────────────────────────────────────────────

// Prepare creates a prepared statement for repeated use.
// The caller is responsible for calling stmt.Close().
func (d *DB) Prepare(ctx context.Context, query string) (*Stmt, error) {
	s, err := d.sqldb.PrepareContext(ctx, query)
	if err != nil {
		return nil, d.mapErr(err)
	}
	return &Stmt{stmt: s, query: query, hooks: d.hooks, errMap: d.errMap}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ─────────────────────────────────────────────────────────────────────────────

func (d *DB) withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.cfg.DefaultTimeout == 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {} // caller already set a deadline
	}
	return context.WithTimeout(ctx, d.cfg.DefaultTimeout)
}

func (d *DB) mapErr(err error) error {
	if err == nil {
		return nil
	}
	return d.errMap.Map(err)
}

// ─────────────────────────────────────────────────────────────────────────────
// Row: wraps *sql.Row to translate errors uniformly
// ─────────────────────────────────────────────────────────────────────────────

// Row wraps *sql.Row and maps errors through the unified error mapper.
type Row struct {
	raw    *sql.Row
	errMap ErrorMapper
	span   *span
}

// Scan copies columns from the matched row into dest values.
// ErrNotFound is returned when no row was found. The first Scan reports the
// statement, with its mapped error, to the hooks.
func (r *Row) Scan(dest ...any) error {
	err := r.errMap.Map(r.raw.Scan(dest...))
	r.span.end(err)
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// Stmt: wraps *sql.Stmt
// ─────────────────────────────────────────────────────────────────────────────

// Stmt wraps a prepared *sql.Stmt with hook dispatch and error mapping.
type Stmt struct {
	stmt   *sql.Stmt
	query  string
	hooks  hookChain
	errMap ErrorMapper
	inTx   bool
}

func (s *Stmt) event(kind StatementKind, args []any) QueryEvent {
	return QueryEvent{Kind: kind, Query: s.query, Args: args, InTx: s.inTx, Prepared: true}
}

// Exec executes the prepared statement.
func (s *Stmt) Exec(ctx context.Context, args ...any) (sql.Result, error) {
	sp := s.hooks.begin(ctx, s.event(KindExec, args))
	res, err := s.stmt.ExecContext(ctx, args...)
	err = s.errMap.Map(err)
	sp.endExec(res, err)
	return res, err
}

// QueryRow executes the prepared statement expecting one row. Hooks report
// it from Row.Scan.
func (s *Stmt) QueryRow(ctx context.Context, args ...any) *Row {
	sp := s.hooks.begin(ctx, s.event(KindRow, args))
	raw := s.stmt.QueryRowContext(ctx, args...)
	return &Row{raw: raw, errMap: s.errMap, span: sp}
}

// Close releases the prepared statement resources.
func (s *Stmt) Close() error { return s.stmt.Close() }

// ─────────────────────────────────────────────────────────────────────────────
// WithRetry: resilience helper
// ─────────────────────────────────────────────────────────────────────────────

// RetryConfig controls retry behaviour for transient errors.
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
	// RetryOn decides whether a given error should trigger a retry.
	// Defaults to retrying on ErrDeadlock and ErrTimeout if nil.
	RetryOn func(error) bool
}

// WithRetry executes fn, retrying on transient errors per cfg. fn must be
// idempotent; jobly only wraps reads with it.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	retryOn := cfg.RetryOn
	if retryOn == nil {
		retryOn = func(err error) bool {
			return IsDeadlock(err) || IsTimeout(err)
		}
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.Delay):
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryOn(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("jobly/db: all %d attempts failed, last error: %w", attempts, lastErr)
}
