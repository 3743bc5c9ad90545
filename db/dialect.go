package db

import "strconv"

// Dialect renders the driver-specific pieces of generated SQL.
//
// Generated clauses never escape identifiers: Quote wraps its input verbatim,
// so only trusted column names may reach it.
type Dialect interface {
	// Name identifies the dialect in logs and errors.
	Name() string
	// Placeholder returns the bind marker for the n-th (1-based) parameter.
	Placeholder(n int) string
	// Quote wraps an identifier in the dialect's identifier quotes.
	Quote(ident string) string
	// ILike is the case-insensitive pattern-match operator.
	ILike() string
}

var (
	// Postgres is the dialect of lib/pq and pgx: $N placeholders and ILIKE.
	Postgres Dialect = postgresDialect{}
	// SQLite uses the same $N placeholders; its LIKE is already
	// case-insensitive for ASCII.
	SQLite Dialect = sqliteDialect{}
)

type postgresDialect struct{}

func (postgresDialect) Name() string              { return "postgres" }
func (postgresDialect) Placeholder(n int) string  { return "$" + strconv.Itoa(n) }
func (postgresDialect) Quote(ident string) string { return `"` + ident + `"` }
func (postgresDialect) ILike() string             { return "ILIKE" }

type sqliteDialect struct{}

func (sqliteDialect) Name() string              { return "sqlite" }
func (sqliteDialect) Placeholder(n int) string  { return "$" + strconv.Itoa(n) }
func (sqliteDialect) Quote(ident string) string { return `"` + ident + `"` }
func (sqliteDialect) ILike() string             { return "LIKE" }
