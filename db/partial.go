package db

import (
	"sort"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Updates: ordered field → value assignments
// ─────────────────────────────────────────────────────────────────────────────

// Assignment sets one logical field to a new value.
type Assignment struct {
	Field string
	Value any
}

// Updates is an ordered set of assignments. Order is slice order, so the
// generated SET clause and its placeholders are deterministic.
type Updates []Assignment

// Set assigns v to field, replacing an earlier assignment to the same field
// in place or appending a new one.
func (u Updates) Set(field string, v any) Updates {
	for i := range u {
		if u[i].Field == field {
			u[i].Value = v
			return u
		}
	}
	return append(u, Assignment{Field: field, Value: v})
}

// UpdatesFromMap converts a map into Updates with keys in sorted order.
func UpdatesFromMap(m map[string]any) Updates {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	u := make(Updates, 0, len(keys))
	for _, k := range keys {
		u = append(u, Assignment{Field: k, Value: m[k]})
	}
	return u
}

// ─────────────────────────────────────────────────────────────────────────────
// Partial-update compilation
// ─────────────────────────────────────────────────────────────────────────────

// SetClause is a compiled SET list: Columns holds `"col"=$1, "other"=$2` and
// Values[n-1] binds placeholder n.
type SetClause struct {
	Columns string
	Values  []any
}

// Next returns the ordinal of the first placeholder after the clause, for
// the WHERE condition that usually follows it.
func (c SetClause) Next() int { return len(c.Values) + 1 }

// ResolveColumn maps a logical field name to its storage column: the entry
// in names if present, the field itself otherwise.
func ResolveColumn(field string, names map[string]string) string {
	if col, ok := names[field]; ok && col != "" {
		return col
	}
	return field
}

// PartialUpdate compiles updates into a PostgreSQL SET clause.
//
//	PartialUpdate(Updates{{"foo", 1}, {"bar", "two"}}, map[string]string{"bar": "grill"})
//	// → `"foo"=$1, "grill"=$2`, [1 "two"]
func PartialUpdate(updates Updates, names map[string]string) (SetClause, error) {
	return CompileSet(Postgres, updates, names)
}

// CompileSet compiles updates into a SET clause for dialect d, translating
// logical field names through names. An empty update set is an
// ErrInvalidArgument.
//
// Field names and translations are quoted verbatim and never escaped; they
// must come from code, never from request input.
func CompileSet(d Dialect, updates Updates, names map[string]string) (SetClause, error) {
	if len(updates) == 0 {
		return SetClause{}, InvalidArgument("no data to update")
	}

	cols := make([]string, len(updates))
	values := make([]any, len(updates))
	for i, a := range updates {
		cols[i] = d.Quote(ResolveColumn(a.Field, names)) + "=" + d.Placeholder(i+1)
		values[i] = a.Value
	}

	return SetClause{
		Columns: strings.Join(cols, ", "),
		Values:  values,
	}, nil
}
