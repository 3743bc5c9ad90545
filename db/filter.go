package db

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// ─────────────────────────────────────────────────────────────────────────────
// Criteria and rules
// ─────────────────────────────────────────────────────────────────────────────

// Criteria are named search filters, typically taken 1:1 from a query string
// or command-line flags. Keys no rule recognises are ignored.
type Criteria map[string]any

// Op is a comparison operator a Rule renders between column and placeholder.
type Op int

const (
	OpILike Op = iota // case-insensitive match; rendered per dialect
	OpGte
	OpLte
	OpGt
)

func (o Op) render(d Dialect) string {
	switch o {
	case OpILike:
		return d.ILike()
	case OpGte:
		return ">="
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	}
	panic(fmt.Sprintf("jobly/db: unknown operator %d", int(o)))
}

// ArgFunc turns a raw criteria value into the bound parameter. Returning
// ok=false drops the predicate.
type ArgFunc func(v any) (arg any, ok bool)

// Rule recognises one criteria key and renders it as `Column Op $n`.
type Rule struct {
	Key    string
	Column string
	Op     Op
	Arg    ArgFunc
}

// Passthrough binds the criteria value as-is. Type mismatches surface from
// the database, not here.
func Passthrough(v any) (any, bool) { return v, true }

// Contains binds the value wrapped in % wildcards for substring matching.
// A nil value drops the predicate.
func Contains(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	return "%" + fmt.Sprint(v) + "%", true
}

// WhenTruthy contributes the constant c only when the criteria value is
// truthy: true, "true", "1", a non-zero number, and so on.
func WhenTruthy(c any) ArgFunc {
	return func(v any) (any, bool) {
		b, err := cast.ToBoolE(v)
		if err != nil || !b {
			return nil, false
		}
		return c, true
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Filter: predicate composition
// ─────────────────────────────────────────────────────────────────────────────

// Filter is an ordered rule set. Predicates are always emitted in rule order,
// whatever order the criteria were supplied in.
type Filter []Rule

// WhereClause is a compiled conjunction: Conditions holds
// `title ILIKE $1 AND salary >= $2` and Values[n-1] binds placeholder n.
type WhereClause struct {
	Conditions string
	Values     []any
}

// Compile renders the predicates contributed by criteria. ok is false when no
// rule contributed; callers must then run their unfiltered query instead of
// emitting an empty WHERE.
func (f Filter) Compile(d Dialect, criteria Criteria) (clause WhereClause, ok bool) {
	var conds []string
	for _, r := range f {
		raw, present := criteria[r.Key]
		if !present {
			continue
		}
		argFn := r.Arg
		if argFn == nil {
			argFn = Passthrough
		}
		arg, use := argFn(raw)
		if !use {
			continue
		}
		clause.Values = append(clause.Values, arg)
		conds = append(conds, r.Column+" "+r.Op.render(d)+" "+d.Placeholder(len(clause.Values)))
	}
	if len(conds) == 0 {
		return WhereClause{}, false
	}
	clause.Conditions = strings.Join(conds, " AND ")
	return clause, true
}

// Unknown returns the criteria keys no rule recognises, sorted.
func (f Filter) Unknown(criteria Criteria) []string {
	known := make(map[string]struct{}, len(f))
	for _, r := range f {
		known[r.Key] = struct{}{}
	}
	var unknown []string
	for k := range criteria {
		if _, ok := known[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	return unknown
}
