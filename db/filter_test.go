package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/jobly/db"
)

var jobFilter = db.Filter{
	{Key: "title", Column: "title", Op: db.OpILike, Arg: db.Contains},
	{Key: "min_salary", Column: "salary", Op: db.OpGte, Arg: db.Passthrough},
	{Key: "has_equity", Column: "equity", Op: db.OpGt, Arg: db.WhenTruthy(0)},
}

func TestFilter_TitleAndSalaryWithoutEquity(t *testing.T) {
	where, ok := jobFilter.Compile(db.Postgres, db.Criteria{"title": "j", "min_salary": 1, "has_equity": false})
	require.True(t, ok)
	assert.Equal(t, "title ILIKE $1 AND salary >= $2", where.Conditions)
	assert.Equal(t, []any{"%j%", 1}, where.Values)
}

func TestFilter_HasEquityOnly(t *testing.T) {
	where, ok := jobFilter.Compile(db.Postgres, db.Criteria{"has_equity": true})
	require.True(t, ok)
	assert.Equal(t, "equity > $1", where.Conditions)
	assert.Equal(t, []any{0}, where.Values)
}

func TestFilter_NoFilter(t *testing.T) {
	cases := map[string]db.Criteria{
		"nil":              nil,
		"empty":            {},
		"only unknown":     {"bogus": "x"},
		"equity false":     {"has_equity": false},
		"equity bad value": {"has_equity": "maybe"},
		"nil title":        {"title": nil},
	}
	for name, criteria := range cases {
		t.Run(name, func(t *testing.T) {
			where, ok := jobFilter.Compile(db.Postgres, criteria)
			assert.False(t, ok)
			assert.Empty(t, where.Conditions)
			assert.Empty(t, where.Values)
		})
	}
}

func TestFilter_FixedPredicateOrder(t *testing.T) {
	// Go map iteration order is randomised, so repeating the compile
	// exercises many key orders.
	for i := 0; i < 50; i++ {
		where, ok := jobFilter.Compile(db.Postgres, db.Criteria{
			"has_equity": true,
			"min_salary": 50000,
			"title":      "eng",
		})
		require.True(t, ok)
		assert.Equal(t, "title ILIKE $1 AND salary >= $2 AND equity > $3", where.Conditions)
		assert.Equal(t, []any{"%eng%", 50000, 0}, where.Values)
	}
}

func TestFilter_EquityTruthiness(t *testing.T) {
	for _, v := range []any{true, "true", "1", 1} {
		where, ok := jobFilter.Compile(db.Postgres, db.Criteria{"has_equity": v})
		require.True(t, ok, "value %#v", v)
		assert.Equal(t, []any{0}, where.Values)
	}
	for _, v := range []any{false, "false", "0", 0, nil} {
		_, ok := jobFilter.Compile(db.Postgres, db.Criteria{"has_equity": v})
		assert.False(t, ok, "value %#v", v)
	}
}

func TestFilter_PassesUnvalidatedValuesThrough(t *testing.T) {
	where, ok := jobFilter.Compile(db.Postgres, db.Criteria{"min_salary": "lots"})
	require.True(t, ok)
	assert.Equal(t, "salary >= $1", where.Conditions)
	assert.Equal(t, []any{"lots"}, where.Values)
}

func TestFilter_SQLiteUsesLike(t *testing.T) {
	where, ok := jobFilter.Compile(db.SQLite, db.Criteria{"title": "dev"})
	require.True(t, ok)
	assert.Equal(t, "title LIKE $1", where.Conditions)
}

func TestContains_Nil(t *testing.T) {
	arg, ok := db.Contains(nil)
	assert.False(t, ok)
	assert.Nil(t, arg)

	where, ok := jobFilter.Compile(db.Postgres, db.Criteria{"title": nil, "min_salary": 5})
	require.True(t, ok)
	assert.Equal(t, "salary >= $1", where.Conditions)
	assert.Equal(t, []any{5}, where.Values)
}

func TestFilter_NilArgDefaultsToPassthrough(t *testing.T) {
	f := db.Filter{{Key: "max", Column: "n", Op: db.OpLte}}
	where, ok := f.Compile(db.Postgres, db.Criteria{"max": 3})
	require.True(t, ok)
	assert.Equal(t, "n <= $1", where.Conditions)
	assert.Equal(t, []any{3}, where.Values)
}

func TestFilter_Unknown(t *testing.T) {
	assert.Equal(t, []string{"bogus", "minSalary"},
		jobFilter.Unknown(db.Criteria{"minSalary": 1, "title": "x", "bogus": true}))
	assert.Empty(t, jobFilter.Unknown(db.Criteria{"title": "x"}))
}
