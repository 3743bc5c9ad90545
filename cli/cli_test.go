package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/jobly/cli"
	"github.com/Skryldev/jobly/db"
	"github.com/Skryldev/jobly/internal/testutil"
	"github.com/Skryldev/jobly/models"
)

type harness struct {
	t      *testing.T
	dsn    string
	fs     afero.Fs
	answer bool
	asked  []string
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("JOBLY_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	return &harness{t: t, dsn: testutil.FileDSN(t), fs: afero.NewMemMapFs()}
}

// run executes jobly with JSON output against the harness database.
func (h *harness) run(args ...string) int {
	h.t.Helper()
	h.stdout.Reset()
	h.stderr.Reset()
	base := []string{"--driver", "sqlite3", "--database-url", h.dsn, "--output", "json", "--log-level", "error"}
	return cli.Run(context.Background(), append(base, args...), cli.Options{
		Fs:     h.fs,
		Stdout: &h.stdout,
		Stderr: &h.stderr,
		Confirm: func(msg string) (bool, error) {
			h.asked = append(h.asked, msg)
			return h.answer, nil
		},
	})
}

func (h *harness) mustRun(args ...string) {
	h.t.Helper()
	if code := h.run(args...); code != cli.ExitOK {
		h.t.Fatalf("jobly %v exited %d: %s", args, code, h.stderr.String())
	}
}

func decode[T any](t *testing.T, b *bytes.Buffer) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(b.Bytes(), &v), b.String())
	return v
}

func (h *harness) seedCompany(handle string) {
	h.t.Helper()
	h.mustRun("companies", "create", "--handle", handle, "--name", "Company "+handle, "--num-employees", "10")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, cli.ExitOK, cli.ExitCode(nil))
	assert.Equal(t, cli.ExitInvalidArgument, cli.ExitCode(db.InvalidArgument("x")))
	assert.Equal(t, cli.ExitNotFound, cli.ExitCode(db.ErrNotFound))
	assert.Equal(t, cli.ExitDuplicate, cli.ExitCode(db.ErrDuplicateKey))
	assert.Equal(t, cli.ExitFailure, cli.ExitCode(errors.New("boom")))
}

func TestJobs_Lifecycle(t *testing.T) {
	h := newHarness(t)
	h.seedCompany("acme")

	h.mustRun("jobs", "create", "--title", "Engineer", "--company", "acme", "--salary", "100", "--equity", "0.5")
	created := decode[models.Job](t, &h.stdout)
	require.NotZero(t, created.ID)
	assert.Equal(t, 100, *created.Salary)

	id := jsonID(created.ID)
	h.mustRun("jobs", "update", id, "--salary", "150")
	updated := decode[models.Job](t, &h.stdout)
	assert.Equal(t, 150, *updated.Salary)
	assert.Equal(t, "Engineer", updated.Title)
	assert.Equal(t, 0.5, *updated.Equity)

	h.mustRun("jobs", "get", id)
	assert.Equal(t, updated, decode[models.Job](t, &h.stdout))

	h.mustRun("jobs", "delete", id, "--yes")
	assert.Empty(t, h.asked)
	assert.Equal(t, cli.ExitNotFound, h.run("jobs", "get", id))
}

func TestJobs_UpdateWithoutFields(t *testing.T) {
	h := newHarness(t)
	h.seedCompany("acme")
	h.mustRun("jobs", "create", "--title", "Engineer", "--company", "acme")
	id := jsonID(decode[models.Job](t, &h.stdout).ID)

	assert.Equal(t, cli.ExitInvalidArgument, h.run("jobs", "update", id))
	assert.Contains(t, h.stderr.String(), "no data to update")
}

func TestJobs_CreateErrors(t *testing.T) {
	h := newHarness(t)
	h.seedCompany("acme")
	h.mustRun("jobs", "create", "--title", "Engineer", "--company", "acme")

	assert.Equal(t, cli.ExitDuplicate, h.run("jobs", "create", "--title", "Engineer", "--company", "acme"))
	assert.Equal(t, cli.ExitInvalidArgument, h.run("jobs", "create", "--title", "Ghost", "--company", "nope"))
	assert.Equal(t, cli.ExitInvalidArgument, h.run("jobs", "create", "--title", "Cheap", "--company", "acme", "--salary", "-5"))
	assert.Equal(t, cli.ExitInvalidArgument, h.run("jobs", "get", "abc"))
}

func TestJobs_ListFilters(t *testing.T) {
	h := newHarness(t)
	h.seedCompany("acme")
	h.mustRun("jobs", "create", "--title", "Junior Engineer", "--company", "acme", "--salary", "50")
	h.mustRun("jobs", "create", "--title", "Senior Engineer", "--company", "acme", "--salary", "150", "--equity", "0.1")
	h.mustRun("jobs", "create", "--title", "Designer", "--company", "acme", "--salary", "90")

	list := func(args ...string) []string {
		t.Helper()
		h.mustRun(append([]string{"jobs", "list"}, args...)...)
		var titles []string
		for _, j := range decode[[]models.Job](t, &h.stdout) {
			titles = append(titles, j.Title)
		}
		return titles
	}

	assert.Equal(t, []string{"Designer", "Senior Engineer", "Junior Engineer"}, list())
	assert.Equal(t, []string{"Senior Engineer", "Junior Engineer"}, list("--title", "engineer"))
	assert.Equal(t, []string{"Designer", "Senior Engineer"}, list("--min-salary", "60"))
	assert.Equal(t, []string{"Senior Engineer"}, list("--has-equity"))
	assert.Equal(t, []string{"Senior Engineer"}, list("--filter", "title=senior", "--filter", "min_salary=100"))
	assert.Equal(t, []string{"Designer", "Senior Engineer", "Junior Engineer"}, list("--filter", "colour=blue"))
	assert.Empty(t, list("--title", "nobody"))

	assert.Equal(t, cli.ExitInvalidArgument, h.run("jobs", "list", "--filter", "novalue"))
}

func TestCompanies_Lifecycle(t *testing.T) {
	h := newHarness(t)
	h.seedCompany("acme")
	h.mustRun("jobs", "create", "--title", "Engineer", "--company", "acme")

	h.mustRun("companies", "get", "acme")
	detail := decode[models.CompanyDetail](t, &h.stdout)
	assert.Equal(t, "Company acme", detail.Name)
	require.Len(t, detail.Jobs, 1)
	assert.Equal(t, "Engineer", detail.Jobs[0].Title)

	h.mustRun("companies", "update", "acme", "--logo-url", "http://acme.img")
	c := decode[models.Company](t, &h.stdout)
	assert.Equal(t, "http://acme.img", *c.LogoURL)
	assert.Equal(t, 10, *c.NumEmployees)

	assert.Equal(t, cli.ExitDuplicate, h.run("companies", "create", "--handle", "acme", "--name", "Other"))
	assert.Equal(t, cli.ExitInvalidArgument, h.run("companies", "update", "acme"))
	assert.Equal(t, cli.ExitNotFound, h.run("companies", "get", "nope"))
}

func TestCompanies_ListFilters(t *testing.T) {
	h := newHarness(t)
	for handle, n := range map[string]string{"small": "5", "mid": "50", "big": "500"} {
		h.mustRun("companies", "create", "--handle", handle, "--name", handle, "--num-employees", n)
	}

	list := func(args ...string) []string {
		t.Helper()
		h.mustRun(append([]string{"companies", "list"}, args...)...)
		var out []string
		for _, c := range decode[[]models.Company](t, &h.stdout) {
			out = append(out, c.Handle)
		}
		return out
	}

	assert.Equal(t, []string{"big", "mid", "small"}, list())
	assert.Equal(t, []string{"big", "mid"}, list("--min-employees", "10"))
	assert.Equal(t, []string{"mid"}, list("--min-employees", "10", "--max-employees", "100"))
	assert.Equal(t, []string{"small"}, list("--name", "SMA"))

	assert.Equal(t, cli.ExitInvalidArgument, h.run("companies", "list", "--min-employees", "100", "--max-employees", "10"))
}

func TestCompanies_DeleteAsksFirst(t *testing.T) {
	h := newHarness(t)
	h.seedCompany("acme")

	h.answer = false
	h.mustRun("companies", "delete", "acme")
	require.Len(t, h.asked, 1)
	assert.Contains(t, h.asked[0], "acme")
	assert.Contains(t, h.stderr.String(), "aborted")
	h.mustRun("companies", "get", "acme")

	h.answer = true
	h.mustRun("companies", "delete", "acme")
	assert.Equal(t, map[string]string{"deleted": "acme"}, decode[map[string]string](t, &h.stdout))
	assert.Equal(t, cli.ExitNotFound, h.run("companies", "delete", "acme", "--yes"))
}

func TestSeed(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "seed.yaml", []byte(`
companies:
  - handle: acme
    name: Acme
    description: Rockets
    numEmployees: 120
  - handle: initech
    name: Initech
jobs:
  - title: Engineer
    salary: 120000
    equity: 0.01
    companyHandle: acme
  - title: Manager
    companyHandle: initech
`), 0o644))

	h.mustRun("seed", "seed.yaml")
	assert.Equal(t, map[string]map[string]int{"seeded": {"companies": 2, "jobs": 2}},
		decode[map[string]map[string]int](t, &h.stdout))

	h.mustRun("companies", "get", "acme")
	detail := decode[models.CompanyDetail](t, &h.stdout)
	assert.Equal(t, 120, *detail.NumEmployees)
	require.Len(t, detail.Jobs, 1)
	assert.Equal(t, 0.01, *detail.Jobs[0].Equity)
}

func TestSeed_IsAllOrNothing(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "seed.json", []byte(`{
  "companies": [{"handle": "acme", "name": "Acme"}],
  "jobs": [
    {"title": "Engineer", "companyHandle": "acme"},
    {"title": "Ghost", "companyHandle": "nope"}
  ]
}`), 0o644))

	assert.Equal(t, cli.ExitInvalidArgument, h.run("seed", "seed.json"))
	assert.Equal(t, cli.ExitNotFound, h.run("companies", "get", "acme"))
}

func TestSeed_MissingFile(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, cli.ExitInvalidArgument, h.run("seed", "missing.yaml"))
}

func TestRun_BadConfig(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, cli.ExitFailure, h.run("--driver", "oracle", "jobs", "list"))
	assert.Contains(t, h.stderr.String(), "unknown driver")

	assert.Equal(t, cli.ExitInvalidArgument, h.run("--output", "xml", "jobs", "list"))
}

func TestRun_DebugSummary(t *testing.T) {
	h := newHarness(t)
	h.seedCompany("acme")
	require.Equal(t, cli.ExitNotFound, h.run("jobs", "get", "9999"))

	h.mustRun("--log-level", "debug", "jobs", "list")
	out := h.stderr.String()
	assert.Contains(t, out, "cli: statements executed")
	assert.Contains(t, out, "failures=0")
	assert.Contains(t, out, "open_connections=")
	assert.Contains(t, out, "in_use=")
	assert.NotContains(t, out, "query error")
}

func TestRun_TableOutput(t *testing.T) {
	h := newHarness(t)
	h.seedCompany("acme")

	h.mustRun("--output", "table", "companies", "list")
	assert.Contains(t, h.stdout.String(), "acme")
	assert.Contains(t, h.stdout.String(), "Company acme")
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
