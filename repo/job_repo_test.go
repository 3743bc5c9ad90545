package repo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Skryldev/jobly/db"
	"github.com/Skryldev/jobly/internal/testutil"
	"github.com/Skryldev/jobly/models"
	"github.com/Skryldev/jobly/repo"
)

// ─────────────────────────────────────────────────────────────────────────────
// Test fixture
// ─────────────────────────────────────────────────────────────────────────────

// newJobRepo returns a repository over companies c1..c3 and jobs j1 (c1,
// salary 100, equity 0.1), j2 (c1, 200, 0.2), j3 (c1, 300, 0) and j4 (c2,
// no salary, no equity).
func newJobRepo(t *testing.T) (repo.JobRepository, *db.DB, []*models.Job) {
	t.Helper()

	database := testutil.MemoryDB(t)
	testutil.SeedCompanies(t, database)

	r := repo.NewJobRepo(database)
	ctx := context.Background()

	var jobs []*models.Job
	for _, p := range []models.CreateJobParams{
		testutil.Job("j1", 100, 0.1, "c1"),
		testutil.Job("j2", 200, 0.2, "c1"),
		testutil.Job("j3", 300, 0, "c1"),
		{Title: "j4", CompanyHandle: "c2"},
	} {
		job, err := r.Create(ctx, p)
		if err != nil {
			t.Fatalf("seed job %s: %v", p.Title, err)
		}
		jobs = append(jobs, job)
	}
	return r, database, jobs
}

func titles(jobs []*models.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.Title
	}
	return out
}

func assertTitles(t *testing.T, jobs []*models.Job, want ...string) {
	t.Helper()
	got := titles(jobs)
	if len(got) != len(want) {
		t.Fatalf("titles: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("titles: got %v, want %v", got, want)
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Create
// ─────────────────────────────────────────────────────────────────────────────

func TestJobRepo_Create(t *testing.T) {
	r, _, _ := newJobRepo(t)
	ctx := context.Background()

	job, err := r.Create(ctx, testutil.Job("Engineer", 150, 0.05, "c3"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.ID == 0 {
		t.Fatal("expected non-zero ID")
	}
	if job.Title != "Engineer" || job.CompanyHandle != "c3" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.Salary == nil || *job.Salary != 150 {
		t.Fatalf("unexpected salary: %v", job.Salary)
	}
	if job.Equity == nil || *job.Equity != 0.05 {
		t.Fatalf("unexpected equity: %v", job.Equity)
	}
}

func TestJobRepo_Create_Duplicate(t *testing.T) {
	r, _, _ := newJobRepo(t)

	_, err := r.Create(context.Background(), testutil.Job("j1", 1, 0, "c1"))
	if !db.IsDuplicateKey(err) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestJobRepo_Create_SameTitleOtherCompany(t *testing.T) {
	r, _, _ := newJobRepo(t)

	if _, err := r.Create(context.Background(), testutil.Job("j1", 1, 0, "c2")); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestJobRepo_Create_UnknownCompany(t *testing.T) {
	r, _, _ := newJobRepo(t)

	_, err := r.Create(context.Background(), testutil.Job("Ghost", 1, 0, "nope"))
	if !db.IsInvalidArgument(err) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if !errors.Is(err, db.ErrInvalidArgument) {
		t.Fatal("errors.Is should match ErrInvalidArgument")
	}
}

func TestJobRepo_Create_Invalid(t *testing.T) {
	r, _, _ := newJobRepo(t)
	ctx := context.Background()

	cases := map[string]models.CreateJobParams{
		"zero salary":    testutil.Job("x", 0, 0, "c1"),
		"equity above 1": testutil.Job("x", 10, 1.5, "c1"),
		"missing title":  {CompanyHandle: "c1"},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := r.Create(ctx, p); !db.IsInvalidArgument(err) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestJobRepo_CreateMany(t *testing.T) {
	_, database, _ := newJobRepo(t)
	ctx := context.Background()

	var created []*models.Job
	err := database.ExecTx(ctx, func(tx *db.Tx) error {
		var err error
		created, err = repo.NewJobRepo(tx).CreateMany(ctx, []models.CreateJobParams{
			testutil.Job("Batch A", 10, 0, "c3"),
			testutil.Job("Batch B", 20, 0, "c3"),
		})
		return err
	})
	if err != nil {
		t.Fatalf("create many: %v", err)
	}
	if len(created) != 2 || created[0].ID >= created[1].ID {
		t.Fatalf("unexpected batch: %+v", created)
	}
}

func TestJobRepo_CreateMany_RollsBack(t *testing.T) {
	r, database, _ := newJobRepo(t)
	ctx := context.Background()

	err := database.ExecTx(ctx, func(tx *db.Tx) error {
		_, err := repo.NewJobRepo(tx).CreateMany(ctx, []models.CreateJobParams{
			testutil.Job("Fresh", 10, 0, "c3"),
			testutil.Job("j1", 10, 0, "c1"), // duplicate
		})
		return err
	})
	if !db.IsDuplicateKey(err) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	jobs, err := r.FindMatching(ctx, db.Criteria{"title": "Fresh"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected rollback, found %v", titles(jobs))
	}
}

func TestJobRepo_CreateMany_ValidatesFirst(t *testing.T) {
	r, _, _ := newJobRepo(t)

	_, err := r.CreateMany(context.Background(), []models.CreateJobParams{
		testutil.Job("Ok", 10, 0, "c3"),
		testutil.Job("Bad", -1, 0, "c3"),
	})
	if !db.IsInvalidArgument(err) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	jobs, err := r.FindMatching(context.Background(), db.Criteria{"title": "Ok"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("nothing should be inserted, found %v", titles(jobs))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Get / FindAll / FindMatching
// ─────────────────────────────────────────────────────────────────────────────

func TestJobRepo_Get(t *testing.T) {
	r, _, jobs := newJobRepo(t)

	got, err := r.Get(context.Background(), jobs[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "j1" {
		t.Fatalf("unexpected job: %+v", got)
	}
}

func TestJobRepo_Get_NotFound(t *testing.T) {
	r, _, _ := newJobRepo(t)

	_, err := r.Get(context.Background(), 999999)
	if !db.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJobRepo_FailedLookupsAreCounted(t *testing.T) {
	stats := &db.QueryStats{}
	database := testutil.MemoryDB(t, db.NewMetricsHook(stats))
	testutil.SeedCompanies(t, database)
	r := repo.NewJobRepo(database)
	ctx := context.Background()

	before := stats.Snapshot()
	if _, err := r.Get(ctx, 9999); !db.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := r.Create(ctx, testutil.Job("Ghost", 1, 0, "nope")); !db.IsInvalidArgument(err) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	after := stats.Snapshot()

	if got := after.Statements - before.Statements; got != 2 {
		t.Fatalf("expected 2 statements, got %d", got)
	}
	if got := after.Failures - before.Failures; got != 2 {
		t.Fatalf("expected both statements to count as failures, got %d", got)
	}
}

func TestJobRepo_FindAll(t *testing.T) {
	r, _, _ := newJobRepo(t)

	jobs, err := r.FindAll(context.Background())
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	assertTitles(t, jobs, "j4", "j3", "j2", "j1")
}

func TestJobRepo_FindMatching(t *testing.T) {
	r, _, _ := newJobRepo(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		criteria db.Criteria
		want     []string
	}{
		{"title substring", db.Criteria{"title": "1"}, []string{"j1"}},
		{"title case-insensitive", db.Criteria{"title": "J"}, []string{"j4", "j3", "j2", "j1"}},
		{"min salary", db.Criteria{"min_salary": 150}, []string{"j3", "j2"}},
		{"has equity", db.Criteria{"has_equity": true}, []string{"j2", "j1"}},
		{"has equity false", db.Criteria{"has_equity": false}, []string{"j4", "j3", "j2", "j1"}},
		{"combined", db.Criteria{"min_salary": 150, "has_equity": true}, []string{"j2"}},
		{"unknown key ignored", db.Criteria{"colour": "blue"}, []string{"j4", "j3", "j2", "j1"}},
		{"no criteria", nil, []string{"j4", "j3", "j2", "j1"}},
		{"nothing matches", db.Criteria{"title": "zzz"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			jobs, err := r.FindMatching(ctx, tc.criteria)
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			assertTitles(t, jobs, tc.want...)
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update
// ─────────────────────────────────────────────────────────────────────────────

func TestJobRepo_Update(t *testing.T) {
	r, _, jobs := newJobRepo(t)
	ctx := context.Background()

	updated, err := r.Update(ctx, jobs[0].ID, models.UpdateJobParams{
		Title:  testutil.Ptr("Senior j1"),
		Salary: testutil.Ptr(500),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Senior j1" || *updated.Salary != 500 {
		t.Fatalf("unexpected job: %+v", updated)
	}
	if *updated.Equity != 0.1 || updated.CompanyHandle != "c1" {
		t.Fatal("fields outside the update should be unchanged")
	}
}

func TestJobRepo_Update_AllFields(t *testing.T) {
	r, _, jobs := newJobRepo(t)

	updated, err := r.Update(context.Background(), jobs[3].ID, models.UpdateJobParams{
		Title:  testutil.Ptr("j4 lead"),
		Salary: testutil.Ptr(900),
		Equity: testutil.Ptr(0.05),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "j4 lead" || *updated.Salary != 900 || *updated.Equity != 0.05 {
		t.Fatalf("unexpected job: %+v", updated)
	}
	if updated.CompanyHandle != "c2" {
		t.Fatalf("company should be unchanged, got %q", updated.CompanyHandle)
	}
}

func TestJobRepo_Update_Empty(t *testing.T) {
	r, _, jobs := newJobRepo(t)

	_, err := r.Update(context.Background(), jobs[0].ID, models.UpdateJobParams{})
	if !db.IsInvalidArgument(err) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestJobRepo_Update_NotFound(t *testing.T) {
	r, _, _ := newJobRepo(t)

	_, err := r.Update(context.Background(), 999999, models.UpdateJobParams{Title: testutil.Ptr("x")})
	if !db.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJobRepo_Update_Duplicate(t *testing.T) {
	r, _, jobs := newJobRepo(t)

	_, err := r.Update(context.Background(), jobs[1].ID, models.UpdateJobParams{Title: testutil.Ptr("j1")})
	if !db.IsDuplicateKey(err) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Remove
// ─────────────────────────────────────────────────────────────────────────────

func TestJobRepo_Remove(t *testing.T) {
	r, _, jobs := newJobRepo(t)
	ctx := context.Background()

	if err := r.Remove(ctx, jobs[0].ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := r.Get(ctx, jobs[0].ID); !db.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
	if err := r.Remove(ctx, jobs[0].ID); !db.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}
}
