package repo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Skryldev/jobly/db"
	"github.com/Skryldev/jobly/models"
)

// ─────────────────────────────────────────────────────────────────────────────
// JobRepository interface: for mocking in tests
// ─────────────────────────────────────────────────────────────────────────────

// JobRepository defines the contract for job persistence operations.
type JobRepository interface {
	Create(ctx context.Context, params models.CreateJobParams) (*models.Job, error)
	CreateMany(ctx context.Context, params []models.CreateJobParams) ([]*models.Job, error)
	Get(ctx context.Context, id int64) (*models.Job, error)
	FindAll(ctx context.Context) ([]*models.Job, error)
	FindMatching(ctx context.Context, criteria db.Criteria) ([]*models.Job, error)
	Update(ctx context.Context, id int64, params models.UpdateJobParams) (*models.Job, error)
	Remove(ctx context.Context, id int64) error
}

// JobFilter lists the search criteria jobs understand, in the order their
// predicates are emitted.
var JobFilter = db.Filter{
	{Key: "title", Column: "title", Op: db.OpILike, Arg: db.Contains},
	{Key: "min_salary", Column: "salary", Op: db.OpGte, Arg: db.Passthrough},
	{Key: "has_equity", Column: "equity", Op: db.OpGt, Arg: db.WhenTruthy(0)},
}

// ─────────────────────────────────────────────────────────────────────────────
// jobRepo: concrete implementation
// ─────────────────────────────────────────────────────────────────────────────

type jobRepo struct {
	q db.Querier
}

// NewJobRepo returns a JobRepository backed by q.
// q can be a *db.DB or *db.Tx: both satisfy db.Querier.
func NewJobRepo(q db.Querier) JobRepository {
	return &jobRepo{q: q}
}

// ─────────────────────────────────────────────────────────────────────────────
// SQL constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	jobColumns = `id, title, salary, equity, company_handle`

	sqlInsertJob = `
		INSERT INTO jobs (title, salary, equity, company_handle)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + jobColumns

	sqlGetJob = `
		SELECT ` + jobColumns + `
		FROM   jobs
		WHERE  id = $1`

	sqlSelectJobs = `
		SELECT ` + jobColumns + `
		FROM   jobs`

	sqlJobsOrder = `
		ORDER  BY id DESC`

	sqlDeleteJob = `
		DELETE FROM jobs WHERE id = $1`
)

// ─────────────────────────────────────────────────────────────────────────────
// Create
// ─────────────────────────────────────────────────────────────────────────────

// Create posts a new job. It fails with db.ErrInvalidArgument when the
// posting breaks a business rule or names an unknown company, and with
// db.ErrDuplicateKey when the company already posts a job with that title.
func (r *jobRepo) Create(ctx context.Context, params models.CreateJobParams) (*models.Job, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	row := r.q.QueryRow(ctx, sqlInsertJob, params.Title, params.Salary, params.Equity, params.CompanyHandle)
	job, err := scanJob(row)
	if err != nil {
		return nil, classifyJobWrite(err, params.Title, params.CompanyHandle)
	}
	return job, nil
}

// CreateMany posts several jobs through one prepared statement. Every
// posting is validated before the first insert; run it inside db.ExecTx to
// make the batch all-or-nothing.
func (r *jobRepo) CreateMany(ctx context.Context, params []models.CreateJobParams) ([]*models.Job, error) {
	if len(params) == 0 {
		return nil, nil
	}
	for i, p := range params {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("job %d: %w", i, err)
		}
	}

	stmt, err := r.q.Prepare(ctx, sqlInsertJob)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	jobs := make([]*models.Job, 0, len(params))
	for _, p := range params {
		row := stmt.QueryRow(ctx, p.Title, p.Salary, p.Equity, p.CompanyHandle)
		job, err := scanJob(row)
		if err != nil {
			return nil, classifyJobWrite(err, p.Title, p.CompanyHandle)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Get / FindAll / FindMatching
// ─────────────────────────────────────────────────────────────────────────────

// Get returns a single job by id.
// Returns db.ErrNotFound when no record matches.
func (r *jobRepo) Get(ctx context.Context, id int64) (*models.Job, error) {
	return scanJob(r.q.QueryRow(ctx, sqlGetJob, id))
}

// FindAll returns every job, newest first.
func (r *jobRepo) FindAll(ctx context.Context) ([]*models.Job, error) {
	return r.list(ctx, sqlSelectJobs+sqlJobsOrder)
}

// FindMatching returns the jobs matching criteria (see JobFilter). Criteria
// that contribute no predicate fall back to FindAll; unknown keys are logged
// and ignored.
func (r *jobRepo) FindMatching(ctx context.Context, criteria db.Criteria) ([]*models.Job, error) {
	if unknown := JobFilter.Unknown(criteria); len(unknown) > 0 {
		slog.WarnContext(ctx, "repo/job: ignoring unknown filter keys", "keys", unknown)
	}
	where, ok := JobFilter.Compile(r.q.Dialect(), criteria)
	if !ok {
		return r.FindAll(ctx)
	}
	return r.list(ctx, sqlSelectJobs+`
		WHERE  `+where.Conditions+sqlJobsOrder, where.Values...)
}

func (r *jobRepo) list(ctx context.Context, query string, args ...any) ([]*models.Job, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]*models.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Update: partial update through the SET-clause compiler
// ─────────────────────────────────────────────────────────────────────────────

// Update changes the set fields of job id. An empty update is
// db.ErrInvalidArgument; a missing job is db.ErrNotFound.
func (r *jobRepo) Update(ctx context.Context, id int64, params models.UpdateJobParams) (*models.Job, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	d := r.q.Dialect()
	// every updatable job field is named after its column
	set, err := db.CompileSet(d, params.Updates(), nil)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		UPDATE jobs
		SET    %s
		WHERE  id = %s
		RETURNING %s`,
		set.Columns, d.Placeholder(set.Next()), jobColumns)

	job, err := scanJob(r.q.QueryRow(ctx, query, append(set.Values, id)...))
	if err != nil {
		return nil, classifyJobWrite(err, "", "")
	}
	return job, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Remove
// ─────────────────────────────────────────────────────────────────────────────

// Remove deletes job id.
// Returns db.ErrNotFound if no row was deleted.
func (r *jobRepo) Remove(ctx context.Context, id int64) error {
	res, err := r.q.Exec(ctx, sqlDeleteJob, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// scanJob: centralised column mapping
// ─────────────────────────────────────────────────────────────────────────────

func scanJob(row scanner) (*models.Job, error) {
	j := &models.Job{}
	err := row.Scan(&j.ID, &j.Title, &j.Salary, &j.Equity, &j.CompanyHandle)
	if err != nil {
		return nil, fmt.Errorf("repo/job: %w", err)
	}
	return j, nil
}

var _ JobRepository = (*jobRepo)(nil)
