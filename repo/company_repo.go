package repo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cast"

	"github.com/Skryldev/jobly/db"
	"github.com/Skryldev/jobly/models"
)

// CompanyRepository defines the contract for company persistence operations.
type CompanyRepository interface {
	Create(ctx context.Context, params models.CreateCompanyParams) (*models.Company, error)
	Get(ctx context.Context, handle string) (*models.CompanyDetail, error)
	FindAll(ctx context.Context) ([]*models.Company, error)
	FindMatching(ctx context.Context, criteria db.Criteria) ([]*models.Company, error)
	Update(ctx context.Context, handle string, params models.UpdateCompanyParams) (*models.Company, error)
	Remove(ctx context.Context, handle string) error
}

// CompanyFilter lists the search criteria companies understand.
var CompanyFilter = db.Filter{
	{Key: "name", Column: "name", Op: db.OpILike, Arg: db.Contains},
	{Key: "min_employees", Column: "num_employees", Op: db.OpGte, Arg: db.Passthrough},
	{Key: "max_employees", Column: "num_employees", Op: db.OpLte, Arg: db.Passthrough},
}

type companyRepo struct {
	q db.Querier
}

// NewCompanyRepo returns a CompanyRepository backed by q.
func NewCompanyRepo(q db.Querier) CompanyRepository {
	return &companyRepo{q: q}
}

const (
	companyColumns = `handle, name, description, num_employees, logo_url`

	sqlInsertCompany = `
		INSERT INTO companies (handle, name, description, num_employees, logo_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + companyColumns

	sqlGetCompany = `
		SELECT ` + companyColumns + `
		FROM   companies
		WHERE  handle = $1`

	sqlSelectCompanies = `
		SELECT ` + companyColumns + `
		FROM   companies`

	sqlCompaniesOrder = `
		ORDER  BY name`

	sqlCompanyJobs = `
		SELECT ` + jobColumns + `
		FROM   jobs
		WHERE  company_handle = $1
		ORDER  BY id`

	sqlDeleteCompany = `
		DELETE FROM companies WHERE handle = $1`
)

// Create adds a company. A taken handle or name is db.ErrDuplicateKey.
func (r *companyRepo) Create(ctx context.Context, params models.CreateCompanyParams) (*models.Company, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	row := r.q.QueryRow(ctx, sqlInsertCompany,
		params.Handle, params.Name, params.Description, params.NumEmployees, params.LogoURL)
	c, err := scanCompany(row)
	if err != nil {
		return nil, classifyCompanyWrite(err, params.Handle)
	}
	return c, nil
}

// Get returns the company with its jobs, or db.ErrNotFound.
func (r *companyRepo) Get(ctx context.Context, handle string) (*models.CompanyDetail, error) {
	c, err := scanCompany(r.q.QueryRow(ctx, sqlGetCompany, handle))
	if err != nil {
		return nil, err
	}

	rows, err := r.q.Query(ctx, sqlCompanyJobs, handle)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	detail := &models.CompanyDetail{Company: *c, Jobs: make([]*models.Job, 0)}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		detail.Jobs = append(detail.Jobs, job)
	}
	return detail, rows.Err()
}

// FindAll returns every company ordered by name.
func (r *companyRepo) FindAll(ctx context.Context) ([]*models.Company, error) {
	return r.list(ctx, sqlSelectCompanies+sqlCompaniesOrder)
}

// FindMatching returns the companies matching criteria (see CompanyFilter).
// A numeric min_employees above max_employees is db.ErrInvalidArgument.
func (r *companyRepo) FindMatching(ctx context.Context, criteria db.Criteria) ([]*models.Company, error) {
	if err := checkEmployeeRange(criteria); err != nil {
		return nil, err
	}
	if unknown := CompanyFilter.Unknown(criteria); len(unknown) > 0 {
		slog.WarnContext(ctx, "repo/company: ignoring unknown filter keys", "keys", unknown)
	}
	where, ok := CompanyFilter.Compile(r.q.Dialect(), criteria)
	if !ok {
		return r.FindAll(ctx)
	}
	return r.list(ctx, sqlSelectCompanies+`
		WHERE  `+where.Conditions+sqlCompaniesOrder, where.Values...)
}

func checkEmployeeRange(criteria db.Criteria) error {
	rawMin, okMin := criteria["min_employees"]
	rawMax, okMax := criteria["max_employees"]
	if !okMin || !okMax {
		return nil
	}
	lo, errMin := cast.ToIntE(rawMin)
	hi, errMax := cast.ToIntE(rawMax)
	if errMin != nil || errMax != nil {
		return nil // left for the database to reject
	}
	if lo > hi {
		return db.InvalidArgument("min_employees (%d) cannot be greater than max_employees (%d)", lo, hi)
	}
	return nil
}

func (r *companyRepo) list(ctx context.Context, query string, args ...any) ([]*models.Company, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := make([]*models.Company, 0)
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// Update changes the set fields of a company, translating logical names
// through models.CompanyColumns.
func (r *companyRepo) Update(ctx context.Context, handle string, params models.UpdateCompanyParams) (*models.Company, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	d := r.q.Dialect()
	set, err := db.CompileSet(d, params.Updates(), models.CompanyColumns)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		UPDATE companies
		SET    %s
		WHERE  handle = %s
		RETURNING %s`,
		set.Columns, d.Placeholder(set.Next()), companyColumns)

	c, err := scanCompany(r.q.QueryRow(ctx, query, append(set.Values, handle)...))
	if err != nil {
		return nil, classifyCompanyWrite(err, handle)
	}
	return c, nil
}

// Remove deletes a company and, through the foreign key, its jobs.
func (r *companyRepo) Remove(ctx context.Context, handle string) error {
	res, err := r.q.Exec(ctx, sqlDeleteCompany, handle)
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

func scanCompany(row scanner) (*models.Company, error) {
	c := &models.Company{}
	err := row.Scan(&c.Handle, &c.Name, &c.Description, &c.NumEmployees, &c.LogoURL)
	if err != nil {
		return nil, fmt.Errorf("repo/company: %w", err)
	}
	return c, nil
}

var _ CompanyRepository = (*companyRepo)(nil)
