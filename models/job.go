package models

import "github.com/Skryldev/jobly/db"

// Job represents a row in the "jobs" table.
type Job struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Salary        *int     `json:"salary"`
	Equity        *float64 `json:"equity"`
	CompanyHandle string   `json:"companyHandle"`
}

// CreateJobParams holds the fields required to post a job.
type CreateJobParams struct {
	Title         string   `json:"title" mapstructure:"title"`
	Salary        *int     `json:"salary" mapstructure:"salary"`
	Equity        *float64 `json:"equity" mapstructure:"equity"`
	CompanyHandle string   `json:"companyHandle" mapstructure:"companyHandle"`
}

// Validate checks the business rules for a new posting: a title, a positive
// salary and an equity share within [0, 1].
func (p CreateJobParams) Validate() error {
	if p.Title == "" {
		return db.InvalidArgument("job title is required")
	}
	if p.CompanyHandle == "" {
		return db.InvalidArgument("companyHandle is required")
	}
	return validateCompensation(p.Salary, p.Equity)
}

// UpdateJobParams holds fields that can be updated. The id and the owning
// company cannot change.
type UpdateJobParams struct {
	Title  *string
	Salary *int
	Equity *float64
}

// Validate checks the business rules for the fields being changed.
func (p UpdateJobParams) Validate() error {
	if p.Title != nil && *p.Title == "" {
		return db.InvalidArgument("job title must not be empty")
	}
	return validateCompensation(p.Salary, p.Equity)
}

// Updates lists the set fields under their logical names.
func (p UpdateJobParams) Updates() db.Updates {
	var u db.Updates
	if p.Title != nil {
		u = u.Set("title", *p.Title)
	}
	if p.Salary != nil {
		u = u.Set("salary", *p.Salary)
	}
	if p.Equity != nil {
		u = u.Set("equity", *p.Equity)
	}
	return u
}

func validateCompensation(salary *int, equity *float64) error {
	if salary != nil && *salary <= 0 {
		return db.InvalidArgument("salary must be positive, got %d", *salary)
	}
	if equity != nil && (*equity < 0 || *equity > 1) {
		return db.InvalidArgument("equity must be within [0, 1], got %g", *equity)
	}
	return nil
}
