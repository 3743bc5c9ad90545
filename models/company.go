package models

import "github.com/Skryldev/jobly/db"

// Company represents a row in the "companies" table, with storage column
// names translated back to logical field names.
type Company struct {
	Handle       string  `json:"handle"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	NumEmployees *int    `json:"numEmployees"`
	LogoURL      *string `json:"logoUrl"`
}

// CompanyDetail is a company together with its job postings.
type CompanyDetail struct {
	Company
	Jobs []*Job `json:"jobs"`
}

// CompanyColumns translates logical company fields to storage columns.
// Fields absent here share their storage name.
var CompanyColumns = map[string]string{
	"numEmployees": "num_employees",
	"logoUrl":      "logo_url",
}

// CreateCompanyParams holds the fields required to create a company.
type CreateCompanyParams struct {
	Handle       string  `json:"handle" mapstructure:"handle"`
	Name         string  `json:"name" mapstructure:"name"`
	Description  string  `json:"description" mapstructure:"description"`
	NumEmployees *int    `json:"numEmployees" mapstructure:"numEmployees"`
	LogoURL      *string `json:"logoUrl" mapstructure:"logoUrl"`
}

// Validate checks the business rules for a new company.
func (p CreateCompanyParams) Validate() error {
	if p.Handle == "" {
		return db.InvalidArgument("company handle is required")
	}
	if p.Name == "" {
		return db.InvalidArgument("company name is required")
	}
	return validateEmployees(p.NumEmployees)
}

// UpdateCompanyParams holds fields that can be updated. Nil pointers are left
// untouched; the handle is immutable.
type UpdateCompanyParams struct {
	Name         *string
	Description  *string
	NumEmployees *int
	LogoURL      *string
}

// Validate checks the business rules for the fields being changed.
func (p UpdateCompanyParams) Validate() error {
	if p.Name != nil && *p.Name == "" {
		return db.InvalidArgument("company name must not be empty")
	}
	return validateEmployees(p.NumEmployees)
}

// Updates lists the set fields under their logical names, in declaration
// order.
func (p UpdateCompanyParams) Updates() db.Updates {
	var u db.Updates
	if p.Name != nil {
		u = u.Set("name", *p.Name)
	}
	if p.Description != nil {
		u = u.Set("description", *p.Description)
	}
	if p.NumEmployees != nil {
		u = u.Set("numEmployees", *p.NumEmployees)
	}
	if p.LogoURL != nil {
		u = u.Set("logoUrl", *p.LogoURL)
	}
	return u
}

func validateEmployees(n *int) error {
	if n != nil && *n < 0 {
		return db.InvalidArgument("numEmployees must not be negative, got %d", *n)
	}
	return nil
}
