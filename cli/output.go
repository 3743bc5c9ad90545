package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/Skryldev/jobly/models"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

var (
	jobHeader     = []string{"ID", "TITLE", "SALARY", "EQUITY", "COMPANY"}
	companyHeader = []string{"HANDLE", "NAME", "EMPLOYEES", "LOGO", "DESCRIPTION"}
)

func (a *app) json() bool { return a.v.GetString("output") == outputJSON }

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.opts.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printTable(header []string, rows [][]string) error {
	data := append(pterm.TableData{header}, rows...)
	s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.opts.Stdout, s)
	return err
}

// printDone reports a write that returns no record.
func (a *app) printDone(key string, value any, message string) error {
	if a.json() {
		return a.printJSON(map[string]any{key: value})
	}
	_, err := color.New(color.FgGreen).Fprintln(a.opts.Stdout, message)
	return err
}

func (a *app) printJobs(jobs []*models.Job) error {
	if a.json() {
		return a.printJSON(jobs)
	}
	return a.printTable(jobHeader, jobRows(jobs))
}

func (a *app) printJob(job *models.Job) error {
	if a.json() {
		return a.printJSON(job)
	}
	return a.printTable(jobHeader, jobRows([]*models.Job{job}))
}

func (a *app) printCompanies(companies []*models.Company) error {
	if a.json() {
		return a.printJSON(companies)
	}
	rows := make([][]string, 0, len(companies))
	for _, c := range companies {
		rows = append(rows, companyRow(c))
	}
	return a.printTable(companyHeader, rows)
}

func (a *app) printCompany(c *models.Company) error {
	if a.json() {
		return a.printJSON(c)
	}
	return a.printTable(companyHeader, [][]string{companyRow(c)})
}

func (a *app) printCompanyDetail(d *models.CompanyDetail) error {
	if a.json() {
		return a.printJSON(d)
	}
	if err := a.printTable(companyHeader, [][]string{companyRow(&d.Company)}); err != nil {
		return err
	}
	if len(d.Jobs) == 0 {
		_, err := fmt.Fprintln(a.opts.Stdout, "no jobs posted")
		return err
	}
	return a.printTable(jobHeader, jobRows(d.Jobs))
}

func jobRows(jobs []*models.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{
			strconv.FormatInt(j.ID, 10),
			j.Title,
			optional(j.Salary, strconv.Itoa),
			optional(j.Equity, func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }),
			j.CompanyHandle,
		})
	}
	return rows
}

func companyRow(c *models.Company) []string {
	return []string{
		c.Handle,
		c.Name,
		optional(c.NumEmployees, strconv.Itoa),
		optional(c.LogoURL, func(s string) string { return s }),
		c.Description,
	}
}

func optional[T any](v *T, format func(T) string) string {
	if v == nil {
		return "-"
	}
	return format(*v)
}
