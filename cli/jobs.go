package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Skryldev/jobly/db"
	"github.com/Skryldev/jobly/models"
	"github.com/Skryldev/jobly/repo"
)

func (a *app) jobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "jobs",
		Aliases: []string{"job"},
		Short:   "List, inspect and edit job postings",
	}
	cmd.AddCommand(
		a.jobsListCommand(),
		a.jobsGetCommand(),
		a.jobsCreateCommand(),
		a.jobsUpdateCommand(),
		a.jobsDeleteCommand(),
	)
	return cmd
}

func (a *app) jobsListCommand() *cobra.Command {
	var filters []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first, optionally filtered",
		Example: `  jobly jobs list --title engineer --min-salary 90000
  jobly jobs list --has-equity
  jobly jobs list --filter title=eng --filter min_salary=100000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			criteria, err := parseFilters(filters)
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("title") {
				criteria["title"], _ = f.GetString("title")
			}
			if f.Changed("min-salary") {
				criteria["min_salary"], _ = f.GetInt("min-salary")
			}
			if f.Changed("has-equity") {
				criteria["has_equity"], _ = f.GetBool("has-equity")
			}

			ctx := cmd.Context()
			var jobs []*models.Job
			err = a.read(ctx, func() (err error) {
				jobs, err = repo.NewJobRepo(a.db).FindMatching(ctx, criteria)
				return err
			})
			if err != nil {
				return err
			}
			return a.printJobs(jobs)
		},
	}
	cmd.Flags().String("title", "", "case-insensitive substring of the title")
	cmd.Flags().Int("min-salary", 0, "minimum salary")
	cmd.Flags().Bool("has-equity", false, "only jobs offering equity")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "raw filter criterion as key=value (repeatable)")
	return cmd
}

func (a *app) jobsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			var job *models.Job
			err = a.read(ctx, func() (err error) {
				job, err = repo.NewJobRepo(a.db).Get(ctx, id)
				return err
			})
			if err != nil {
				return err
			}
			return a.printJob(job)
		},
	}
}

func (a *app) jobsCreateCommand() *cobra.Command {
	var params models.CreateJobParams
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Post a job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			if f.Changed("salary") {
				v, _ := f.GetInt("salary")
				params.Salary = &v
			}
			if f.Changed("equity") {
				v, _ := f.GetFloat64("equity")
				params.Equity = &v
			}
			job, err := repo.NewJobRepo(a.db).Create(cmd.Context(), params)
			if err != nil {
				return err
			}
			return a.printJob(job)
		},
	}
	cmd.Flags().StringVar(&params.Title, "title", "", "job title")
	cmd.Flags().StringVar(&params.CompanyHandle, "company", "", "handle of the posting company")
	cmd.Flags().Int("salary", 0, "salary")
	cmd.Flags().Float64("equity", 0, "equity share between 0 and 1")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func (a *app) jobsUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change the given fields of a job",
		Long:  "Only the flags passed are written; the id and company never change.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			var params models.UpdateJobParams
			f := cmd.Flags()
			if f.Changed("title") {
				v, _ := f.GetString("title")
				params.Title = &v
			}
			if f.Changed("salary") {
				v, _ := f.GetInt("salary")
				params.Salary = &v
			}
			if f.Changed("equity") {
				v, _ := f.GetFloat64("equity")
				params.Equity = &v
			}
			job, err := repo.NewJobRepo(a.db).Update(cmd.Context(), id, params)
			if err != nil {
				return err
			}
			return a.printJob(job)
		},
	}
	cmd.Flags().String("title", "", "new title")
	cmd.Flags().Int("salary", 0, "new salary")
	cmd.Flags().Float64("equity", 0, "new equity share")
	return cmd
}

func (a *app) jobsDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Remove a job",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			if ok, err := a.confirm(cmd, fmt.Sprintf("Delete job %d?", id)); err != nil || !ok {
				return err
			}
			if err := repo.NewJobRepo(a.db).Remove(cmd.Context(), id); err != nil {
				return err
			}
			return a.printDone("deleted", id, fmt.Sprintf("deleted job %d", id))
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	return cmd
}

func parseJobID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, db.InvalidArgument("invalid job id %q", s)
	}
	return id, nil
}

// parseFilters turns repeated key=value flags into raw criteria.
func parseFilters(pairs []string) (db.Criteria, error) {
	criteria := make(db.Criteria, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, db.InvalidArgument("filter %q is not key=value", p)
		}
		criteria[k] = v
	}
	return criteria, nil
}
