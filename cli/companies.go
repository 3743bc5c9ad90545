package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Skryldev/jobly/models"
	"github.com/Skryldev/jobly/repo"
)

func (a *app) companiesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "companies",
		Aliases: []string{"company"},
		Short:   "List, inspect and edit companies",
	}
	cmd.AddCommand(
		a.companiesListCommand(),
		a.companiesGetCommand(),
		a.companiesCreateCommand(),
		a.companiesUpdateCommand(),
		a.companiesDeleteCommand(),
	)
	return cmd
}

func (a *app) companiesListCommand() *cobra.Command {
	var filters []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List companies by name, optionally filtered",
		Example: `  jobly companies list --name net --min-employees 100
  jobly companies list --filter max_employees=50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			criteria, err := parseFilters(filters)
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("name") {
				criteria["name"], _ = f.GetString("name")
			}
			if f.Changed("min-employees") {
				criteria["min_employees"], _ = f.GetInt("min-employees")
			}
			if f.Changed("max-employees") {
				criteria["max_employees"], _ = f.GetInt("max-employees")
			}

			ctx := cmd.Context()
			var companies []*models.Company
			err = a.read(ctx, func() (err error) {
				companies, err = repo.NewCompanyRepo(a.db).FindMatching(ctx, criteria)
				return err
			})
			if err != nil {
				return err
			}
			return a.printCompanies(companies)
		},
	}
	cmd.Flags().String("name", "", "case-insensitive substring of the name")
	cmd.Flags().Int("min-employees", 0, "minimum number of employees")
	cmd.Flags().Int("max-employees", 0, "maximum number of employees")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "raw filter criterion as key=value (repeatable)")
	return cmd
}

func (a *app) companiesGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get HANDLE",
		Short: "Show a company and its jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var detail *models.CompanyDetail
			err := a.read(ctx, func() (err error) {
				detail, err = repo.NewCompanyRepo(a.db).Get(ctx, args[0])
				return err
			})
			if err != nil {
				return err
			}
			return a.printCompanyDetail(detail)
		},
	}
}

func (a *app) companiesCreateCommand() *cobra.Command {
	var params models.CreateCompanyParams
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			if f.Changed("num-employees") {
				v, _ := f.GetInt("num-employees")
				params.NumEmployees = &v
			}
			if f.Changed("logo-url") {
				v, _ := f.GetString("logo-url")
				params.LogoURL = &v
			}
			c, err := repo.NewCompanyRepo(a.db).Create(cmd.Context(), params)
			if err != nil {
				return err
			}
			return a.printCompany(c)
		},
	}
	cmd.Flags().StringVar(&params.Handle, "handle", "", "lowercase unique handle")
	cmd.Flags().StringVar(&params.Name, "name", "", "unique company name")
	cmd.Flags().StringVar(&params.Description, "description", "", "description")
	cmd.Flags().Int("num-employees", 0, "number of employees")
	cmd.Flags().String("logo-url", "", "logo URL")
	_ = cmd.MarkFlagRequired("handle")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (a *app) companiesUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update HANDLE",
		Short: "Change the given fields of a company",
		Long:  "Only the flags passed are written; the handle never changes.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params models.UpdateCompanyParams
			f := cmd.Flags()
			if f.Changed("name") {
				v, _ := f.GetString("name")
				params.Name = &v
			}
			if f.Changed("description") {
				v, _ := f.GetString("description")
				params.Description = &v
			}
			if f.Changed("num-employees") {
				v, _ := f.GetInt("num-employees")
				params.NumEmployees = &v
			}
			if f.Changed("logo-url") {
				v, _ := f.GetString("logo-url")
				params.LogoURL = &v
			}
			c, err := repo.NewCompanyRepo(a.db).Update(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			return a.printCompany(c)
		},
	}
	cmd.Flags().String("name", "", "new name")
	cmd.Flags().String("description", "", "new description")
	cmd.Flags().Int("num-employees", 0, "new number of employees")
	cmd.Flags().String("logo-url", "", "new logo URL")
	return cmd
}

func (a *app) companiesDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete HANDLE",
		Aliases: []string{"rm"},
		Short:   "Remove a company and all of its jobs",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle := args[0]
			msg := fmt.Sprintf("Delete company %s and all of its jobs?", handle)
			if ok, err := a.confirm(cmd, msg); err != nil || !ok {
				return err
			}
			if err := repo.NewCompanyRepo(a.db).Remove(cmd.Context(), handle); err != nil {
				return err
			}
			return a.printDone("deleted", handle, "deleted company "+handle)
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	return cmd
}
