package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Skryldev/jobly/db"
	"github.com/Skryldev/jobly/models"
	"github.com/Skryldev/jobly/repo"
)

// seedFile is the document read by the seed command.
type seedFile struct {
	Companies []models.CreateCompanyParams `mapstructure:"companies"`
	Jobs      []models.CreateJobParams     `mapstructure:"jobs"`
}

func (a *app) seedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE",
		Short: "Load companies and jobs from a YAML, JSON or TOML file",
		Long: `seed inserts every company and job listed in FILE in a single
transaction: either all of them are stored or none is.

  companies:
    - handle: acme
      name: Acme
      numEmployees: 120
  jobs:
    - title: Engineer
      salary: 120000
      equity: 0.01
      companyHandle: acme`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readSeed(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var jobs []*models.Job
			err = a.db.ExecTx(ctx, func(tx *db.Tx) error {
				companies := repo.NewCompanyRepo(tx)
				for _, c := range doc.Companies {
					if _, err := companies.Create(ctx, c); err != nil {
						return err
					}
				}
				jobs, err = repo.NewJobRepo(tx).CreateMany(ctx, doc.Jobs)
				return err
			})
			if err != nil {
				return err
			}

			a.logger.Info("cli: seeded", "file", args[0], "companies", len(doc.Companies), "jobs", len(jobs))
			return a.printDone("seeded",
				map[string]int{"companies": len(doc.Companies), "jobs": len(jobs)},
				fmt.Sprintf("seeded %d companies and %d jobs", len(doc.Companies), len(jobs)))
		},
	}
}

func (a *app) readSeed(path string) (*seedFile, error) {
	v := viper.New()
	v.SetFs(a.opts.Fs)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, db.InvalidArgument("read seed file %s: %v", path, err)
	}
	var doc seedFile
	if err := v.Unmarshal(&doc); err != nil {
		return nil, db.InvalidArgument("decode seed file %s: %v", path, err)
	}
	return &doc, nil
}
