// Command migrate applies the embedded jobly schema migrations.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Skryldev/jobly/config"
	"github.com/Skryldev/jobly/migrations"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	var m *migrate.Migrate

	root := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded jobly schema migrations",
		Long: `migrate runs the schema migrations compiled into this binary against
database.url (JOBLY_DATABASE_URL or DATABASE_URL), which must be a
postgres:// URL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			cfg, err := config.Load(v, afero.NewOsFs())
			if err != nil {
				return err
			}
			logger, err := cfg.Log.NewLogger(os.Stderr)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			if cfg.Database.URL == "" {
				return errors.New("database URL is required (--database-url, JOBLY_DATABASE_URL or DATABASE_URL)")
			}

			src, err := migrations.Source()
			if err != nil {
				return err
			}
			m, err = migrate.NewWithSourceInstance("iofs", src, cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("migration init failed: %w", err)
			}
			m.Log = &migrateLogger{verbose: cfg.Log.Level == "debug"}
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if m == nil {
				return nil
			}
			srcErr, dbErr := m.Close()
			return errors.Join(srcErr, dbErr)
		},
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "config file")
	pf.String("database-url", "", "postgres:// database URL")
	_ = v.BindPFlag("config", pf.Lookup("config"))
	_ = v.BindPFlag("database.url", pf.Lookup("database-url"))

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("up failed: %w", err)
				}
				slog.Info("migrations: up completed")
				return nil
			},
		},
		&cobra.Command{
			Use:   "down [N]",
			Short: "Roll back N migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				steps := 1
				if len(args) > 0 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n < 1 {
						return fmt.Errorf("down: invalid steps argument %q", args[0])
					}
					steps = n
				}
				if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("down failed: %w", err)
				}
				slog.Info("migrations: down completed", "steps", steps)
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current migration version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ver, dirty, err := m.Version()
				if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
					return fmt.Errorf("version failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version: %d  dirty: %v\n", ver, dirty)
				return nil
			},
		},
		&cobra.Command{
			Use:   "force V",
			Short: "Set the migration version without running it (clears dirty state)",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				ver, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("force: invalid version %q", args[0])
				}
				if err := m.Force(ver); err != nil {
					return fmt.Errorf("force failed: %w", err)
				}
				slog.Info("migrations: forced", "version", ver)
				return nil
			},
		},
		dropCommand(&m),
	)
	return root
}

func dropCommand(m **migrate.Migrate) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop every table (development only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				if err := survey.AskOne(&survey.Confirm{
					Message: "Drop will destroy all tables. Continue?",
				}, &yes); err != nil {
					return err
				}
			}
			if !yes {
				fmt.Fprintln(cmd.ErrOrStderr(), "aborted")
				return nil
			}
			if err := (*m).Drop(); err != nil {
				return fmt.Errorf("drop failed: %w", err)
			}
			slog.Info("migrations: all tables dropped")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

type migrateLogger struct{ verbose bool }

func (l *migrateLogger) Printf(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...))
}
func (l *migrateLogger) Verbose() bool { return l.verbose }
