// Package cli implements the jobly command tree on top of the repositories.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Skryldev/jobly/config"
	"github.com/Skryldev/jobly/db"
)

// Exit codes returned by Run.
const (
	ExitOK              = 0
	ExitFailure         = 1
	ExitInvalidArgument = 2
	ExitNotFound        = 3
	ExitDuplicate       = 4
)

// Options wires the command tree to its environment. Zero fields fall back to
// the OS filesystem, stdout/stderr and an interactive survey prompt.
type Options struct {
	Fs      afero.Fs
	Stdout  io.Writer
	Stderr  io.Writer
	Confirm func(message string) (bool, error)
}

func (o Options) withDefaults() Options {
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Confirm == nil {
		o.Confirm = surveyConfirm
	}
	return o
}

func surveyConfirm(message string) (bool, error) {
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok)
	return ok, err
}

// app is the state shared by every command of one invocation.
type app struct {
	opts   Options
	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
	db     *db.DB
	stats  db.QueryStats
}

// Run executes the jobly command line and returns the process exit code.
func Run(ctx context.Context, args []string, opts Options) int {
	a := &app{opts: opts.withDefaults(), v: viper.New()}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.opts.Stdout)
	root.SetErr(a.opts.Stderr)

	err := root.ExecuteContext(ctx)
	a.close()
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(a.opts.Stderr, "Error: %v\n", err)
	}
	return ExitCode(err)
}

// ExitCode classifies err into a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case db.IsInvalidArgument(err):
		return ExitInvalidArgument
	case db.IsNotFound(err):
		return ExitNotFound
	case db.IsDuplicateKey(err):
		return ExitDuplicate
	}
	return ExitFailure
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "jobly",
		Short: "Manage companies and job postings",
		Long: `jobly reads and writes the companies and jobs tables.

Settings come from flags, JOBLY_* environment variables, .env files and
.jobly.yaml (searched in ., $HOME and $HOME/.config/jobly).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !needsDatabase(cmd) {
				return nil
			}
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a.logger == nil {
				return
			}
			s := a.stats.Snapshot()
			attrs := []any{
				"command", cmd.CommandPath(),
				"statements", s.Statements,
				"failures", s.Failures,
				"rows_affected", s.RowsAffected,
				"elapsed", s.Elapsed,
			}
			if a.db != nil {
				pool := a.db.Stats()
				attrs = append(attrs,
					"open_connections", pool.OpenConnections,
					"in_use", pool.InUse,
					"wait_count", pool.WaitCount)
			}
			a.logger.Debug("cli: statements executed", attrs...)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default .jobly.yaml in ., $HOME or $HOME/.config/jobly)")
	pf.String("database-url", "", "database URL or DSN")
	pf.String("driver", "", "database/sql driver: postgres, pgx or sqlite3")
	pf.String("log-level", "", "debug, info, warn or error")
	pf.StringP("output", "o", "table", "output format: table or json")

	for key, flag := range map[string]string{
		"config":          "config",
		"database.url":    "database-url",
		"database.driver": "driver",
		"log.level":       "log-level",
		"output":          "output",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(a.jobsCommand(), a.companiesCommand(), a.seedCommand())
	return root
}

// needsDatabase is false for cobra's built-in help and completion commands.
func needsDatabase(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

func (a *app) setup() error {
	cfg, err := config.Load(a.v, a.opts.Fs)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	switch out := a.v.GetString("output"); out {
	case outputTable, outputJSON:
	default:
		return db.InvalidArgument("unknown output format %q (want table or json)", out)
	}

	logger, err := cfg.Log.NewLogger(a.opts.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	dbCfg, err := cfg.Database.DBConfig(
		db.NewLogHook(db.LogHookConfig{
			Logger:             logger,
			SlowQueryThreshold: cfg.Database.SlowQuery,
			LogArgs:            cfg.Log.Args,
		}),
		db.NewMetricsHook(&a.stats),
	)
	if err != nil {
		return err
	}
	database, err := db.Open(dbCfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	a.cfg, a.logger, a.db = cfg, logger, database
	return nil
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("cli: close database", "error", err)
	}
}

// read runs an idempotent query with the configured retry policy.
func (a *app) read(ctx context.Context, fn func() error) error {
	return db.WithRetry(ctx, a.cfg.Retry.DBRetry(), fn)
}

// confirm asks before a destructive command unless --yes was given.
func (a *app) confirm(cmd *cobra.Command, message string) (bool, error) {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true, nil
	}
	ok, err := a.opts.Confirm(message)
	if err != nil && !errors.Is(err, terminal.InterruptErr) {
		return false, err
	}
	if !ok {
		fmt.Fprintln(a.opts.Stderr, "aborted")
	}
	return ok, nil
}
