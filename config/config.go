// Package config loads jobly settings from, in rising precedence, built-in
// defaults, a .jobly.yaml file, .env files, JOBLY_* environment variables and
// command-line flags bound into the same viper instance.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/Skryldev/jobly/db"
)

const (
	// EnvPrefix prefixes every environment variable jobly reads.
	EnvPrefix = "JOBLY"

	// FileName is the config file base name searched for in the config paths.
	FileName = ".jobly"
)

// Config is the fully resolved configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Retry    RetryConfig    `mapstructure:"retry"`
}

// DatabaseConfig describes how to reach the database. URL wins over the
// structured fields when both are set.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timeout         time.Duration `mapstructure:"timeout"`
	SlowQuery       time.Duration `mapstructure:"slow_query"`
}

// LogConfig selects the slog handler and level.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Args logs bound statement parameters. Development only.
	Args bool `mapstructure:"args"`
}

// RetryConfig governs retries of read commands on transient errors.
type RetryConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Delay    time.Duration `mapstructure:"delay"`
}

var defaults = map[string]any{
	"database.url":                "",
	"database.driver":             "postgres",
	"database.host":               "",
	"database.port":               0,
	"database.user":               "",
	"database.password":           "",
	"database.name":               "",
	"database.sslmode":            "",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     10,
	"database.conn_max_lifetime":  5 * time.Minute,
	"database.conn_max_idle_time": 2 * time.Minute,
	"database.timeout":            10 * time.Second,
	"database.slow_query":         200 * time.Millisecond,
	"log.level":                   "info",
	"log.format":                  "text",
	"log.args":                    false,
	"retry.attempts":              3,
	"retry.delay":                 100 * time.Millisecond,
}

// Load resolves the configuration held by v, reading files through fs.
// An explicit config path (the "config" key, usually bound to --config) must
// exist; otherwise a missing .jobly.yaml is fine.
func Load(v *viper.Viper, fs afero.Fs) (*Config, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if err := loadDotenv(fs); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// the conventional DATABASE_URL is honoured when the prefixed one is unset
	if err := v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := readConfigFile(v, fs); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, fs afero.Fs) error {
	v.SetFs(fs)

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "jobly"))
	}

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// loadDotenv applies .env without overriding the environment, then
// .env.local over it.
func loadDotenv(fs afero.Fs) error {
	for _, f := range []struct {
		name     string
		override bool
	}{
		{".env", false},
		{".env.local", true},
	} {
		data, err := afero.ReadFile(fs, f.name)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("config: %s: %w", f.name, err)
		}
		vars, err := godotenv.Parse(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("config: parse %s: %w", f.name, err)
		}
		for k, val := range vars {
			if _, set := os.LookupEnv(k); set && !f.override {
				continue
			}
			if err := os.Setenv(k, val); err != nil {
				return fmt.Errorf("config: %s: %w", f.name, err)
			}
		}
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if !slices.Contains(db.Drivers(), c.Database.Driver) {
		return fmt.Errorf("config: unknown driver %q (have %s)",
			c.Database.Driver, strings.Join(db.Drivers(), ", "))
	}
	if c.Database.URL == "" && c.Database.Host == "" && c.Database.Name == "" {
		return errors.New("config: no database configured: set database.url (JOBLY_DATABASE_URL or DATABASE_URL) or database.host")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: unknown log format %q (want json or text)", c.Log.Format)
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("config: retry.attempts must be at least 1, got %d", c.Retry.Attempts)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Conversions into db types
// ─────────────────────────────────────────────────────────────────────────────

// DSN returns the URL as is, or builds one from the structured fields with
// the configured driver.
func (c DatabaseConfig) DSN() (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	drv, err := db.LookupDriver(c.Driver)
	if err != nil {
		return "", err
	}
	return drv.DSN(db.DriverOptions{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: c.Name,
		SSLMode:  c.SSLMode,
	})
}

// DBConfig converts the settings into a db.Config with the given hooks.
func (c DatabaseConfig) DBConfig(hooks ...db.Hook) (db.Config, error) {
	dsn, err := c.DSN()
	if err != nil {
		return db.Config{}, err
	}
	return db.Config{
		DSN:             dsn,
		DriverName:      c.Driver,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
		DefaultTimeout:  c.Timeout,
		Hooks:           hooks,
	}, nil
}

// DBRetry converts the settings into a db.RetryConfig.
func (c RetryConfig) DBRetry() db.RetryConfig {
	return db.RetryConfig{MaxAttempts: c.Attempts, Delay: c.Delay}
}

// ─────────────────────────────────────────────────────────────────────────────
// Logger
// ─────────────────────────────────────────────────────────────────────────────

// NewLogger builds the slog logger described by c, writing to w.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: unknown log level %q", s)
	}
	return level, nil
}
