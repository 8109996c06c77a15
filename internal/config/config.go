// Package config loads questd settings.
//
// Values are layered: built-in defaults, then an optional TOML file, then
// QUESTD_* environment variables. Command-line flags are applied last by
// the CLI.
//
//	[db]
//	path = "questd.db"
//
//	[log]
//	level = "info"
//	format = "text"
//
//	[runner]
//	interval = "2h"
//	parallelism = 1
//	run_at_start = true
//
//	[fields]
//	timezone_offset = 7
//	item_cache_size = 256
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment override, e.g. QUESTD_DB_PATH.
const EnvPrefix = "QUESTD_"

// Config is the full questd configuration.
type Config struct {
	DB     DBConfig     `toml:"db" envPrefix:"DB_"`
	Log    LogConfig    `toml:"log" envPrefix:"LOG_"`
	Runner RunnerConfig `toml:"runner" envPrefix:"RUNNER_"`
	Fields FieldsConfig `toml:"fields" envPrefix:"FIELDS_"`
}

type DBConfig struct {
	Path string `toml:"path" env:"PATH"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level" env:"LEVEL"`
	Format    string     `toml:"format" env:"FORMAT"`
	AddSource bool       `toml:"add_source" env:"ADD_SOURCE"`
}

type RunnerConfig struct {
	Interval    Duration `toml:"interval" env:"INTERVAL"`
	Parallelism int      `toml:"parallelism" env:"PARALLELISM"`
	RunAtStart  bool     `toml:"run_at_start" env:"RUN_AT_START"`
}

type FieldsConfig struct {
	// TimezoneOffset is the company timezone in whole hours east of UTC.
	// Streaks and tenure are counted in local days.
	TimezoneOffset int `toml:"timezone_offset" env:"TIMEZONE_OFFSET"`
	ItemCacheSize  int `toml:"item_cache_size" env:"ITEM_CACHE_SIZE"`
}

// Location returns the fixed zone for TimezoneOffset.
func (c FieldsConfig) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.TimezoneOffset), c.TimezoneOffset*3600)
}

// Duration is a time.Duration written as a Go duration string ("90m").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML and env.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DB:  DBConfig{Path: "questd.db"},
		Log: LogConfig{Level: slog.LevelInfo, Format: "text"},
		Runner: RunnerConfig{
			Interval:    Duration{2 * time.Hour},
			Parallelism: 1,
			RunAtStart:  true,
		},
		Fields: FieldsConfig{TimezoneOffset: 7, ItemCacheSize: 256},
	}
}

// Load builds the configuration from defaults, the TOML file at path (if
// path is non-empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	dec := toml.NewDecoder(file)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// ParseEnv applies QUESTD_* environment overrides to cfg.
func ParseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.DB.Path == "" {
		errs = append(errs, errors.New("db.path must not be empty"))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format))
	}
	if c.Runner.Interval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("runner.interval must be positive, got %s", c.Runner.Interval))
	}
	if c.Runner.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("runner.parallelism must be at least 1, got %d", c.Runner.Parallelism))
	}
	if c.Fields.TimezoneOffset < -12 || c.Fields.TimezoneOffset > 14 {
		errs = append(errs, fmt.Errorf("fields.timezone_offset must be between -12 and 14, got %d", c.Fields.TimezoneOffset))
	}
	if c.Fields.ItemCacheSize < 1 {
		errs = append(errs, fmt.Errorf("fields.item_cache_size must be at least 1, got %d", c.Fields.ItemCacheSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// NewLogger builds a slog logger writing to w in the configured format.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level, AddSource: c.AddSource}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
