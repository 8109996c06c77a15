package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questd.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "questd.db", cfg.DB.Path)
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 2*time.Hour, cfg.Runner.Interval.Duration)
	assert.Equal(t, 1, cfg.Runner.Parallelism)
	assert.True(t, cfg.Runner.RunAtStart)
	assert.Equal(t, 7, cfg.Fields.TimezoneOffset)
	assert.Equal(t, 256, cfg.Fields.ItemCacheSize)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
[db]
path = "/var/lib/questd/hr.db"

[log]
level = "debug"
format = "json"

[runner]
interval = "30m"
parallelism = 4
run_at_start = false

[fields]
timezone_offset = 9
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/questd/hr.db", cfg.DB.Path)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 30*time.Minute, cfg.Runner.Interval.Duration)
	assert.Equal(t, 4, cfg.Runner.Parallelism)
	assert.False(t, cfg.Runner.RunAtStart)
	assert.Equal(t, 9, cfg.Fields.TimezoneOffset)
	assert.Equal(t, 256, cfg.Fields.ItemCacheSize, "unset keys keep defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[db]
path = "file.db"
[runner]
interval = "30m"
`)
	t.Setenv("QUESTD_DB_PATH", "env.db")
	t.Setenv("QUESTD_RUNNER_INTERVAL", "5m")
	t.Setenv("QUESTD_LOG_LEVEL", "warn")
	t.Setenv("QUESTD_FIELDS_ITEM_CACHE_SIZE", "32")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.DB.Path)
	assert.Equal(t, 5*time.Minute, cfg.Runner.Interval.Duration)
	assert.Equal(t, slog.LevelWarn, cfg.Log.Level)
	assert.Equal(t, 32, cfg.Fields.ItemCacheSize)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
		want string
	}{
		{name: "unknown key", body: "[db]\nfile = \"x\"\n", want: "decode config"},
		{name: "bad duration", body: "[runner]\ninterval = \"soon\"\n", want: "decode config"},
		{name: "bad format", body: "[log]\nformat = \"xml\"\n", want: "log.format"},
		{name: "zero parallelism", body: "[runner]\nparallelism = 0\n", want: "runner.parallelism"},
		{name: "timezone out of range", body: "[fields]\ntimezone_offset = 20\n", want: "fields.timezone_offset"},
		{name: "bad env", body: "", env: map[string]string{"QUESTD_RUNNER_PARALLELISM": "many"}, want: "parse env:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open config")
}

func TestValidate_ReportsEverySetting(t *testing.T) {
	cfg := Default()
	cfg.DB.Path = ""
	cfg.Fields.ItemCacheSize = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db.path")
	assert.Contains(t, err.Error(), "fields.item_cache_size")
}

func TestFieldsConfig_Location(t *testing.T) {
	loc := FieldsConfig{TimezoneOffset: 7}.Location()
	_, offset := time.Date(2025, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 7*3600, offset)
	assert.Equal(t, "UTC+7", loc.String())
}

func TestLogConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	LogConfig{Level: slog.LevelWarn, Format: "json"}.NewLogger(&buf).Info("hidden")
	assert.Empty(t, buf.String())

	LogConfig{Level: slog.LevelWarn, Format: "json"}.NewLogger(&buf).Warn("shown", "quest_id", 3)
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
	assert.Contains(t, buf.String(), `"quest_id":3`)

	buf.Reset()
	LogConfig{Level: slog.LevelInfo, Format: "text"}.NewLogger(&buf).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
