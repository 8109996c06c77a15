package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/kritdbb/DobyHR/internal/config"
	"github.com/kritdbb/DobyHR/internal/engine"
	"github.com/kritdbb/DobyHR/internal/fields"
	"github.com/kritdbb/DobyHR/internal/reward"
	"github.com/kritdbb/DobyHR/internal/store"
)

// app is the wiring shared by every command that touches the database.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	registry *fields.Registry
}

// loadConfig layers --config, QUESTD_* and the global flags.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Database != "" {
		cfg.DB.Path = o.Database
	}
	if o.Verbose {
		cfg.Log.Level = slog.LevelDebug
	}
	return cfg, nil
}

// open loads the configuration and opens the store. Logs go to logOut.
func (o *RootOptions) open(logOut io.Writer) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := cfg.Log.NewLogger(logOut)

	logger.Debug("opening database", "path", cfg.DB.Path)
	st, err := store.Open(cfg.DB.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	reg := fields.NewRegistry(st,
		fields.WithLocation(cfg.Fields.Location()),
		fields.WithItemCacheSize(cfg.Fields.ItemCacheSize),
		fields.WithLogger(logger),
	)
	return &app{cfg: cfg, logger: logger, store: st, registry: reg}, nil
}

// Close closes the store, logging rather than returning the error.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}

// runner builds the evaluation runner from the configuration.
func (a *app) runner(opts ...engine.RunnerOption) *engine.Runner {
	base := []engine.RunnerOption{
		engine.WithParallelism(a.cfg.Runner.Parallelism),
		engine.WithLogger(a.logger),
	}
	return engine.NewRunner(a.store, a.registry, reward.NewApplier(), append(base, opts...)...)
}

// commandContext returns cmd's context, or Background when unset.
func commandContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
