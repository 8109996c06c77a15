package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kritdbb/DobyHR/internal/engine"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run quest evaluation on a schedule",
		Long: `Run the evaluation pass every runner.interval until interrupted.

A tick is skipped when the previous pass is still running. On SIGINT or
SIGTERM the in-flight pass is cancelled and awaited before exit.

Example:
  questd serve --config ./questd.toml
  QUESTD_RUNNER_INTERVAL=30m questd serve`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	a, err := opts.open(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	ctx, cancel := context.WithCancel(commandContext(cmd.Context()))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			a.logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	sched := engine.NewScheduler(a.runner(), a.cfg.Runner.Interval.Duration,
		engine.WithRunAtStart(a.cfg.Runner.RunAtStart),
		engine.WithSchedulerLogger(a.logger),
	)

	a.logger.Info("quest scheduler starting", "db", a.cfg.DB.Path, "interval", a.cfg.Runner.Interval)
	fmt.Fprintln(cmd.OutOrStdout(), "Quest scheduler started.")
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "scheduler error", err)
	}

	a.logger.Info("quest scheduler stopped gracefully")
	return nil
}
