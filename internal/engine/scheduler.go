package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kritdbb/DobyHR/internal/ir"
)

// DefaultInterval is how often the scheduler runs quests.
const DefaultInterval = 2 * time.Hour

// Pass is one evaluation pass. Implemented by *Runner.
type Pass interface {
	Run(ctx context.Context) (ir.RunSummary, error)
}

// Scheduler runs a Pass on a fixed interval.
//
// A tick that arrives while the previous scheduled pass is still running is
// skipped. Passes started elsewhere (a manual evaluate) are not tracked.
type Scheduler struct {
	pass       Pass
	interval   time.Duration
	runAtStart bool
	logger     *slog.Logger

	running sync.Mutex
	wg      sync.WaitGroup
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithRunAtStart runs a pass immediately when Start is called.
func WithRunAtStart(v bool) SchedulerOption {
	return func(s *Scheduler) {
		s.runAtStart = v
	}
}

// WithSchedulerLogger sets the logger. Defaults to slog.Default().
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// NewScheduler creates a Scheduler. A non-positive interval becomes
// DefaultInterval.
func NewScheduler(p Pass, interval time.Duration, opts ...SchedulerOption) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Scheduler{
		pass:     p,
		interval: interval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start blocks, running a pass every interval until ctx is cancelled. It
// waits for an in-flight pass to return before returning ctx.Err().
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler starting", "interval", s.interval, "run_at_start", s.runAtStart)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.runAtStart {
		s.Trigger(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping: context cancelled")
			s.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			s.Trigger(ctx)
		}
	}
}

// Trigger starts a pass in the background unless one is already running.
// It reports whether a pass was started.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if !s.running.TryLock() {
		s.logger.Warn("previous scheduled run still active, skipping tick")
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Unlock()

		summary, err := s.pass.Run(ctx)
		if err != nil {
			s.logger.Error("scheduled run failed", "run_id", summary.RunID, "error", err)
			return
		}
		s.logger.Info("scheduled run complete",
			"run_id", summary.RunID,
			"awarded", summary.Awarded,
			"failures", len(summary.Failures),
		)
	}()
	return true
}

// Wait blocks until any in-flight pass returns.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
