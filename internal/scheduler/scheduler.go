// Package scheduler drives the periodic wind check and the daily jobs.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/smukkama/wind-alert-bot/internal/alarming"
	"github.com/smukkama/wind-alert-bot/internal/timer"
)

// CheckRunner is the scheduled wind check
type CheckRunner interface {
	Run(ctx context.Context) (alarming.RunReport, error)
}

// Options configures a Scheduler
type Options struct {
	// CheckInterval is how often the wind check runs
	CheckInterval time.Duration
	// RunTimeout bounds a single check
	RunTimeout time.Duration
	// Location is where daily job times are read
	Location *time.Location
}

// Scheduler runs the wind check every interval on gocron and the
// wall-clock daily jobs on a timer manager.
type Scheduler struct {
	cron    *gocron.Scheduler
	timers  *timer.Manager
	checker CheckRunner
	opts    Options
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler. timers runs the daily jobs.
func New(checker CheckRunner, timers *timer.Manager, opts Options, logger *slog.Logger) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = 10 * time.Minute
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = 2 * time.Minute
	}
	return &Scheduler{
		cron:    gocron.NewScheduler(opts.Location),
		timers:  timers,
		checker: checker,
		opts:    opts,
		logger:  logger,
	}
}

// Daily registers fn to run every day at the given wall-clock time
func (s *Scheduler) Daily(name string, at alarming.TimeOfDay, fn func(ctx context.Context) error) error {
	next := func(from time.Time) time.Time {
		return at.Next(from.In(s.opts.Location))
	}
	err := s.timers.ScheduleRecurring(name, next, func(ctx context.Context) {
		logger := s.logger.With("job", name)
		logger.Info("running daily job")
		if err := fn(ctx); err != nil {
			logger.Error("daily job failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	if due, ok := s.timers.NextDue(name); ok {
		s.logger.Info("daily job scheduled", "job", name, "next_run", due)
	}
	return nil
}

// Start schedules the wind check and starts both schedulers. The first
// check runs immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	minutes := int(s.opts.CheckInterval.Minutes())
	if minutes < 1 {
		minutes = 1
	}

	// Overlapping triggers are dropped by gocron; the checker's own lock
	// covers manual runs.
	_, err := s.cron.Every(minutes).Minutes().SingletonMode().Do(s.runCheck)
	if err != nil {
		return err
	}

	s.timers.Start(s.ctx)
	s.cron.StartAsync()
	s.logger.Info("scheduler started",
		"check_interval", s.opts.CheckInterval,
		"location", s.opts.Location.String())
	return nil
}

// Stop stops both schedulers and waits for running daily jobs
func (s *Scheduler) Stop() {
	s.cron.Stop()
	if s.cancel != nil {
		s.cancel()
	}
	s.timers.Stop()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runCheck() {
	ctx, cancel := context.WithTimeout(s.ctx, s.opts.RunTimeout)
	defer cancel()

	report, err := s.checker.Run(ctx)
	switch {
	case errors.Is(err, alarming.ErrRunInProgress):
		s.logger.Debug("wind check skipped, previous run still active")
	case errors.Is(err, alarming.ErrNoSnapshot):
		// Already logged by the checker
	case err != nil:
		s.logger.Error("wind check failed", "error", err)
	default:
		s.logger.Debug("wind check finished", "run_id", report.RunID, "outcome", string(report.Outcome))
	}
}
