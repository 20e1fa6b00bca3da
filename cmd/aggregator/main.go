// Command aggregator rolls the weather log up into daily summaries.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/smukkama/wind-alert-bot/internal/aggregation"
	"github.com/smukkama/wind-alert-bot/internal/alarming"
	"github.com/smukkama/wind-alert-bot/internal/app"
	"github.com/smukkama/wind-alert-bot/internal/database"
	"github.com/smukkama/wind-alert-bot/internal/timer"
	"github.com/smukkama/wind-alert-bot/pkg/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger := app.Logger(cfg)
	logger.Info("starting aggregation service", "daily_time", cfg.Aggregation.DailyTime)

	ctx, stop := app.SignalContext()
	defer stop()

	db, err := database.Connect(ctx, cfg.Database.ConnectionString(), logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, cfg.Database.MigrationsDir); err != nil {
		return err
	}

	at, err := alarming.ParseTimeOfDay(cfg.Aggregation.DailyTime)
	if err != nil {
		return fmt.Errorf("AGGREGATION_DAILY_TIME: %w", err)
	}

	clock := clockwork.NewRealClock()
	daily := aggregation.NewDailyAggregator(db, clock, logger)

	timers := timer.NewManager(1, clock, logger)
	timers.Start(ctx)
	defer timers.Stop()

	if err := scheduleDaily(timers, daily, at, logger); err != nil {
		return err
	}
	if due, ok := timers.NextDue("daily-aggregation"); ok {
		logger.Info("next daily aggregation", "at", due)
	}

	logger.Info("aggregation service is running")
	<-ctx.Done()

	logger.Info("shutting down gracefully")
	return nil
}

// scheduleDaily runs the previous UTC day's rollup every day at the given UTC time
func scheduleDaily(tm *timer.Manager, agg *aggregation.DailyAggregator, at alarming.TimeOfDay, logger *slog.Logger) error {
	next := func(from time.Time) time.Time {
		return at.Next(from.UTC())
	}
	return tm.ScheduleRecurring("daily-aggregation", next, func(ctx context.Context) {
		logger.Info("running daily aggregation")
		if err := agg.AggregatePreviousDay(ctx); err != nil {
			logger.Error("daily aggregation failed", "error", err)
		}
	})
}
