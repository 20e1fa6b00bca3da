// Command api serves bot usage stats and weather history over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/smukkama/wind-alert-bot/internal/aggregation"
	"github.com/smukkama/wind-alert-bot/internal/api"
	"github.com/smukkama/wind-alert-bot/internal/app"
	"github.com/smukkama/wind-alert-bot/internal/database"
	"github.com/smukkama/wind-alert-bot/internal/stats"
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
	logger.Info("starting stats API", "addr", cfg.HTTP.Addr)

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

	checks := map[string]api.HealthCheck{"postgres": db.PingContext}

	// Redis only backs the bot's cooldowns; the API reports it but does
	// not need it to serve.
	redisClient, err := app.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, health will report degraded", "error", err)
	} else {
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	clock := clockwork.NewRealClock()
	recorder := stats.NewRecorder(db.RepositoryFactory(), clock)
	summaries := aggregation.NewDailyAggregator(db, clock, logger)

	srv := api.NewServer(recorder, api.Options{
		Summaries: summaries,
		Checks:    checks,
		Gatherer:  prometheus.DefaultGatherer,
		Clock:     clock,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Info("stats API is running", "addr", cfg.HTTP.Addr)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
