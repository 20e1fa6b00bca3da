// Command bot runs the wind alert bot: the Telegram command loop, the
// scheduled wind check and the daily forecast.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smukkama/wind-alert-bot/internal/alarming"
	"github.com/smukkama/wind-alert-bot/internal/app"
	"github.com/smukkama/wind-alert-bot/internal/bot"
	"github.com/smukkama/wind-alert-bot/internal/database"
	"github.com/smukkama/wind-alert-bot/internal/message"
	"github.com/smukkama/wind-alert-bot/internal/notification"
	"github.com/smukkama/wind-alert-bot/internal/observability"
	"github.com/smukkama/wind-alert-bot/internal/queue"
	"github.com/smukkama/wind-alert-bot/internal/scheduler"
	"github.com/smukkama/wind-alert-bot/internal/stats"
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
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	logger := app.Logger(cfg)
	logger.Info("starting wind alert bot",
		"recipients", len(cfg.Telegram.ChatIDs),
		"threshold_knots", cfg.Alert.ThresholdKnots,
		"window", cfg.Alert.StartTime+"-"+cfg.Alert.EndTime,
		"timezone", cfg.Alert.Timezone)

	ctx, stop := app.SignalContext()
	defer stop()

	db, err := database.Connect(ctx, cfg.Database.ConnectionString(), logger)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("connected to database")

	if err := db.RunMigrations(ctx, cfg.Database.MigrationsDir); err != nil {
		return err
	}

	redisClient, err := app.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("failed to authorise Telegram bot: %w", err)
	}
	logger.Info("authorised on Telegram", "username", api.Self.UserName)

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()
	source := app.WeatherClient(cfg.Weather, logger)
	sender := notification.NewTelegramSender(api, logger)
	recorder := stats.NewRecorder(db.RepositoryFactory(), clock)
	prefs := bot.NewRedisPreferences(redisClient)

	checkerCfg, err := app.CheckerConfig(cfg)
	if err != nil {
		return err
	}

	deps := alarming.CheckerDeps{
		Source:    source,
		Cooldowns: alarming.NewRedisCooldownStore(redisClient, app.CooldownTTL(checkerCfg.Cooldown)),
		Sender:    sender,
		Recorder:  recorder,
		Locales:   prefs,
		Metrics:   metrics,
		Logger:    logger,
		Clock:     clock,
	}
	if cfg.Kafka.Enabled() {
		producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts)
		defer producer.Close()
		deps.Events = producer
		logger.Info("alert events enabled", "topic", cfg.Kafka.TopicAlerts)
	}
	checker := alarming.NewChecker(checkerCfg, deps)

	forecast := alarming.NewForecastSender(checkerCfg.Recipients, checkerCfg.DefaultLocale, source, sender, prefs, logger)
	forecastAt, err := alarming.ParseTimeOfDay(cfg.Schedule.ForecastTime)
	if err != nil {
		return fmt.Errorf("FORECAST_TIME: %w", err)
	}

	timers := timer.NewManager(1, clock, logger)
	sched := scheduler.New(checker, timers, scheduler.Options{
		CheckInterval: time.Duration(cfg.Schedule.CheckIntervalMinutes) * time.Minute,
		RunTimeout:    cfg.Schedule.RunTimeout,
		Location:      checkerCfg.Location,
	}, logger)

	err = sched.Daily("daily_forecast", forecastAt, func(ctx context.Context) error {
		_, err := forecast.Run(ctx)
		return err
	})
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	if cfg.HTTP.MetricsAddr != "" {
		metricsSrv := serveMetrics(cfg.HTTP.MetricsAddr, logger)
		defer metricsSrv.Shutdown(context.Background())
	}

	handler := bot.NewHandler(bot.Options{
		AlertChatIDs:   cfg.Telegram.ChatIDs,
		AdminIDs:       cfg.Telegram.AdminIDs,
		DefaultLocale:  message.ParseLocale(cfg.Telegram.DefaultLocale),
		ThresholdKnots: cfg.Alert.ThresholdKnots,
		ChatLocales:    app.ChatLocales(cfg.Telegram),
	}, bot.Deps{
		Source:   source,
		Sender:   sender,
		Prefs:    prefs,
		Recorder: recorder,
		Checker:  checker,
		Metrics:  metrics,
		Logger:   logger,
	})

	logger.Info("wind alert bot is running")
	err = bot.NewPoller(api, handler, 4, logger).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("shutting down gracefully")
	return nil
}

func serveMetrics(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}
