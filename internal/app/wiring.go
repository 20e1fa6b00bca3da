// Package app builds the collaborators shared by the command binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smukkama/wind-alert-bot/internal/alarming"
	"github.com/smukkama/wind-alert-bot/internal/message"
	"github.com/smukkama/wind-alert-bot/internal/observability"
	"github.com/smukkama/wind-alert-bot/internal/weather/openweather"
	"github.com/smukkama/wind-alert-bot/pkg/config"
)

// Logger builds the process logger from configuration
func Logger(cfg *config.Config) *slog.Logger {
	return observability.NewLogger(observability.LogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})
}

// SignalContext is cancelled on SIGINT or SIGTERM
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ConnectRedis opens a client and checks the server is reachable
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// WeatherClient builds the OpenWeather source for the configured location
func WeatherClient(cfg config.WeatherConfig, logger *slog.Logger) *openweather.Client {
	return openweather.NewClient(openweather.Options{
		APIKey:    cfg.APIKey,
		Latitude:  cfg.Latitude,
		Longitude: cfg.Longitude,
		BaseURL:   cfg.BaseURL,
		HTTP:      &http.Client{Timeout: cfg.Timeout},
	}, logger)
}

// ChatLocales converts RECIPIENT_LOCALES into message locales
func ChatLocales(cfg config.TelegramConfig) map[int64]message.Locale {
	out := make(map[int64]message.Locale, len(cfg.RecipientLocales))
	for id, code := range cfg.RecipientLocales {
		out[id] = message.ParseLocale(code)
	}
	return out
}

// Recipients lists the alert chats with their configured locales
func Recipients(cfg config.TelegramConfig) []alarming.Recipient {
	locales := ChatLocales(cfg)
	out := make([]alarming.Recipient, 0, len(cfg.ChatIDs))
	for _, id := range cfg.ChatIDs {
		out = append(out, alarming.Recipient{ID: id, Locale: locales[id]})
	}
	return out
}

// CheckerConfig resolves the alert window, timezone and recipients
func CheckerConfig(cfg *config.Config) (alarming.CheckerConfig, error) {
	start, err := alarming.ParseTimeOfDay(cfg.Alert.StartTime)
	if err != nil {
		return alarming.CheckerConfig{}, fmt.Errorf("ALERT_START_TIME: %w", err)
	}
	end, err := alarming.ParseTimeOfDay(cfg.Alert.EndTime)
	if err != nil {
		return alarming.CheckerConfig{}, fmt.Errorf("ALERT_END_TIME: %w", err)
	}
	loc, err := cfg.Alert.Location()
	if err != nil {
		return alarming.CheckerConfig{}, fmt.Errorf("ALERT_TIMEZONE: %w", err)
	}

	return alarming.CheckerConfig{
		Recipients:     Recipients(cfg.Telegram),
		DefaultLocale:  message.ParseLocale(cfg.Telegram.DefaultLocale),
		Window:         alarming.Window{Start: start, End: end},
		ThresholdKnots: cfg.Alert.ThresholdKnots,
		Cooldown:       cfg.Alert.Cooldown(),
		Location:       loc,
		Parallelism:    cfg.Alert.Parallelism,
	}, nil
}

// CooldownTTL keeps cooldown keys at least as long as the cooldown itself
func CooldownTTL(cooldown time.Duration) time.Duration {
	return max(alarming.DefaultCooldownTTL, cooldown)
}
