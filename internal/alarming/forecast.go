package alarming

import (
	"context"
	"log/slog"

	"github.com/smukkama/wind-alert-bot/internal/message"
	"github.com/smukkama/wind-alert-bot/internal/notification"
	"github.com/smukkama/wind-alert-bot/internal/weather"
)

// ForecastSender posts the daily forecast to every recipient. It has no
// cooldown; the daily schedule is the only rate limit.
type ForecastSender struct {
	recipients    []Recipient
	defaultLocale message.Locale
	source        weather.Source
	sender        notification.Sender
	locales       LocaleResolver
	logger        *slog.Logger
}

// NewForecastSender creates a forecast sender. locales may be nil.
func NewForecastSender(recipients []Recipient, defaultLocale message.Locale, source weather.Source, sender notification.Sender, locales LocaleResolver, logger *slog.Logger) *ForecastSender {
	return &ForecastSender{
		recipients:    recipients,
		defaultLocale: message.ParseLocale(string(defaultLocale)),
		source:        source,
		sender:        sender,
		locales:       locales,
		logger:        logger,
	}
}

// Run fetches once and sends the forecast. It returns how many
// recipients were reached; delivery failures are logged per recipient.
func (f *ForecastSender) Run(ctx context.Context) (int, error) {
	snap, ok := f.source.FetchCurrent(ctx)
	if !ok || snap == nil {
		f.logger.Warn("no weather data for daily forecast")
		return 0, ErrNoSnapshot
	}

	sent := 0
	for _, r := range f.recipients {
		locale := f.localeFor(ctx, r)
		text := message.Format(*snap, message.KindDailyForecast, locale)

		if err := f.sender.Send(ctx, r.ID, text, message.ParseModeMarkdown); err != nil {
			f.logger.Error("failed to send daily forecast", "recipient_id", r.ID, "error", err)
			continue
		}
		sent++
	}

	f.logger.Info("daily forecast sent", "sent", sent, "recipients", len(f.recipients))
	return sent, nil
}

func (f *ForecastSender) localeFor(ctx context.Context, r Recipient) message.Locale {
	if f.locales != nil {
		if l, ok := f.locales.LocaleFor(ctx, r.ID); ok && message.IsSupported(string(l)) {
			return l
		}
	}
	if message.IsSupported(string(r.Locale)) {
		return r.Locale
	}
	return f.defaultLocale
}
