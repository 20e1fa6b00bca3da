// Package bot answers chat commands: /start, /help, /weather, /forecast,
// /language and the admin-only /debug.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/smukkama/wind-alert-bot/internal/alarming"
	"github.com/smukkama/wind-alert-bot/internal/message"
	"github.com/smukkama/wind-alert-bot/internal/notification"
	"github.com/smukkama/wind-alert-bot/internal/observability"
	"github.com/smukkama/wind-alert-bot/internal/stats"
	"github.com/smukkama/wind-alert-bot/internal/weather"
)

// Preferences persists per-chat state
type Preferences interface {
	alarming.LocaleResolver
	SetLocale(ctx context.Context, chatID int64, locale message.Locale) error
	TrackActiveUser(ctx context.Context, userID int64) (int64, error)
}

// CheckRunner runs the wind check on demand
type CheckRunner interface {
	Run(ctx context.Context) (alarming.RunReport, error)
}

// Options holds the static bot settings
type Options struct {
	AlertChatIDs   []int64
	AdminIDs       []int64
	DefaultLocale  message.Locale
	ThresholdKnots float64

	// ChatLocales are configured per-chat locales, used until a chat
	// picks its own with /language.
	ChatLocales map[int64]message.Locale
}

// Deps are the collaborators of a Handler. Recorder, Checker and Metrics
// are optional.
type Deps struct {
	Source   weather.Source
	Sender   notification.Sender
	Prefs    Preferences
	Recorder *stats.Recorder
	Checker  CheckRunner
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

// Incoming is one chat message
type Incoming struct {
	ChatID int64
	UserID int64
	Text   string
}

// Handler turns chat messages into replies and usage stats
type Handler struct {
	opts Options
	Deps
}

// NewHandler creates a command handler
func NewHandler(opts Options, deps Deps) *Handler {
	if !message.IsSupported(string(opts.DefaultLocale)) {
		opts.DefaultLocale = message.DefaultLocale
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetricsForTesting()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Handler{opts: opts, Deps: deps}
}

type reply struct {
	text string
	mode message.ParseMode
}

// ParseCommand splits "/cmd@bot arg1 arg2" into its name and arguments.
// ok is false for plain text.
func ParseCommand(text string) (name string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	name = strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name), fields[1:], name != ""
}

// Handle answers one message. Failures inside a command are reported to
// the chat as a localized apology; the returned error is the delivery
// error, if any.
func (h *Handler) Handle(ctx context.Context, in Incoming) error {
	logger := h.Logger.With("chat_id", in.ChatID, "user_id", in.UserID)

	active, err := h.Prefs.TrackActiveUser(ctx, in.UserID)
	var activeUsers *int64
	if err != nil {
		logger.Warn("failed to track active user", "error", err)
	} else {
		activeUsers = stats.Int64(active)
	}

	locale := h.localeFor(ctx, in.ChatID)
	delta := stats.Delta{MessagesProcessed: stats.Int64(1), ActiveUsers: activeUsers}

	name, args, isCommand := ParseCommand(in.Text)
	label := "text"
	var r *reply

	if !isCommand {
		r = &reply{text: repliesFor(locale).plainText, mode: message.ParseModeMarkdown}
	} else {
		label = name
		r, err = h.dispatch(ctx, logger, in, name, args, &locale, &delta)
		if err != nil {
			logger.Error("command failed", "command", name, "error", err)
			r = &reply{text: repliesFor(locale).failure, mode: message.ParseModePlain}
		}
		if r == nil {
			logger.Warn("unknown command", "command", name)
			label = "unknown"
		}
	}
	h.Metrics.CommandsHandled.WithLabelValues(label).Inc()

	if h.Recorder != nil {
		if _, err := h.Recorder.UpdateOrCreateStats(ctx, delta); err != nil {
			logger.Error("failed to update bot stats", "error", err)
		}
	}

	if r == nil {
		return nil
	}
	if err := h.Sender.Send(ctx, in.ChatID, r.text, r.mode); err != nil {
		return fmt.Errorf("failed to reply to /%s: %w", name, err)
	}
	return nil
}

// dispatch returns a nil reply for unknown commands. locale is updated
// in place by /language so the confirmation uses the new language.
func (h *Handler) dispatch(ctx context.Context, logger *slog.Logger, in Incoming, name string, args []string, locale *message.Locale, delta *stats.Delta) (*reply, error) {
	t := repliesFor(*locale)

	switch name {
	case "start":
		delta.StartCommands = stats.Int64(1)
		text := t.greeting
		if !slices.Contains(h.opts.AlertChatIDs, in.ChatID) {
			text += "\n\n" + t.notSubscribed
		}
		return &reply{text: text, mode: message.ParseModePlain}, nil

	case "help":
		delta.HelpCommands = stats.Int64(1)
		text := t.help
		if slices.Contains(h.opts.AdminIDs, in.UserID) {
			text += t.adminHelp
		}
		return &reply{text: text, mode: message.ParseModeMarkdown}, nil

	case "weather":
		delta.WeatherCommands = stats.Int64(1)
		return h.report(ctx, logger, message.KindCurrentWeather, *locale, t.noWeather), nil

	case "forecast":
		delta.ForecastCommands = stats.Int64(1)
		return h.report(ctx, logger, message.KindDailyForecast, *locale, t.noForecast), nil

	case "language":
		delta.LanguageCommands = stats.Int64(1)
		if len(args) == 0 {
			return &reply{text: t.languageUsage, mode: message.ParseModeMarkdown}, nil
		}
		if !message.IsSupported(args[0]) {
			return &reply{text: t.languageBad, mode: message.ParseModePlain}, nil
		}
		chosen := message.ParseLocale(args[0])
		if err := h.Prefs.SetLocale(ctx, in.ChatID, chosen); err != nil {
			return nil, err
		}
		*locale = chosen
		logger.Info("chat language changed", "locale", string(chosen))
		return &reply{text: repliesFor(chosen).languageSet, mode: message.ParseModePlain}, nil

	case "debug":
		delta.DebugCommands = stats.Int64(1)
		if !slices.Contains(h.opts.AdminIDs, in.UserID) {
			return &reply{text: t.adminOnly, mode: message.ParseModePlain}, nil
		}
		return h.debug(ctx, logger, t)
	}

	return nil, nil
}

func (h *Handler) report(ctx context.Context, logger *slog.Logger, kind message.Kind, locale message.Locale, unavailable string) *reply {
	snap, ok := h.Source.FetchCurrent(ctx)
	if !ok || snap == nil {
		return &reply{text: unavailable, mode: message.ParseModePlain}
	}

	if h.Recorder != nil {
		if _, err := h.Recorder.AddLog(ctx, stats.LogEntryFromSnapshot(*snap)); err != nil {
			logger.Error("failed to record weather log", "error", err)
		}
	}
	return &reply{text: message.Format(*snap, kind, locale), mode: message.ParseModeMarkdown}
}

func (h *Handler) debug(ctx context.Context, logger *slog.Logger, t replies) (*reply, error) {
	if h.Checker == nil {
		return nil, errors.New("wind check is not available in this process")
	}

	logger.Info("admin triggered wind check")
	report, err := h.Checker.Run(ctx)
	switch {
	case errors.Is(err, alarming.ErrNoSnapshot):
		return &reply{text: t.noWeather, mode: message.ParseModePlain}, nil
	case err != nil && !errors.Is(err, alarming.ErrRunInProgress):
		return nil, err
	}

	text := fmt.Sprintf(t.debugRunning, report.Outcome, report.WindKnots, h.opts.ThresholdKnots,
		len(report.Sent), len(report.Skipped), len(report.Failed))
	return &reply{text: text, mode: message.ParseModePlain}, nil
}

func (h *Handler) localeFor(ctx context.Context, chatID int64) message.Locale {
	if l, ok := h.Prefs.LocaleFor(ctx, chatID); ok {
		return l
	}
	if l, ok := h.opts.ChatLocales[chatID]; ok && message.IsSupported(string(l)) {
		return l
	}
	return h.opts.DefaultLocale
}
