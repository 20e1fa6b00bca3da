package alarming

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/smukkama/wind-alert-bot/internal/message"
	"github.com/smukkama/wind-alert-bot/internal/notification"
	"github.com/smukkama/wind-alert-bot/internal/observability"
	"github.com/smukkama/wind-alert-bot/internal/protocol"
	"github.com/smukkama/wind-alert-bot/internal/stats"
	"github.com/smukkama/wind-alert-bot/internal/weather"
)

var (
	// ErrRunInProgress is returned when a check is triggered while another is running
	ErrRunInProgress = errors.New("scheduled check already running")
	// ErrNoSnapshot is returned when the weather source had no data
	ErrNoSnapshot = errors.New("weather source returned no data")
)

// Outcome classifies how a run ended
type Outcome string

const (
	OutcomeNoData         Outcome = "no_data"
	OutcomeOutsideWindow  Outcome = "outside_window"
	OutcomeBelowThreshold Outcome = "below_threshold"
	OutcomeAlerted        Outcome = "alerted"
	OutcomeAllInCooldown  Outcome = "all_in_cooldown"
	OutcomeDeliveryFailed Outcome = "delivery_failed"
	OutcomeSkippedOverlap Outcome = "skipped_overlap"
)

// Recipient is a statically configured alert destination
type Recipient struct {
	ID     int64
	Locale message.Locale // empty uses the checker's default
}

// EventPublisher receives one event per delivery attempt
type EventPublisher interface {
	PublishAlert(ctx context.Context, event *protocol.AlertEvent) error
}

// LocaleResolver returns a locale chosen by the recipient at runtime, if any
type LocaleResolver interface {
	LocaleFor(ctx context.Context, chatID int64) (message.Locale, bool)
}

// CheckerConfig holds the alert settings, fixed at process start
type CheckerConfig struct {
	Recipients     []Recipient
	DefaultLocale  message.Locale
	Window         Window
	ThresholdKnots float64
	Cooldown       time.Duration
	// Location is where the window is evaluated. Nil means UTC.
	Location *time.Location
	// Parallelism bounds concurrent deliveries. Values below 1 mean sequential.
	Parallelism int
}

// CheckerDeps are the collaborators of a Checker. Recorder, Events,
// Locales and Metrics are optional.
type CheckerDeps struct {
	Source    weather.Source
	Cooldowns CooldownStore
	Sender    notification.Sender
	Recorder  *stats.Recorder
	Events    EventPublisher
	Locales   LocaleResolver
	Metrics   *observability.Metrics
	Logger    *slog.Logger
	Clock     clockwork.Clock
}

// RunReport summarises one scheduled check
type RunReport struct {
	RunID     string
	Outcome   Outcome
	StartedAt time.Time
	Snapshot  *weather.Snapshot
	WindKnots float64

	Sent    []int64
	Skipped []int64
	Failed  []int64
}

// Checker runs the scheduled wind check: fetch, record, gate, fan out.
// At most one run executes at a time.
type Checker struct {
	cfg CheckerConfig
	CheckerDeps

	running sync.Mutex
}

// NewChecker creates a checker
func NewChecker(cfg CheckerConfig, deps CheckerDeps) *Checker {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	if !message.IsSupported(string(cfg.DefaultLocale)) {
		cfg.DefaultLocale = message.DefaultLocale
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetricsForTesting()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Checker{cfg: cfg, CheckerDeps: deps}
}

// Run executes one scheduled check. Persistence, cooldown and delivery
// failures are logged and never returned; the error only reports why a
// run stopped before evaluating the threshold.
func (c *Checker) Run(ctx context.Context) (RunReport, error) {
	if !c.running.TryLock() {
		c.Logger.Warn("scheduled check skipped: previous run still in progress")
		c.Metrics.CheckRuns.WithLabelValues(string(OutcomeSkippedOverlap)).Inc()
		return RunReport{Outcome: OutcomeSkippedOverlap}, ErrRunInProgress
	}
	defer c.running.Unlock()

	report := RunReport{
		RunID:     uuid.NewString(),
		StartedAt: c.Clock.Now().In(c.cfg.Location),
	}
	logger := c.Logger.With("run_id", report.RunID)

	// 1. Fetch
	fetchStart := c.Clock.Now()
	snap, ok := c.Source.FetchCurrent(ctx)
	c.Metrics.FetchDuration.Observe(c.Clock.Since(fetchStart).Seconds())
	if !ok || snap == nil {
		logger.Warn("no weather data, ending scheduled check")
		report.Outcome = OutcomeNoData
		c.Metrics.CheckRuns.WithLabelValues(string(report.Outcome)).Inc()
		return report, ErrNoSnapshot
	}
	report.Snapshot = snap
	report.WindKnots = snap.Wind.SpeedKnots()
	c.Metrics.LastWindKnots.Set(report.WindKnots)

	// 2. Record
	c.record(ctx, logger, *snap)

	// 3. Gate
	if !ShouldAlert(*snap, report.StartedAt, c.cfg.Window, c.cfg.ThresholdKnots) {
		if !c.cfg.Window.Contains(report.StartedAt) {
			report.Outcome = OutcomeOutsideWindow
			logger.Info("outside alert window", "window", c.cfg.Window.String(), "wind_knots", report.WindKnots)
		} else {
			report.Outcome = OutcomeBelowThreshold
			logger.Info("wind below threshold", "wind_knots", report.WindKnots, "threshold_knots", c.cfg.ThresholdKnots)
		}
		c.Metrics.CheckRuns.WithLabelValues(string(report.Outcome)).Inc()
		return report, nil
	}

	logger.Info("wind alert condition met", "wind_knots", report.WindKnots, "threshold_knots", c.cfg.ThresholdKnots)

	// 4. Fan out
	c.fanOut(ctx, logger, snap, &report)

	report.Outcome = fanOutOutcome(&report)
	c.Metrics.CheckRuns.WithLabelValues(string(report.Outcome)).Inc()
	logger.Info("scheduled check completed",
		"sent", len(report.Sent), "skipped", len(report.Skipped), "failed", len(report.Failed))
	return report, nil
}

// fanOutOutcome is alerted when anyone received the alert. Otherwise it
// reports failed delivery ahead of cooldown skips.
func fanOutOutcome(r *RunReport) Outcome {
	switch {
	case len(r.Sent) > 0:
		return OutcomeAlerted
	case len(r.Failed) > 0:
		return OutcomeDeliveryFailed
	default:
		return OutcomeAllInCooldown
	}
}

func (c *Checker) record(ctx context.Context, logger *slog.Logger, snap weather.Snapshot) {
	if c.Recorder == nil {
		return
	}
	if _, err := c.Recorder.AddLog(ctx, stats.LogEntryFromSnapshot(snap)); err != nil {
		c.Metrics.RecorderFailures.Inc()
		logger.Error("failed to record weather log", "error", err)
	}
	if _, err := c.Recorder.UpdateOrCreateStats(ctx, stats.Delta{ScheduledChecks: stats.Int64(1)}); err != nil {
		c.Metrics.RecorderFailures.Inc()
		logger.Error("failed to count scheduled check", "error", err)
	}
}

type deliveryResult int

const (
	resultSent deliveryResult = iota
	resultSkipped
	resultFailed
)

func (c *Checker) fanOut(ctx context.Context, logger *slog.Logger, snap *weather.Snapshot, report *RunReport) {
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(c.cfg.Parallelism)

	for _, r := range c.cfg.Recipients {
		g.Go(func() error {
			res := c.notify(ctx, logger.With("recipient_id", r.ID), r, snap, report)

			mu.Lock()
			defer mu.Unlock()
			switch res {
			case resultSent:
				report.Sent = append(report.Sent, r.ID)
			case resultSkipped:
				report.Skipped = append(report.Skipped, r.ID)
			default:
				report.Failed = append(report.Failed, r.ID)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// notify handles one recipient. Every failure stays inside this call.
func (c *Checker) notify(ctx context.Context, logger *slog.Logger, r Recipient, snap *weather.Snapshot, report *RunReport) (res deliveryResult) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("panic while alerting recipient", "panic", fmt.Sprint(p))
			c.Metrics.AlertFailures.Inc()
			res = resultFailed
		}
	}()

	now := report.StartedAt

	last, ok, err := c.Cooldowns.LastAlertTime(ctx, r.ID)
	if err != nil {
		// Fail open: a storage outage must not silence alerts.
		c.Metrics.CooldownErrors.Inc()
		logger.Error("cooldown lookup failed, treating recipient as eligible", "error", err)
		ok = false
	}
	if InCooldown(last, ok, now, c.cfg.Cooldown) {
		c.Metrics.CooldownSkips.Inc()
		logger.Info("alert cooldown active, skipping", "last_alert", last, "cooldown", c.cfg.Cooldown)
		return resultSkipped
	}

	locale := c.localeFor(ctx, r)
	text := message.Format(*snap, message.KindWindAlert, locale)

	if err := c.Sender.Send(ctx, r.ID, text, message.ParseModeMarkdown); err != nil {
		c.Metrics.AlertFailures.Inc()
		logger.Error("failed to send wind alert", "error", err)
		c.publish(ctx, logger, c.newEvent(protocol.AlertTypeFailed, r, locale, snap, report, err))
		return resultFailed
	}

	if err := c.Cooldowns.RecordAlertSent(ctx, r.ID, now); err != nil {
		c.Metrics.CooldownErrors.Inc()
		logger.Error("failed to record alert cooldown", "error", err)
	}

	c.Metrics.AlertsSent.Inc()
	logger.Info("wind alert sent", "locale", string(locale))

	if c.Recorder != nil {
		if _, err := c.Recorder.UpdateOrCreateStats(ctx, stats.Delta{AlertsSent: stats.Int64(1)}); err != nil {
			c.Metrics.RecorderFailures.Inc()
			logger.Error("failed to count sent alert", "error", err)
		}
	}
	c.publish(ctx, logger, c.newEvent(protocol.AlertTypeDelivered, r, locale, snap, report, nil))
	return resultSent
}

// localeFor prefers the recipient's own choice, then the configured locale.
func (c *Checker) localeFor(ctx context.Context, r Recipient) message.Locale {
	if c.Locales != nil {
		if l, ok := c.Locales.LocaleFor(ctx, r.ID); ok && message.IsSupported(string(l)) {
			return l
		}
	}
	if message.IsSupported(string(r.Locale)) {
		return r.Locale
	}
	return c.cfg.DefaultLocale
}

func (c *Checker) newEvent(typ string, r Recipient, locale message.Locale, snap *weather.Snapshot, report *RunReport, sendErr error) *protocol.AlertEvent {
	event := &protocol.AlertEvent{
		EventID:        uuid.NewString(),
		RunID:          report.RunID,
		Type:           typ,
		RecipientID:    r.ID,
		Locale:         string(locale),
		Location:       snap.LocationName,
		WindKnots:      snap.Wind.SpeedKnots(),
		WindMS:         snap.Wind.SpeedMS,
		ThresholdKnots: c.cfg.ThresholdKnots,
		ObservedAt:     snap.Timestamp,
		SentAt:         c.Clock.Now().UTC(),
	}
	if gust, ok := snap.Wind.GustKnots(); ok {
		event.GustKnots = &gust
	}
	if sendErr != nil {
		event.Error = sendErr.Error()
	}
	return event
}

func (c *Checker) publish(ctx context.Context, logger *slog.Logger, event *protocol.AlertEvent) {
	if c.Events == nil {
		return
	}
	if err := c.Events.PublishAlert(ctx, event); err != nil {
		c.Metrics.EventPublishFails.Inc()
		logger.Error("failed to publish alert event", "error", err)
	}
}
