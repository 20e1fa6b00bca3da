package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wind_alert"

// Metrics holds the Prometheus collectors for the bot processes.
type Metrics struct {
	CheckRuns         *prometheus.CounterVec // labels: outcome, see alarming.Outcome
	AlertsSent        prometheus.Counter
	AlertFailures     prometheus.Counter
	CooldownSkips     prometheus.Counter
	CooldownErrors    prometheus.Counter
	RecorderFailures  prometheus.Counter
	EventPublishFails prometheus.Counter
	FetchDuration     prometheus.Histogram
	LastWindKnots     prometheus.Gauge

	// Command path
	CommandsHandled *prometheus.CounterVec // labels: command
}

func newCollectors() *Metrics {
	return &Metrics{
		CheckRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_runs_total",
			Help:      "Scheduled wind checks by outcome.",
		}, []string{"outcome"}),
		AlertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_sent_total",
			Help:      "Wind alerts delivered to recipients.",
		}),
		AlertFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_failures_total",
			Help:      "Wind alerts that could not be delivered.",
		}),
		CooldownSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cooldown_skips_total",
			Help:      "Recipients skipped because they are in cooldown.",
		}),
		CooldownErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cooldown_errors_total",
			Help:      "Cooldown store read or write failures.",
		}),
		RecorderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recorder_failures_total",
			Help:      "Weather log or stats writes that failed.",
		}),
		EventPublishFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Alert events that could not be published to Kafka.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_fetch_duration_seconds",
			Help:      "Duration of a weather source fetch including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		LastWindKnots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_wind_knots",
			Help:      "Wind speed in knots observed by the last successful check.",
		}),
		CommandsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_handled_total",
			Help:      "Telegram commands handled by command name.",
		}, []string{"command"}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newCollectors()
	prometheus.MustRegister(
		m.CheckRuns,
		m.AlertsSent,
		m.AlertFailures,
		m.CooldownSkips,
		m.CooldownErrors,
		m.RecorderFailures,
		m.EventPublishFails,
		m.FetchDuration,
		m.LastWindKnots,
		m.CommandsHandled,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newCollectors()
}
