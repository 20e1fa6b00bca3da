// Package stats records bot usage counters and weather history.
//
// Counters accumulate per aggregation period (one UTC calendar day). The
// active-users field is a gauge and is overwritten on update instead of
// added to.
package stats

import (
	"errors"
	"time"

	"github.com/smukkama/wind-alert-bot/internal/weather"
)

// ErrNotFound is returned when no stats record exists yet.
var ErrNotFound = errors.New("stats record not found")

// Record is the stats row for one aggregation period.
type Record struct {
	ID                int64     `json:"id"`
	Period            time.Time `json:"period"`
	MessagesProcessed int64     `json:"messages_processed"`
	WeatherCommands   int64     `json:"weather_commands"`
	ForecastCommands  int64     `json:"forecast_commands"`
	LanguageCommands  int64     `json:"language_commands"`
	DebugCommands     int64     `json:"debug_commands"`
	StartCommands     int64     `json:"start_commands"`
	HelpCommands      int64     `json:"help_commands"`
	ScheduledChecks   int64     `json:"scheduled_checks"`
	AlertsSent        int64     `json:"alerts_sent"`
	ActiveUsers       int64     `json:"active_users"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Delta is a partial stats update. Nil fields are left untouched.
type Delta struct {
	MessagesProcessed *int64 `json:"messages_processed,omitempty" validate:"omitempty,min=0"`
	WeatherCommands   *int64 `json:"weather_commands,omitempty" validate:"omitempty,min=0"`
	ForecastCommands  *int64 `json:"forecast_commands,omitempty" validate:"omitempty,min=0"`
	LanguageCommands  *int64 `json:"language_commands,omitempty" validate:"omitempty,min=0"`
	DebugCommands     *int64 `json:"debug_commands,omitempty" validate:"omitempty,min=0"`
	StartCommands     *int64 `json:"start_commands,omitempty" validate:"omitempty,min=0"`
	HelpCommands      *int64 `json:"help_commands,omitempty" validate:"omitempty,min=0"`
	ScheduledChecks   *int64 `json:"scheduled_checks,omitempty" validate:"omitempty,min=0"`
	AlertsSent        *int64 `json:"alerts_sent,omitempty" validate:"omitempty,min=0"`

	// ActiveUsers is a gauge: it replaces the stored value.
	ActiveUsers *int64 `json:"active_users,omitempty" validate:"omitempty,min=0"`
}

// Int64 returns a pointer to v, for building deltas.
func Int64(v int64) *int64 {
	return &v
}

// Apply merges d into r: counters add, the active-users gauge overwrites.
func Apply(r *Record, d Delta) {
	add(&r.MessagesProcessed, d.MessagesProcessed)
	add(&r.WeatherCommands, d.WeatherCommands)
	add(&r.ForecastCommands, d.ForecastCommands)
	add(&r.LanguageCommands, d.LanguageCommands)
	add(&r.DebugCommands, d.DebugCommands)
	add(&r.StartCommands, d.StartCommands)
	add(&r.HelpCommands, d.HelpCommands)
	add(&r.ScheduledChecks, d.ScheduledChecks)
	add(&r.AlertsSent, d.AlertsSent)
	if d.ActiveUsers != nil {
		r.ActiveUsers = *d.ActiveUsers
	}
}

func add(dst *int64, v *int64) {
	if v != nil {
		*dst += *v
	}
}

// IsEmpty reports whether the delta carries no fields.
func (d Delta) IsEmpty() bool {
	return d == Delta{}
}

// PeriodFor returns the aggregation period key (UTC midnight) for t.
func PeriodFor(t time.Time) time.Time {
	y, m, day := t.UTC().Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// WeatherLog is one historical weather sample.
type WeatherLog struct {
	ID             int64     `json:"id"`
	Temperature    *float64  `json:"temperature"`
	WindSpeedKnots *float64  `json:"wind_speed_knots"`
	WindSpeedMS    *float64  `json:"wind_speed_ms"`
	HasRain        bool      `json:"has_rain"`
	Timestamp      time.Time `json:"timestamp"`
}

// LogEntryFromSnapshot projects a snapshot into a weather log entry.
func LogEntryFromSnapshot(s weather.Snapshot) WeatherLog {
	temp := s.Temperature
	knots := s.Wind.SpeedKnots()
	ms := s.Wind.SpeedMS
	return WeatherLog{
		Temperature:    &temp,
		WindSpeedKnots: &knots,
		WindSpeedMS:    &ms,
		HasRain:        s.HasRain(),
	}
}
