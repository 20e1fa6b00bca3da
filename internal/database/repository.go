package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/smukkama/wind-alert-bot/internal/stats"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository implements stats.Repository on one checked-out connection
type Repository struct {
	q      queryer
	closer io.Closer
}

var _ stats.Repository = (*Repository)(nil)

// Close releases the underlying connection back to the pool
func (r *Repository) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

const statsColumns = `id, period, messages_processed, weather_commands, forecast_commands,
		language_commands, debug_commands, start_commands, help_commands,
		scheduled_checks, alerts_sent, active_users, updated_at`

// upsertStatsQuery adds counters and overwrites the active_users gauge.
// The unique period key makes concurrent first writes converge on one row.
const upsertStatsQuery = `
	INSERT INTO bot_stats (
		period, messages_processed, weather_commands, forecast_commands,
		language_commands, debug_commands, start_commands, help_commands,
		scheduled_checks, alerts_sent, active_users, updated_at
	) VALUES (
		$1::date,
		COALESCE($2::bigint, 0), COALESCE($3::bigint, 0), COALESCE($4::bigint, 0),
		COALESCE($5::bigint, 0), COALESCE($6::bigint, 0), COALESCE($7::bigint, 0),
		COALESCE($8::bigint, 0), COALESCE($9::bigint, 0), COALESCE($10::bigint, 0),
		COALESCE($11::bigint, 0), $12
	)
	ON CONFLICT (period) DO UPDATE
	SET messages_processed = bot_stats.messages_processed + EXCLUDED.messages_processed,
	    weather_commands = bot_stats.weather_commands + EXCLUDED.weather_commands,
	    forecast_commands = bot_stats.forecast_commands + EXCLUDED.forecast_commands,
	    language_commands = bot_stats.language_commands + EXCLUDED.language_commands,
	    debug_commands = bot_stats.debug_commands + EXCLUDED.debug_commands,
	    start_commands = bot_stats.start_commands + EXCLUDED.start_commands,
	    help_commands = bot_stats.help_commands + EXCLUDED.help_commands,
	    scheduled_checks = bot_stats.scheduled_checks + EXCLUDED.scheduled_checks,
	    alerts_sent = bot_stats.alerts_sent + EXCLUDED.alerts_sent,
	    active_users = COALESCE($11::bigint, bot_stats.active_users),
	    updated_at = EXCLUDED.updated_at
	RETURNING ` + statsColumns

// UpsertStats applies a delta to the period's row, creating it if absent
func (r *Repository) UpsertStats(ctx context.Context, period time.Time, d stats.Delta, now time.Time) (stats.Record, error) {
	row := r.q.QueryRowContext(ctx, upsertStatsQuery,
		period,
		d.MessagesProcessed,
		d.WeatherCommands,
		d.ForecastCommands,
		d.LanguageCommands,
		d.DebugCommands,
		d.StartCommands,
		d.HelpCommands,
		d.ScheduledChecks,
		d.AlertsSent,
		d.ActiveUsers,
		now,
	)

	rec, err := scanStats(row)
	if err != nil {
		return stats.Record{}, fmt.Errorf("failed to upsert stats: %w", err)
	}
	return rec, nil
}

// LatestStats retrieves the most recent period's row
func (r *Repository) LatestStats(ctx context.Context) (stats.Record, error) {
	query := `SELECT ` + statsColumns + ` FROM bot_stats ORDER BY period DESC LIMIT 1`

	rec, err := scanStats(r.q.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return stats.Record{}, stats.ErrNotFound
	}
	if err != nil {
		return stats.Record{}, err
	}
	return rec, nil
}

// StatsSince retrieves all rows with period >= since, newest first
func (r *Repository) StatsSince(ctx context.Context, since time.Time) ([]stats.Record, error) {
	query := `SELECT ` + statsColumns + ` FROM bot_stats WHERE period >= $1::date ORDER BY period DESC`

	rows, err := r.q.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []stats.Record
	for rows.Next() {
		rec, err := scanStats(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// InsertWeatherLog appends a weather log row
func (r *Repository) InsertWeatherLog(ctx context.Context, entry stats.WeatherLog) (stats.WeatherLog, error) {
	query := `
		INSERT INTO weather_log (temperature, wind_speed_knots, wind_speed_ms, has_rain, timestamp)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.q.QueryRowContext(ctx, query,
		entry.Temperature,
		entry.WindSpeedKnots,
		entry.WindSpeedMS,
		entry.HasRain,
		entry.Timestamp,
	).Scan(&entry.ID)
	if err != nil {
		return stats.WeatherLog{}, fmt.Errorf("failed to insert weather log: %w", err)
	}
	return entry, nil
}

// RecentWeatherLogs retrieves log rows newer than since, newest first
func (r *Repository) RecentWeatherLogs(ctx context.Context, since time.Time, limit int) ([]stats.WeatherLog, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `
		SELECT id, temperature, wind_speed_knots, wind_speed_ms, has_rain, timestamp
		FROM weather_log
		WHERE timestamp >= $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := r.q.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []stats.WeatherLog
	for rows.Next() {
		var l stats.WeatherLog
		var temp, knots, ms sql.NullFloat64
		if err := rows.Scan(&l.ID, &temp, &knots, &ms, &l.HasRain, &l.Timestamp); err != nil {
			return nil, err
		}
		l.Temperature = nullFloat(temp)
		l.WindSpeedKnots = nullFloat(knots)
		l.WindSpeedMS = nullFloat(ms)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStats(s scanner) (stats.Record, error) {
	var rec stats.Record
	err := s.Scan(
		&rec.ID,
		&rec.Period,
		&rec.MessagesProcessed,
		&rec.WeatherCommands,
		&rec.ForecastCommands,
		&rec.LanguageCommands,
		&rec.DebugCommands,
		&rec.StartCommands,
		&rec.HelpCommands,
		&rec.ScheduledChecks,
		&rec.AlertsSent,
		&rec.ActiveUsers,
		&rec.UpdatedAt,
	)
	return rec, err
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
