package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/smukkama/wind-alert-bot/internal/database"
)

// DailyAggregator rolls weather_log rows up into weather_daily_summary
type DailyAggregator struct {
	db     *database.DB
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewDailyAggregator creates a new daily aggregator
func NewDailyAggregator(db *database.DB, clock clockwork.Clock, logger *slog.Logger) *DailyAggregator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DailyAggregator{db: db, clock: clock, logger: logger}
}

// Aggregate summarises the UTC calendar day containing targetDate.
// Re-running a day overwrites its summary.
func (d *DailyAggregator) Aggregate(ctx context.Context, targetDate time.Time) error {
	date := targetDate.UTC().Truncate(24 * time.Hour)

	d.logger.Info("running daily aggregation", "date", date.Format("2006-01-02"))

	query := `
		INSERT INTO weather_daily_summary (
			date,
			min_wind_knots, max_wind_knots, avg_wind_knots,
			max_temp, rain_samples, sample_count
		)
		SELECT
			$1::date AS date,
			MIN(wind_speed_knots) AS min_wind_knots,
			MAX(wind_speed_knots) AS max_wind_knots,
			AVG(wind_speed_knots) AS avg_wind_knots,
			MAX(temperature) AS max_temp,
			COUNT(*) FILTER (WHERE has_rain) AS rain_samples,
			COUNT(*) AS sample_count
		FROM
			weather_log
		WHERE
			timestamp >= $2 AND timestamp < $3
		HAVING
			COUNT(*) > 0
		ON CONFLICT (date) DO UPDATE
		SET
			min_wind_knots = EXCLUDED.min_wind_knots,
			max_wind_knots = EXCLUDED.max_wind_knots,
			avg_wind_knots = EXCLUDED.avg_wind_knots,
			max_temp = EXCLUDED.max_temp,
			rain_samples = EXCLUDED.rain_samples,
			sample_count = EXCLUDED.sample_count
	`

	// $1 is the summary's calendar date; $2 and $3 bound the UTC day as
	// timestamptz, independent of the session TimeZone.
	result, err := d.db.ExecContext(ctx, query, date.Format(time.DateOnly), date, date.Add(24*time.Hour))
	if err != nil {
		return fmt.Errorf("failed to aggregate daily data: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		d.logger.Warn("no weather samples to aggregate", "date", date.Format("2006-01-02"))
		return nil
	}
	d.logger.Info("daily aggregation completed", "date", date.Format("2006-01-02"))

	return nil
}

// AggregatePreviousDay aggregates the previous full UTC day
func (d *DailyAggregator) AggregatePreviousDay(ctx context.Context) error {
	return d.Aggregate(ctx, d.clock.Now().UTC().AddDate(0, 0, -1))
}

// Summaries returns the summaries dated on or after since, newest first
func (d *DailyAggregator) Summaries(ctx context.Context, since time.Time) ([]database.DailySummary, error) {
	query := `
		SELECT id, date, min_wind_knots, max_wind_knots, avg_wind_knots,
		       max_temp, rain_samples, sample_count, created_at
		FROM weather_daily_summary
		WHERE date >= $1::date
		ORDER BY date DESC
	`

	rows, err := d.db.QueryContext(ctx, query, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query daily summaries: %w", err)
	}
	defer rows.Close()

	var out []database.DailySummary
	for rows.Next() {
		var s database.DailySummary
		if err := rows.Scan(
			&s.ID,
			&s.Date,
			&s.MinWindKnots,
			&s.MaxWindKnots,
			&s.AvgWindKnots,
			&s.MaxTemp,
			&s.RainSamples,
			&s.SampleCount,
			&s.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
