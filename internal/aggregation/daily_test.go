package aggregation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smukkama/wind-alert-bot/internal/database"
	"github.com/smukkama/wind-alert-bot/internal/observability"
)

func newAggregator(t *testing.T, now time.Time) (*DailyAggregator, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := database.Wrap(sqlDB, observability.Discard())
	return NewDailyAggregator(db, clockwork.NewFakeClockAt(now), observability.Discard()), mock
}

func TestDailyAggregator_AggregatePreviousDay(t *testing.T) {
	agg, mock := newAggregator(t, time.Date(2024, 5, 2, 0, 5, 0, 0, time.UTC))

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO weather_daily_summary .* FROM\s+weather_log .* ON CONFLICT \(date\) DO UPDATE`).
		WithArgs(day.Format(time.DateOnly), day, day.Add(24*time.Hour)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, agg.AggregatePreviousDay(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDailyAggregator_TruncatesToUTCDay(t *testing.T) {
	agg, mock := newAggregator(t, time.Now())

	bangkok := time.FixedZone("ICT", 7*3600)
	// 03:00 on May 2 in Bangkok is still May 1 in UTC
	target := time.Date(2024, 5, 2, 3, 0, 0, 0, bangkok)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO weather_daily_summary`).
		WithArgs(day.Format(time.DateOnly), day, day.Add(24*time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, agg.Aggregate(context.Background(), target))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDailyAggregator_DayBoundsAreTimestamps(t *testing.T) {
	agg, mock := newAggregator(t, time.Date(2024, 5, 2, 0, 5, 0, 0, time.UTC))

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`SELECT\s+\$1::date AS date.* timestamp >= \$2 AND timestamp < \$3`).
		WithArgs("2024-05-01", day, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, agg.AggregatePreviousDay(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDailyAggregator_Error(t *testing.T) {
	agg, mock := newAggregator(t, time.Now())

	mock.ExpectExec(`INSERT INTO weather_daily_summary`).WillReturnError(errors.New("relation does not exist"))

	err := agg.Aggregate(context.Background(), time.Now())
	assert.ErrorContains(t, err, "failed to aggregate daily data")
}

func TestDailyAggregator_Summaries(t *testing.T) {
	agg, mock := newAggregator(t, time.Now())

	since := time.Date(2024, 4, 25, 0, 0, 0, 0, time.UTC)
	created := since.Add(10 * 24 * time.Hour)
	mock.ExpectQuery(`FROM weather_daily_summary\s+WHERE date >= \$1::date`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "date", "min_wind_knots", "max_wind_knots", "avg_wind_knots",
			"max_temp", "rain_samples", "sample_count", "created_at",
		}).
			AddRow(2, since.AddDate(0, 0, 1), 4.2, 21.7, 12.1, 33.0, 3, 144, created).
			AddRow(1, since, nil, nil, nil, nil, 0, 0, created))

	summaries, err := agg.Summaries(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	require.NotNil(t, summaries[0].MaxWindKnots)
	assert.InDelta(t, 21.7, *summaries[0].MaxWindKnots, 1e-9)
	assert.Equal(t, 3, summaries[0].RainSamples)
	assert.Equal(t, 144, summaries[0].SampleCount)
	assert.Nil(t, summaries[1].AvgWindKnots)
	assert.NoError(t, mock.ExpectationsWereMet())
}
