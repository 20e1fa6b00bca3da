package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smukkama/wind-alert-bot/internal/stats"
)

var statsRowColumns = []string{
	"id", "period", "messages_processed", "weather_commands", "forecast_commands",
	"language_commands", "debug_commands", "start_commands", "help_commands",
	"scheduled_checks", "alerts_sent", "active_users", "updated_at",
}

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return Wrap(sqlDB, slog.New(slog.NewTextHandler(io.Discard, nil))), mock
}

func openRepo(t *testing.T, db *DB) stats.Repository {
	t.Helper()
	repo, err := db.OpenRepository(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepository_UpsertStats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := openRepo(t, db)

	period := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	now := period.Add(10 * time.Hour)

	mock.ExpectQuery(`INSERT INTO bot_stats .* ON CONFLICT \(period\) DO UPDATE`).
		WithArgs(period, nil, int64(2), nil, nil, nil, nil, nil, nil, nil, int64(9), now).
		WillReturnRows(sqlmock.NewRows(statsRowColumns).
			AddRow(1, period, 0, 5, 0, 0, 0, 0, 0, 0, 0, 9, now))

	rec, err := repo.UpsertStats(context.Background(), period, stats.Delta{
		WeatherCommands: stats.Int64(2),
		ActiveUsers:     stats.Int64(9),
	}, now)
	require.NoError(t, err)

	assert.Equal(t, int64(5), rec.WeatherCommands)
	assert.Equal(t, int64(9), rec.ActiveUsers)
	assert.Equal(t, period, rec.Period)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpsertStats_Error(t *testing.T) {
	db, mock := newMockDB(t)
	repo := openRepo(t, db)

	mock.ExpectQuery(`INSERT INTO bot_stats`).WillReturnError(errors.New("connection reset"))

	_, err := repo.UpsertStats(context.Background(), time.Now(), stats.Delta{}, time.Now())
	assert.ErrorContains(t, err, "connection reset")
}

func TestRepository_LatestStats_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := openRepo(t, db)

	mock.ExpectQuery(`SELECT .* FROM bot_stats ORDER BY period DESC LIMIT 1`).
		WillReturnRows(sqlmock.NewRows(statsRowColumns))

	_, err := repo.LatestStats(context.Background())
	assert.ErrorIs(t, err, stats.ErrNotFound)
}

func TestRepository_StatsSince(t *testing.T) {
	db, mock := newMockDB(t)
	repo := openRepo(t, db)

	since := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM bot_stats WHERE period >= \$1::date`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows(statsRowColumns).
			AddRow(2, since.AddDate(0, 0, 1), 3, 1, 0, 0, 0, 0, 0, 12, 1, 4, since).
			AddRow(1, since, 1, 0, 0, 0, 0, 1, 0, 24, 0, 3, since))

	records, err := repo.StatsSince(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(12), records[0].ScheduledChecks)
	assert.Equal(t, int64(1), records[1].StartCommands)
}

func TestRepository_InsertWeatherLog(t *testing.T) {
	db, mock := newMockDB(t)
	repo := openRepo(t, db)

	knots := 19.4
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO weather_log`).
		WithArgs(nil, knots, nil, true, ts).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	got, err := repo.InsertWeatherLog(context.Background(), stats.WeatherLog{
		WindSpeedKnots: &knots,
		HasRain:        true,
		Timestamp:      ts,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, ts, got.Timestamp)
}

func TestRepository_RecentWeatherLogs_NullableColumns(t *testing.T) {
	db, mock := newMockDB(t)
	repo := openRepo(t, db)

	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM weather_log`).
		WithArgs(since, 500).
		WillReturnRows(sqlmock.NewRows([]string{"id", "temperature", "wind_speed_knots", "wind_speed_ms", "has_rain", "timestamp"}).
			AddRow(2, nil, 21.0, 10.8, false, since.Add(time.Hour)).
			AddRow(1, 18.5, nil, nil, true, since))

	logs, err := repo.RecentWeatherLogs(context.Background(), since, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	assert.Nil(t, logs[0].Temperature)
	require.NotNil(t, logs[0].WindSpeedKnots)
	assert.InDelta(t, 21.0, *logs[0].WindSpeedKnots, 1e-9)
	assert.Nil(t, logs[1].WindSpeedKnots)
	assert.True(t, logs[1].HasRain)
}

func TestRecorder_OverPostgresRepository(t *testing.T) {
	db, mock := newMockDB(t)
	rec := stats.NewRecorder(db.RepositoryFactory(), nil)

	mock.ExpectQuery(`INSERT INTO weather_log`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	entry, err := rec.AddLog(context.Background(), stats.WeatherLog{})
	require.NoError(t, err)
	assert.Equal(t, int64(7), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
