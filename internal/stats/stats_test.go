package stats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smukkama/wind-alert-bot/internal/weather"
)

func TestApply_CountersAddGaugeOverwrites(t *testing.T) {
	rec := Record{WeatherCommands: 3, ActiveUsers: 5}

	Apply(&rec, Delta{WeatherCommands: Int64(2), ActiveUsers: Int64(9)})

	assert.Equal(t, int64(5), rec.WeatherCommands)
	assert.Equal(t, int64(9), rec.ActiveUsers)
}

func TestApply_NilFieldsUntouched(t *testing.T) {
	rec := Record{AlertsSent: 4, ActiveUsers: 7, ScheduledChecks: 10}

	Apply(&rec, Delta{ScheduledChecks: Int64(1)})

	assert.Equal(t, int64(4), rec.AlertsSent)
	assert.Equal(t, int64(7), rec.ActiveUsers)
	assert.Equal(t, int64(11), rec.ScheduledChecks)
}

func TestApply_GaugeCanBeSetToZero(t *testing.T) {
	rec := Record{ActiveUsers: 7}
	Apply(&rec, Delta{ActiveUsers: Int64(0)})
	assert.Equal(t, int64(0), rec.ActiveUsers)
}

func TestDelta_IsEmpty(t *testing.T) {
	assert.True(t, Delta{}.IsEmpty())
	assert.False(t, Delta{HelpCommands: Int64(0)}.IsEmpty())
}

func TestPeriodFor(t *testing.T) {
	loc := time.FixedZone("X", 7*3600)
	got := PeriodFor(time.Date(2024, 5, 2, 3, 0, 0, 0, loc)) // 2024-05-01 20:00 UTC
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestLogEntryFromSnapshot(t *testing.T) {
	rain := 0.4
	entry := LogEntryFromSnapshot(weather.Snapshot{Temperature: 21.5, Wind: weather.Wind{SpeedMS: 10}, Rain1h: &rain})

	require.NotNil(t, entry.WindSpeedKnots)
	assert.InDelta(t, 19.43844, *entry.WindSpeedKnots, 1e-9)
	assert.InDelta(t, 10, *entry.WindSpeedMS, 1e-9)
	assert.InDelta(t, 21.5, *entry.Temperature, 1e-9)
	assert.True(t, entry.HasRain)
}

func TestRecorder_UpdateOrCreateStats_AddVersusOverwrite(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	store := NewMemoryStore()
	store.Seed(Record{Period: clock.Now(), WeatherCommands: 3, ActiveUsers: 5})
	rec := NewRecorder(store.Factory(), clock)

	got, err := rec.UpdateOrCreateStats(context.Background(), Delta{WeatherCommands: Int64(2), ActiveUsers: Int64(9)})
	require.NoError(t, err)

	assert.Equal(t, int64(5), got.WeatherCommands)
	assert.Equal(t, int64(9), got.ActiveUsers)
	assert.Equal(t, clock.Now(), got.UpdatedAt)
}

func TestRecorder_UpdateOrCreateStats_NewRecordPerDay(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC))
	store := NewMemoryStore()
	rec := NewRecorder(store.Factory(), clock)
	ctx := context.Background()

	_, err := rec.UpdateOrCreateStats(ctx, Delta{ScheduledChecks: Int64(1)})
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	today, err := rec.UpdateOrCreateStats(ctx, Delta{ScheduledChecks: Int64(1)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), today.ScheduledChecks)

	history, err := rec.StatsHistory(ctx, 7)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), history[0].Period)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), history[1].Period)
}

func TestRecorder_ConcurrentCreateIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store.Factory(), clockwork.NewFakeClock())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = rec.UpdateOrCreateStats(context.Background(), Delta{MessagesProcessed: Int64(1)})
		}()
	}
	wg.Wait()

	history, err := rec.StatsHistory(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(20), history[0].MessagesProcessed)
}

func TestRecorder_AddLog_IgnoresCallerTimestamp(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	rec := NewRecorder(store.Factory(), clockwork.NewFakeClockAt(now))

	entry := WeatherLog{ID: 99, HasRain: true, Timestamp: now.Add(-48 * time.Hour)}
	got, err := rec.AddLog(context.Background(), entry)
	require.NoError(t, err)

	assert.Equal(t, now, got.Timestamp)
	assert.Equal(t, int64(1), got.ID)
	assert.True(t, got.HasRain)
}

func TestRecorder_RecentLogs(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	store := NewMemoryStore()
	rec := NewRecorder(store.Factory(), clock)
	ctx := context.Background()

	_, err := rec.AddLog(ctx, WeatherLog{})
	require.NoError(t, err)
	clock.Advance(25 * time.Hour)
	_, err = rec.AddLog(ctx, WeatherLog{HasRain: true})
	require.NoError(t, err)

	logs, err := rec.RecentLogs(ctx, 24*time.Hour, 100)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].HasRain)
}

func TestRecorder_LatestStats_NotFound(t *testing.T) {
	rec := NewRecorder(NewMemoryStore().Factory(), nil)
	_, err := rec.LatestStats(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

type closeTrackingRepo struct {
	Repository
	closed bool
}

func (c *closeTrackingRepo) Close() error {
	c.closed = true
	return nil
}

func TestRecorder_ClosesRepositoryOnError(t *testing.T) {
	repo := &closeTrackingRepo{Repository: failingRepo{}}
	rec := NewRecorder(func(ctx context.Context) (Repository, error) { return repo, nil }, nil)

	_, err := rec.AddLog(context.Background(), WeatherLog{})
	assert.Error(t, err)
	assert.True(t, repo.closed)
}

func TestRecorder_FactoryError(t *testing.T) {
	rec := NewRecorder(func(ctx context.Context) (Repository, error) { return nil, errors.New("pool exhausted") }, nil)

	_, err := rec.UpdateOrCreateStats(context.Background(), Delta{AlertsSent: Int64(1)})
	assert.ErrorContains(t, err, "pool exhausted")
}

type failingRepo struct{ Repository }

func (failingRepo) InsertWeatherLog(ctx context.Context, entry WeatherLog) (WeatherLog, error) {
	return WeatherLog{}, errors.New("disk full")
}
