package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Repository is a scoped storage handle for stats and weather logs.
// Implementations must make creation of a period's record idempotent.
type Repository interface {
	InsertWeatherLog(ctx context.Context, entry WeatherLog) (WeatherLog, error)
	RecentWeatherLogs(ctx context.Context, since time.Time, limit int) ([]WeatherLog, error)

	UpsertStats(ctx context.Context, period time.Time, d Delta, now time.Time) (Record, error)
	LatestStats(ctx context.Context) (Record, error)
	StatsSince(ctx context.Context, since time.Time) ([]Record, error)

	Close() error
}

// RepositoryFactory opens a fresh scoped Repository. Callers must Close it.
type RepositoryFactory func(ctx context.Context) (Repository, error)

// Recorder writes logs and stats through short-lived repository handles.
type Recorder struct {
	open  RepositoryFactory
	clock clockwork.Clock
}

// NewRecorder creates a recorder. A nil clock uses real time.
func NewRecorder(open RepositoryFactory, clock clockwork.Clock) *Recorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Recorder{open: open, clock: clock}
}

// AddLog appends a weather log entry. The timestamp is always set here at
// write time; any caller-supplied value is ignored.
func (r *Recorder) AddLog(ctx context.Context, entry WeatherLog) (WeatherLog, error) {
	entry.ID = 0
	entry.Timestamp = r.clock.Now().UTC()

	var out WeatherLog
	err := r.withRepo(ctx, func(repo Repository) error {
		var err error
		out, err = repo.InsertWeatherLog(ctx, entry)
		return err
	})
	if err != nil {
		return WeatherLog{}, fmt.Errorf("failed to add weather log: %w", err)
	}
	return out, nil
}

// UpdateOrCreateStats applies d to the current period's record, creating it if absent.
func (r *Recorder) UpdateOrCreateStats(ctx context.Context, d Delta) (Record, error) {
	now := r.clock.Now().UTC()

	var out Record
	err := r.withRepo(ctx, func(repo Repository) error {
		var err error
		out, err = repo.UpsertStats(ctx, PeriodFor(now), d, now)
		return err
	})
	if err != nil {
		return Record{}, fmt.Errorf("failed to update stats: %w", err)
	}
	return out, nil
}

// LatestStats returns the most recent period's record.
func (r *Recorder) LatestStats(ctx context.Context) (Record, error) {
	var out Record
	err := r.withRepo(ctx, func(repo Repository) error {
		var err error
		out, err = repo.LatestStats(ctx)
		return err
	})
	return out, err
}

// StatsHistory returns the records of the last n days, newest first.
func (r *Recorder) StatsHistory(ctx context.Context, days int) ([]Record, error) {
	if days <= 0 {
		days = 1
	}
	since := PeriodFor(r.clock.Now()).AddDate(0, 0, -(days - 1))

	var out []Record
	err := r.withRepo(ctx, func(repo Repository) error {
		var err error
		out, err = repo.StatsSince(ctx, since)
		return err
	})
	return out, err
}

// RecentLogs returns weather logs from the last window, newest first.
func (r *Recorder) RecentLogs(ctx context.Context, window time.Duration, limit int) ([]WeatherLog, error) {
	since := r.clock.Now().UTC().Add(-window)

	var out []WeatherLog
	err := r.withRepo(ctx, func(repo Repository) error {
		var err error
		out, err = repo.RecentWeatherLogs(ctx, since, limit)
		return err
	})
	return out, err
}

func (r *Recorder) withRepo(ctx context.Context, fn func(Repository) error) (err error) {
	repo, err := r.open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	defer func() {
		if cerr := repo.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(repo)
}
