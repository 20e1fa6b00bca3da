package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smukkama/wind-alert-bot/internal/alarming"
	"github.com/smukkama/wind-alert-bot/internal/observability"
	"github.com/smukkama/wind-alert-bot/internal/timer"
)

type countingChecker struct {
	calls       atomic.Int32
	hadDeadline atomic.Bool
	err         error
}

func (c *countingChecker) Run(ctx context.Context) (alarming.RunReport, error) {
	c.calls.Add(1)
	_, ok := ctx.Deadline()
	c.hadDeadline.Store(ok)
	return alarming.RunReport{Outcome: alarming.OutcomeBelowThreshold}, c.err
}

func TestScheduler_RunsCheckImmediatelyWithTimeout(t *testing.T) {
	checker := &countingChecker{}
	timers := timer.NewManager(1, nil, observability.Discard())
	s := New(checker, timers, Options{CheckInterval: time.Hour, RunTimeout: time.Second}, observability.Discard())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return checker.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, checker.hadDeadline.Load())
}

func TestScheduler_CheckErrorsDoNotStopScheduler(t *testing.T) {
	for _, err := range []error{alarming.ErrRunInProgress, alarming.ErrNoSnapshot, errors.New("boom")} {
		checker := &countingChecker{err: err}
		s := New(checker, timer.NewManager(1, nil, observability.Discard()), Options{}, observability.Discard())
		s.ctx = context.Background()

		assert.NotPanics(t, s.runCheck)
		assert.Equal(t, int32(1), checker.calls.Load())
	}
}

func TestScheduler_DailyUsesLocation(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*3600)
	// 2024-05-01 00:30 UTC is 07:30 in Bangkok
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 0, 30, 0, 0, time.UTC))
	timers := timer.NewManager(1, clock, observability.Discard())

	s := New(&countingChecker{}, timers, Options{Location: bangkok}, observability.Discard())

	ran := make(chan struct{}, 1)
	require.NoError(t, s.Daily("daily_forecast", alarming.TimeOfDay{Hour: 8}, func(ctx context.Context) error {
		ran <- struct{}{}
		return errors.New("telegram down")
	}))

	due, ok := timers.NextDue("daily_forecast")
	require.True(t, ok)
	assert.True(t, due.Equal(time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC)), "got %s", due)

	timers.Start(context.Background())
	defer timers.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(30 * time.Minute)

	select {
	case <-ran:
	case <-ctx.Done():
		t.Fatal("daily job did not run")
	}

	// A failed run is still rescheduled for the next day
	require.Eventually(t, func() bool {
		due, ok := timers.NextDue("daily_forecast")
		return ok && due.Equal(time.Date(2024, 5, 2, 1, 0, 0, 0, time.UTC))
	}, 2*time.Second, 10*time.Millisecond)
}
