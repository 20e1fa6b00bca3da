package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smukkama/wind-alert-bot/internal/alarming"
	"github.com/smukkama/wind-alert-bot/internal/message"
	"github.com/smukkama/wind-alert-bot/internal/stats"
	"github.com/smukkama/wind-alert-bot/internal/weather"
)

func TestPrintSender(t *testing.T) {
	var buf bytes.Buffer

	err := printSender(&buf).Send(context.Background(), 1001, "*Wind alert*", message.ParseModeMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "--- to 1001 ---\n*Wind alert*\n\n", buf.String())
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer

	printReport(&buf, alarming.RunReport{
		RunID:     "abc",
		Outcome:   alarming.OutcomeAlerted,
		Snapshot:  &weather.Snapshot{Temperature: 30.5},
		WindKnots: 18.2,
		Sent:      []int64{1001, 1002},
		Skipped:   []int64{1003},
	}, 15)

	assert.Equal(t, "run abc: alerted\n"+
		"wind 18.2 kn (threshold 15.0 kn), 30.5°C\n"+
		"sent: 1001, 1002\n"+
		"skipped: 1003\n"+
		"failed: -\n", buf.String())
}

func TestPrintReport_NoSnapshot(t *testing.T) {
	var buf bytes.Buffer

	printReport(&buf, alarming.RunReport{RunID: "x", Outcome: alarming.OutcomeOutsideWindow}, 15)

	assert.NotContains(t, buf.String(), "threshold")
	assert.Contains(t, buf.String(), "outside_window")
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	printStats(&buf, nil)
	assert.Equal(t, "no stats recorded yet\n", buf.String())

	buf.Reset()
	printStats(&buf, []stats.Record{{
		Period:            time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
		MessagesProcessed: 12,
		WeatherCommands:   4,
		AlertsSent:        2,
		ActiveUsers:       3,
	}})
	out := buf.String()
	assert.Contains(t, out, "DAY")
	assert.Contains(t, out, "2024-05-03")
}

func TestPrintCooldowns(t *testing.T) {
	now := time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer

	printCooldowns(&buf, map[int64]time.Time{
		1002: now.Add(-2 * time.Hour),
		1001: now.Add(-30 * time.Minute),
	}, time.Hour, now)

	assert.Equal(t,
		"1001\t2024-05-03T11:30:00Z\tcooling down until 2024-05-03T12:30:00Z\n"+
			"1002\t2024-05-03T10:00:00Z\tready\n", buf.String())

	buf.Reset()
	printCooldowns(&buf, nil, time.Hour, now)
	assert.Equal(t, "no alerts recorded\n", buf.String())
}
