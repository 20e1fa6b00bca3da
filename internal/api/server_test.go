package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smukkama/wind-alert-bot/internal/database"
	"github.com/smukkama/wind-alert-bot/internal/observability"
	"github.com/smukkama/wind-alert-bot/internal/stats"
)

var now = time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC)

type fakeSummaries struct {
	since time.Time
	out   []database.DailySummary
	err   error
}

func (f *fakeSummaries) Summaries(ctx context.Context, since time.Time) ([]database.DailySummary, error) {
	f.since = since
	return f.out, f.err
}

type apiHarness struct {
	store     *stats.MemoryStore
	recorder  *stats.Recorder
	summaries *fakeSummaries
	handler   http.Handler
}

func newAPIHarness(t *testing.T, checks map[string]HealthCheck) *apiHarness {
	t.Helper()
	clock := clockwork.NewFakeClockAt(now)
	h := &apiHarness{store: stats.NewMemoryStore(), summaries: &fakeSummaries{}}
	h.recorder = stats.NewRecorder(h.store.Factory(), clock)

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "wind_alert_test_total", Help: "test"}))

	srv := NewServer(h.recorder, Options{
		Summaries: h.summaries,
		Checks:    checks,
		Gatherer:  reg,
		Clock:     clock,
	}, observability.Discard())
	h.handler = srv.Routes()
	return h
}

func (h *apiHarness) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestLatestStats_NotFoundBeforeFirstUpdate(t *testing.T) {
	h := newAPIHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/api/stats", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[errorResponse](t, rec)
	assert.Equal(t, "not_found", body.Error.Code)
	assert.NotEmpty(t, body.Error.RequestID)
}

func TestUpdateStats_AddsCountersAndOverwritesGauge(t *testing.T) {
	h := newAPIHarness(t, nil)

	rec := h.do(t, http.MethodPost, "/api/stats", `{"weather_commands": 2, "active_users": 10}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/api/stats", `{"weather_commands": 1, "active_users": 4}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[stats.Record](t, rec)
	assert.Equal(t, int64(3), got.WeatherCommands)
	assert.Equal(t, int64(4), got.ActiveUsers)
	assert.Equal(t, stats.PeriodFor(now), got.Period)
}

func TestUpdateStats_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"empty body", "", "invalid_json"},
		{"empty delta", `{}`, "validation_failed"},
		{"negative counter", `{"alerts_sent": -1}`, "validation_failed"},
		{"unknown field", `{"wind_commands": 1}`, "invalid_json"},
		{"two objects", `{"alerts_sent": 1}{"alerts_sent": 1}`, "invalid_json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newAPIHarness(t, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/stats", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decode[errorResponse](t, rec).Error.Code)
		})
	}
}

func TestStatsHistory(t *testing.T) {
	h := newAPIHarness(t, nil)
	for i := 0; i < 5; i++ {
		h.store.Seed(stats.Record{Period: stats.PeriodFor(now).AddDate(0, 0, -i), ScheduledChecks: int64(i)})
	}

	rec := h.do(t, http.MethodGet, "/api/stats/history?days=3", "")
	require.Equal(t, http.StatusOK, rec.Code)

	records := decode[[]stats.Record](t, rec)
	require.Len(t, records, 3)
	assert.Equal(t, stats.PeriodFor(now), records[0].Period)

	rec = h.do(t, http.MethodGet, "/api/stats/history?days=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddWeatherLog_DerivesMissingUnit(t *testing.T) {
	h := newAPIHarness(t, nil)

	rec := h.do(t, http.MethodPost, "/api/weather_log", `{"temperature": 31.5, "wind_speed_ms": 10.0, "has_rain": true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[stats.WeatherLog](t, rec)
	require.NotNil(t, created.WindSpeedKnots)
	assert.InDelta(t, 19.4384, *created.WindSpeedKnots, 1e-3)
	assert.True(t, created.HasRain)
	assert.Equal(t, now, created.Timestamp.UTC())

	rec = h.do(t, http.MethodGet, "/api/weather?hours=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]stats.WeatherLog](t, rec), 1)
}

func TestAddWeatherLog_Validation(t *testing.T) {
	h := newAPIHarness(t, nil)

	rec := h.do(t, http.MethodPost, "/api/weather_log", `{"wind_speed_knots": -3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, h.store.Logs())
}

func TestRecentWeather_EmptyIsArray(t *testing.T) {
	h := newAPIHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/api/weather", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/api/weather?hours=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummaries(t *testing.T) {
	h := newAPIHarness(t, nil)
	maxKn := 22.5
	h.summaries.out = []database.DailySummary{{
		Date:         time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		MaxWindKnots: &maxKn,
		SampleCount:  144,
	}}

	rec := h.do(t, http.MethodGet, "/api/summaries?days=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"date":"2024-05-02","min_wind_knots":null,"max_wind_knots":22.5,
		"avg_wind_knots":null,"max_temp":null,"rain_samples":0,"sample_count":144}]`, rec.Body.String())
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), h.summaries.since)
}

func TestSummaries_StoreErrorIsOpaque(t *testing.T) {
	h := newAPIHarness(t, nil)
	h.summaries.err = errors.New("pq: password authentication failed")

	rec := h.do(t, http.MethodGet, "/api/summaries", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestHealth(t *testing.T) {
	h := newAPIHarness(t, map[string]HealthCheck{
		"postgres": func(ctx context.Context) error { return nil },
	})
	rec := h.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"postgres":"ok"}}`, rec.Body.String())

	h = newAPIHarness(t, map[string]HealthCheck{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("dial tcp: connection refused") },
	})
	rec = h.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"postgres":"ok","redis":"unavailable"}}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := newAPIHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wind_alert_test_total")
}
