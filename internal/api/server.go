// Package api serves bot usage stats and weather history over HTTP.
//
// Routes:
//   - GET  /api/stats              latest period's counters
//   - GET  /api/stats/history      counters for the last ?days=N periods
//   - POST /api/stats              apply a partial counter update
//   - GET  /api/weather            weather log for the last ?hours=N
//   - POST /api/weather_log        append a weather sample
//   - GET  /api/summaries          daily weather summaries for ?days=N
//   - GET  /healthz, GET /metrics
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smukkama/wind-alert-bot/internal/database"
	"github.com/smukkama/wind-alert-bot/internal/stats"
	"github.com/smukkama/wind-alert-bot/internal/weather"
)

// StatsService is the subset of *stats.Recorder the API needs
type StatsService interface {
	LatestStats(ctx context.Context) (stats.Record, error)
	StatsHistory(ctx context.Context, days int) ([]stats.Record, error)
	UpdateOrCreateStats(ctx context.Context, d stats.Delta) (stats.Record, error)
	AddLog(ctx context.Context, entry stats.WeatherLog) (stats.WeatherLog, error)
	RecentLogs(ctx context.Context, window time.Duration, limit int) ([]stats.WeatherLog, error)
}

// SummaryService lists daily weather summaries
type SummaryService interface {
	Summaries(ctx context.Context, since time.Time) ([]database.DailySummary, error)
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Server exposes the HTTP API
type Server struct {
	stats     StatsService
	summaries SummaryService
	checks    map[string]HealthCheck
	gatherer  prometheus.Gatherer
	validate  *validator.Validate
	clock     clockwork.Clock
	logger    *slog.Logger
}

// Options configures optional parts of the server
type Options struct {
	// Summaries may be nil; /api/summaries then answers 404.
	Summaries SummaryService
	Checks    map[string]HealthCheck
	// Gatherer defaults to the global Prometheus registry.
	Gatherer prometheus.Gatherer
	Clock    clockwork.Clock
}

// NewServer creates an API server
func NewServer(svc StatsService, opts Options, logger *slog.Logger) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Server{
		stats:     svc,
		summaries: opts.Summaries,
		checks:    opts.Checks,
		gatherer:  opts.Gatherer,
		validate:  validator.New(),
		clock:     opts.Clock,
		logger:    logger,
	}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleLatestStats)
		r.Get("/stats/history", s.handleStatsHistory)
		r.Post("/stats", s.handleUpdateStats)
		r.Get("/weather", s.handleRecentWeather)
		r.Post("/weather_log", s.handleAddWeatherLog)
		if s.summaries != nil {
			r.Get("/summaries", s.handleSummaries)
		}
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := s.clock.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", s.clock.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.Warn("health check failed", "dependency", name, "error", err)
			results[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{"status": overall, "checks": results})
}

func (s *Server) handleLatestStats(w http.ResponseWriter, r *http.Request) {
	rec, err := s.stats.LatestStats(r.Context())
	if errors.Is(err, stats.ErrNotFound) {
		writeError(w, r, &apiError{status: http.StatusNotFound, code: "not_found", message: "no stats recorded yet"})
		return
	}
	if err != nil {
		s.logger.Error("failed to load latest stats", "error", err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", 7, 1, 365)
	if err != nil {
		writeError(w, r, err)
		return
	}

	records, err := s.stats.StatsHistory(r.Context(), days)
	if err != nil {
		s.logger.Error("failed to load stats history", "error", err)
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []stats.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleUpdateStats(w http.ResponseWriter, r *http.Request) {
	var d stats.Delta
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.validate.Struct(d); err != nil {
		writeError(w, r, badRequest("validation_failed", "%v", err))
		return
	}
	if d.IsEmpty() {
		writeError(w, r, badRequest("validation_failed", "at least one counter must be set"))
		return
	}

	rec, err := s.stats.UpdateOrCreateStats(r.Context(), d)
	if err != nil {
		s.logger.Error("failed to update stats", "error", err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRecentWeather(w http.ResponseWriter, r *http.Request) {
	hours, err := intParam(r, "hours", 24, 1, 24*30)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logs, err := s.stats.RecentLogs(r.Context(), time.Duration(hours)*time.Hour, 0)
	if err != nil {
		s.logger.Error("failed to load weather log", "error", err)
		writeError(w, r, err)
		return
	}
	if logs == nil {
		logs = []stats.WeatherLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

type weatherLogRequest struct {
	Temperature    *float64 `json:"temperature" validate:"omitempty,gte=-90,lte=70"`
	WindSpeedKnots *float64 `json:"wind_speed_knots" validate:"omitempty,gte=0,lte=250"`
	WindSpeedMS    *float64 `json:"wind_speed_ms" validate:"omitempty,gte=0,lte=130"`
	HasRain        bool     `json:"has_rain"`
}

func (s *Server) handleAddWeatherLog(w http.ResponseWriter, r *http.Request) {
	var req weatherLogRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, r, badRequest("validation_failed", "%v", err))
		return
	}

	entry := stats.WeatherLog{
		Temperature:    req.Temperature,
		WindSpeedKnots: req.WindSpeedKnots,
		WindSpeedMS:    req.WindSpeedMS,
		HasRain:        req.HasRain,
	}
	// Fill in whichever wind unit is missing
	switch {
	case entry.WindSpeedKnots == nil && entry.WindSpeedMS != nil:
		kn := weather.MsToKnots(*entry.WindSpeedMS)
		entry.WindSpeedKnots = &kn
	case entry.WindSpeedMS == nil && entry.WindSpeedKnots != nil:
		ms := weather.KnotsToMs(*entry.WindSpeedKnots)
		entry.WindSpeedMS = &ms
	}

	created, err := s.stats.AddLog(r.Context(), entry)
	if err != nil {
		s.logger.Error("failed to add weather log", "error", err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type summaryResponse struct {
	Date         string   `json:"date"`
	MinWindKnots *float64 `json:"min_wind_knots"`
	MaxWindKnots *float64 `json:"max_wind_knots"`
	AvgWindKnots *float64 `json:"avg_wind_knots"`
	MaxTemp      *float64 `json:"max_temp"`
	RainSamples  int      `json:"rain_samples"`
	SampleCount  int      `json:"sample_count"`
}

func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days", 7, 1, 365)
	if err != nil {
		writeError(w, r, err)
		return
	}

	since := stats.PeriodFor(s.clock.Now()).AddDate(0, 0, -days)
	summaries, err := s.summaries.Summaries(r.Context(), since)
	if err != nil {
		s.logger.Error("failed to load daily summaries", "error", err)
		writeError(w, r, err)
		return
	}

	out := make([]summaryResponse, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, summaryResponse{
			Date:         sum.Date.Format("2006-01-02"),
			MinWindKnots: sum.MinWindKnots,
			MaxWindKnots: sum.MaxWindKnots,
			AvgWindKnots: sum.AvgWindKnots,
			MaxTemp:      sum.MaxTemp,
			RainSamples:  sum.RainSamples,
			SampleCount:  sum.SampleCount,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// intParam reads an optional integer query parameter within [lo, hi]
func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, badRequest("invalid_parameter", "%s must be an integer between %d and %d", name, lo, hi)
	}
	return v, nil
}
