// Package openweather implements weather.Source on top of the OpenWeather
// current weather API.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/smukkama/wind-alert-bot/internal/weather"
	"github.com/sony/gobreaker"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoAPIKey      = errors.New("openweather api key is not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// BackoffConfig controls exponential backoff between attempts.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Options configures a Client.
type Options struct {
	APIKey    string
	Latitude  float64
	Longitude float64
	BaseURL   string
	HTTP      *http.Client
	Backoff   BackoffConfig
}

// Client fetches current conditions for one fixed location.
type Client struct {
	opts    Options
	circuit *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

var _ weather.Source = (*Client)(nil)

// NewClient creates a new OpenWeather client with retry and circuit breaking.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTP == nil {
		opts.HTTP = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Backoff == (BackoffConfig{}) {
		opts.Backoff = BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		}
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{opts: opts, circuit: cb, logger: logger}
}

// FetchCurrent returns the current snapshot, or false on any failure.
func (c *Client) FetchCurrent(ctx context.Context) (*weather.Snapshot, bool) {
	snap, err := c.Fetch(ctx)
	if err != nil {
		c.logger.Error("weather fetch failed", "error", err)
		return nil, false
	}
	return snap, true
}

// Fetch performs the request and parses the response.
func (c *Client) Fetch(ctx context.Context) (*weather.Snapshot, error) {
	if c.opts.APIKey == "" {
		return nil, errNoAPIKey
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(c.opts.Latitude, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(c.opts.Longitude, 'f', -1, 64))
		values.Set("appid", c.opts.APIKey)
		values.Set("units", "metric")
		return http.NewRequest(http.MethodGet, c.opts.BaseURL+"?"+values.Encode(), nil)
	}

	resp, err := c.doWithResilience(ctx, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var p payload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode weather payload: %w", err)
	}

	return p.snapshot(), nil
}

// doWithResilience executes the request with retries, exponential backoff
// and the circuit breaker.
func (c *Client) doWithResilience(ctx context.Context, buildRequest func() (*http.Request, error)) (*http.Response, error) {
	cfg := c.opts.Backoff
	if cfg.MaxRetries < 0 || cfg.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		result, err := c.circuit.Execute(func() (interface{}, error) {
			resp, execErr := c.opts.HTTP.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				resp.Body.Close()
				return nil, errRateLimited
			case resp.StatusCode >= 500:
				resp.Body.Close()
				return nil, errServerError
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
			}
			return resp, nil
		})
		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		// 4xx other than 429 will not get better on retry
		if errors.Is(err, errUnexpected) {
			return nil, err
		}
		if attempt >= cfg.MaxRetries {
			return nil, err
		}

		delay := cfg.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if cfg.MaxInterval > 0 && delay > cfg.MaxInterval {
			delay = cfg.MaxInterval
		}
		c.logger.Debug("retrying weather fetch", "attempt", attempt+1, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		attempt++
	}
}
