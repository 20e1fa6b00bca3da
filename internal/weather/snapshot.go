package weather

import (
	"context"
	"strings"
	"time"
)

// Wind is a wind measurement. Knot values are always derived from the
// m/s readings and never stored.
type Wind struct {
	SpeedMS float64  `json:"speed_ms"`
	GustMS  *float64 `json:"gust_ms,omitempty"`
}

// SpeedKnots returns the base wind speed in knots
func (w Wind) SpeedKnots() float64 {
	return MsToKnots(w.SpeedMS)
}

// GustKnots returns the gust speed in knots, if a gust was reported
func (w Wind) GustKnots() (float64, bool) {
	if w.GustMS == nil {
		return 0, false
	}
	return MsToKnots(*w.GustMS), true
}

// Condition is a single weather condition tag reported by the provider
type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"` // Rain, Snow, Clouds, ...
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Snapshot is the result of one fetch from the weather source.
// It is built once and never mutated.
type Snapshot struct {
	Temperature  float64     `json:"temperature"`
	FeelsLike    float64     `json:"feels_like"`
	Pressure     int         `json:"pressure"`
	Humidity     int         `json:"humidity"`
	Clouds       int         `json:"clouds"`
	Wind         Wind        `json:"wind"`
	Rain1h       *float64    `json:"rain_1h,omitempty"`
	Rain3h       *float64    `json:"rain_3h,omitempty"`
	Snow1h       *float64    `json:"snow_1h,omitempty"`
	Snow3h       *float64    `json:"snow_3h,omitempty"`
	Conditions   []Condition `json:"conditions"`
	Timestamp    time.Time   `json:"timestamp"`
	Sunrise      time.Time   `json:"sunrise"`
	Sunset       time.Time   `json:"sunset"`
	LocationName string      `json:"location_name,omitempty"`
	CountryCode  string      `json:"country_code,omitempty"`
}

// HasRain reports whether any rain amount is positive or a condition is tagged as rain
func (s Snapshot) HasRain() bool {
	return positive(s.Rain1h) || positive(s.Rain3h) || s.hasCondition("rain")
}

// HasSnow reports whether any snow amount is positive or a condition is tagged as snow
func (s Snapshot) HasSnow() bool {
	return positive(s.Snow1h) || positive(s.Snow3h) || s.hasCondition("snow")
}

func (s Snapshot) hasCondition(main string) bool {
	for _, c := range s.Conditions {
		if strings.EqualFold(c.Main, main) {
			return true
		}
	}
	return false
}

func positive(v *float64) bool {
	return v != nil && *v > 0
}

// Source fetches the current weather. It returns false on any failure
// (network, parse, auth); callers only need to check for absence.
type Source interface {
	FetchCurrent(ctx context.Context) (*Snapshot, bool)
}

// SourceFunc adapts a function to the Source interface
type SourceFunc func(ctx context.Context) (*Snapshot, bool)

// FetchCurrent calls f
func (f SourceFunc) FetchCurrent(ctx context.Context) (*Snapshot, bool) {
	return f(ctx)
}
