package openweather

import (
	"time"

	"github.com/smukkama/wind-alert-bot/internal/weather"
)

// payload mirrors the fields we use from /data/2.5/weather.
type payload struct {
	Dt       int64  `json:"dt"`
	Timezone int    `json:"timezone"` // shift in seconds from UTC
	Name     string `json:"name"`
	Main     struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Pressure  int     `json:"pressure"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64  `json:"speed"`
		Gust  *float64 `json:"gust"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Rain *precipitation `json:"rain"`
	Snow *precipitation `json:"snow"`
	Sys  struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Weather []weather.Condition `json:"weather"`
}

type precipitation struct {
	OneH   *float64 `json:"1h"`
	ThreeH *float64 `json:"3h"`
}

func (p payload) snapshot() *weather.Snapshot {
	// Timestamps are rendered in the location's own offset so HH:MM matches local sunrise.
	loc := time.FixedZone("", p.Timezone)

	s := &weather.Snapshot{
		Temperature:  p.Main.Temp,
		FeelsLike:    p.Main.FeelsLike,
		Pressure:     p.Main.Pressure,
		Humidity:     p.Main.Humidity,
		Clouds:       p.Clouds.All,
		Wind:         weather.Wind{SpeedMS: p.Wind.Speed, GustMS: p.Wind.Gust},
		Conditions:   p.Weather,
		Timestamp:    time.Unix(p.Dt, 0).In(loc),
		Sunrise:      time.Unix(p.Sys.Sunrise, 0).In(loc),
		Sunset:       time.Unix(p.Sys.Sunset, 0).In(loc),
		LocationName: p.Name,
		CountryCode:  p.Sys.Country,
	}
	if p.Rain != nil {
		s.Rain1h, s.Rain3h = p.Rain.OneH, p.Rain.ThreeH
	}
	if p.Snow != nil {
		s.Snow1h, s.Snow3h = p.Snow.OneH, p.Snow.ThreeH
	}
	if s.Conditions == nil {
		s.Conditions = []weather.Condition{}
	}
	return s
}
