// Package message renders weather snapshots into chat messages.
package message

import (
	"fmt"
	"strings"

	"github.com/smukkama/wind-alert-bot/internal/weather"
)

// Kind selects the message layout
type Kind string

const (
	KindCurrentWeather Kind = "current_weather"
	KindDailyForecast  Kind = "daily_forecast"
	KindWindAlert      Kind = "wind_alert"
)

// ParseMode is the markup dialect understood by the messaging platform.
// The formatter only emits it; senders pass it through untouched.
type ParseMode string

const (
	ParseModeMarkdown ParseMode = "Markdown"
	ParseModePlain    ParseMode = ""
)

// Format renders a snapshot for the given kind and locale.
// Locale codes are case-insensitive; unsupported ones render as English.
func Format(s weather.Snapshot, kind Kind, locale Locale) string {
	t := catalogs[ParseLocale(string(locale))]

	windEmoji := weather.WindEmoji(s.Wind.SpeedKnots())
	location := locationSuffix(s, t.forWord)
	wind := fmt.Sprintf("*%.1f %s / %.1f %s*%s",
		s.Wind.SpeedKnots(), t.knots, s.Wind.SpeedMS, t.ms, gustClause(s.Wind, t))

	var b strings.Builder
	switch kind {
	case KindWindAlert:
		fmt.Fprintf(&b, "*%s*%s %s\n\n", t.windAlertHeader, location, windEmoji)
		fmt.Fprintf(&b, "%s %s\n", t.windAlertLead, wind)
		b.WriteString(t.windAlertClosing)
		return b.String()

	case KindDailyForecast:
		fmt.Fprintf(&b, "*%s*%s %s (%s)\n\n", t.forecastHeader, location,
			weather.ConditionEmoji(s), s.Timestamp.Format("02.01.2006"))
		writeBody(&b, s, t, windEmoji, wind)
		b.WriteString(t.forecastClosing)
		return b.String()

	default:
		fmt.Fprintf(&b, "*%s*%s %s (%s, %s)\n\n", t.currentHeader, location,
			weather.ConditionEmoji(s), s.Timestamp.Format("02.01.2006"), s.Timestamp.Format("15:04"))
		writeBody(&b, s, t, windEmoji, wind)
		fmt.Fprintf(&b, "%s: %s", t.conditions, conditionList(s.Conditions))
		return b.String()
	}
}

func writeBody(b *strings.Builder, s weather.Snapshot, t catalog, windEmoji, wind string) {
	fmt.Fprintf(b, "🌡️ %s: *%.1f°C* (%s %.1f°C)\n", t.temperature, s.Temperature, t.feelsLike, s.FeelsLike)
	fmt.Fprintf(b, "%s %s: %s\n", windEmoji, t.wind, wind)
	fmt.Fprintf(b, "💧 %s: %d%%\n", t.humidity, s.Humidity)
	fmt.Fprintf(b, "☁️ %s: %d%%\n", t.clouds, s.Clouds)
	fmt.Fprintf(b, "🌅 %s: %s\n", t.sunrise, s.Sunrise.Format("15:04"))
	fmt.Fprintf(b, "🌇 %s: %s\n\n", t.sunset, s.Sunset.Format("15:04"))
}

// locationSuffix is empty unless a location name is present; the country
// code is only appended when both are set.
func locationSuffix(s weather.Snapshot, forWord string) string {
	if s.LocationName == "" {
		return ""
	}
	suffix := " " + forWord + " " + s.LocationName
	if s.CountryCode != "" {
		suffix += ", " + s.CountryCode
	}
	return suffix
}

func gustClause(w weather.Wind, t catalog) string {
	gust, ok := w.GustKnots()
	if !ok {
		return ""
	}
	return fmt.Sprintf(" (%s: %.1f %s / %.1f %s)", t.gusts, gust, t.knots, *w.GustMS, t.ms)
}

func conditionList(conds []weather.Condition) string {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		parts = append(parts, c.Description)
	}
	return strings.Join(parts, ", ")
}
