package weather

import "strings"

var conditionEmoji = map[string]string{
	"clear":        "☀️",
	"clouds":       "☁️",
	"mist":         "🌫️",
	"fog":          "🌫️",
	"haze":         "🌫️",
	"smoke":        "🌫️",
	"dust":         "🌫️",
	"sand":         "🌫️",
	"ash":          "🌫️",
	"squall":       "💨",
	"tornado":      "🌪️",
	"thunderstorm": "⛈️",
	"drizzle":      "🌦️",
}

const defaultConditionEmoji = "🌤️"

// ConditionEmoji picks an emoji for the snapshot's dominant condition.
// Precipitation wins over the first condition tag.
func ConditionEmoji(s Snapshot) string {
	if len(s.Conditions) == 0 {
		return defaultConditionEmoji
	}
	if s.HasRain() {
		return "🌧️"
	}
	if s.HasSnow() {
		return "❄️"
	}
	if e, ok := conditionEmoji[strings.ToLower(s.Conditions[0].Main)]; ok {
		return e
	}
	return defaultConditionEmoji
}

// WindEmoji picks an emoji for a wind speed in knots
func WindEmoji(speedKnots float64) string {
	switch {
	case speedKnots < 5:
		return "🪶" // light breeze
	case speedKnots < 10:
		return "🍃"
	case speedKnots < 15:
		return "💨"
	case speedKnots < 20:
		return "🌬️"
	case speedKnots < 30:
		return "🚩" // near gale
	default:
		return "🌪️"
	}
}
