package message

import "strings"

// Locale is a supported message language
type Locale string

const (
	English Locale = "en"
	Russian Locale = "ru"

	DefaultLocale = English
)

// ParseLocale maps a language code to a supported locale, falling back to English.
func ParseLocale(code string) Locale {
	l := Locale(strings.ToLower(strings.TrimSpace(code)))
	if _, ok := catalogs[l]; ok {
		return l
	}
	return DefaultLocale
}

// IsSupported reports whether code names a locale with its own catalog
func IsSupported(code string) bool {
	_, ok := catalogs[Locale(strings.ToLower(strings.TrimSpace(code)))]
	return ok
}

type catalog struct {
	forWord string
	knots   string
	ms      string
	gusts   string

	currentHeader   string
	forecastHeader  string
	windAlertHeader string

	temperature string
	feelsLike   string
	wind        string
	humidity    string
	clouds      string
	sunrise     string
	sunset      string
	conditions  string

	forecastClosing  string
	windAlertLead    string
	windAlertClosing string
}

var catalogs = map[Locale]catalog{
	English: {
		forWord:          "for",
		knots:            "kn",
		ms:               "m/s",
		gusts:            "gusts",
		currentHeader:    "Current Weather",
		forecastHeader:   "Daily Forecast",
		windAlertHeader:  "Wind Alert!",
		temperature:      "Temperature",
		feelsLike:        "feels like",
		wind:             "Wind",
		humidity:         "Humidity",
		clouds:           "Clouds",
		sunrise:          "Sunrise",
		sunset:           "Sunset",
		conditions:       "Conditions",
		forecastClosing:  "Have a great day! 🏄‍♂️🪁",
		windAlertLead:    "Current wind speed is",
		windAlertClosing: "Time to hit the water! 🏄‍♂️🪁",
	},
	Russian: {
		forWord:          "для",
		knots:            "уз",
		ms:               "м/с",
		gusts:            "порывы",
		currentHeader:    "Текущая погода",
		forecastHeader:   "Прогноз на день",
		windAlertHeader:  "Ветровая тревога!",
		temperature:      "Температура",
		feelsLike:        "ощущается как",
		wind:             "Ветер",
		humidity:         "Влажность",
		clouds:           "Облачность",
		sunrise:          "Восход",
		sunset:           "Закат",
		conditions:       "Условия",
		forecastClosing:  "Хорошего дня! 🏄‍♂️🪁",
		windAlertLead:    "Текущая скорость ветра",
		windAlertClosing: "Время кататься! 🏄‍♂️🪁",
	},
}
