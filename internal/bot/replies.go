package bot

import "github.com/smukkama/wind-alert-bot/internal/message"

type replies struct {
	greeting      string
	notSubscribed string
	help          string
	adminHelp     string
	plainText     string
	noWeather     string
	noForecast    string
	languageUsage string
	languageSet   string
	languageBad   string
	adminOnly     string
	debugRunning  string
	failure       string
}

var catalog = map[message.Locale]replies{
	message.English: {
		greeting: "Hi! 👋 I'm your Wind Sports Assistant Bot. I provide:\n\n" +
			"• Current weather conditions 🌤️\n" +
			"• Wind speed information 💨\n" +
			"• Daily forecasts ⛵\n" +
			"• Wind alerts when conditions are good 🏄‍♂️\n\n" +
			"Use /help to see available commands.",
		notSubscribed: "Note: this chat is not in the list of chats for automated alerts. " +
			"You can still use commands to get weather information.",
		help: "*Available Commands:*\n\n" +
			"/weather - Get current weather conditions\n" +
			"/forecast - Get today's forecast\n" +
			"/language - Set your preferred language (en/ru)\n" +
			"/help - Show this help message",
		adminHelp: "\n\n*Admin Commands:*\n/debug - Run the wind check now",
		plainText: "I can provide weather and wind information. Please use the following commands:\n\n" +
			"/weather - Current weather conditions\n" +
			"/forecast - Today's forecast\n" +
			"/language - Set language (en/ru)\n" +
			"/help - Show this help message",
		noWeather:     "Sorry, I couldn't retrieve the weather data. Please try again later.",
		noForecast:    "Sorry, I couldn't retrieve the forecast data. Please try again later.",
		languageUsage: "Please specify a language code (en/ru).\nExample: `/language en`",
		languageSet:   "Language set to English! 🇬🇧",
		languageBad:   "Sorry, only English (en) and Russian (ru) are supported.",
		adminOnly:     "Sorry, this command is only available to admins.",
		debugRunning:  "Wind check: %s, wind %.1f kn (threshold %.1f kn). Sent %d, skipped %d, failed %d.",
		failure:       "Sorry, there was an error processing your request.",
	},
	message.Russian: {
		greeting: "Привет! 👋 Я бот-помощник для ветровых видов спорта. Я сообщаю:\n\n" +
			"• Текущую погоду 🌤️\n" +
			"• Скорость ветра 💨\n" +
			"• Прогноз на день ⛵\n" +
			"• Оповещения, когда ветер подходящий 🏄‍♂️\n\n" +
			"Используйте /help, чтобы увидеть доступные команды.",
		notSubscribed: "Примечание: этот чат не входит в список чатов для автоматических оповещений. " +
			"Вы всё равно можете использовать команды для получения погоды.",
		help: "*Доступные команды:*\n\n" +
			"/weather - Текущие погодные условия\n" +
			"/forecast - Прогноз на сегодня\n" +
			"/language - Выбрать язык (en/ru)\n" +
			"/help - Показать это сообщение помощи",
		adminHelp: "\n\n*Команды администратора:*\n/debug - Запустить проверку ветра сейчас",
		plainText: "Я могу предоставить информацию о погоде и ветре. Пожалуйста, используйте следующие команды:\n\n" +
			"/weather - Текущие погодные условия\n" +
			"/forecast - Прогноз на сегодня\n" +
			"/language - Выбрать язык (en/ru)\n" +
			"/help - Показать это сообщение помощи",
		noWeather:     "Извините, не удалось получить данные о погоде.",
		noForecast:    "Извините, не удалось получить данные прогноза.",
		languageUsage: "Пожалуйста, укажите код языка (en/ru).\nПример: `/language ru`",
		languageSet:   "Язык установлен на русский! 🇷🇺",
		languageBad:   "Извините, поддерживаются только английский (en) и русский (ru).",
		adminOnly:     "Извините, эта команда доступна только администраторам.",
		debugRunning:  "Проверка ветра: %s, ветер %.1f уз (порог %.1f уз). Отправлено %d, пропущено %d, ошибок %d.",
		failure:       "Извините, произошла ошибка при обработке команды.",
	},
}

func repliesFor(l message.Locale) replies {
	if r, ok := catalog[l]; ok {
		return r
	}
	return catalog[message.DefaultLocale]
}
