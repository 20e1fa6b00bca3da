package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`

	// Telegram and Weather are checked by ValidateBot; only the bot and
	// scheduler processes need their secrets.
	Telegram TelegramConfig `validate:"-"`
	Weather  WeatherConfig  `validate:"-"`

	Alert       AlertConfig
	Schedule    ScheduleConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Aggregation AggregationConfig
	SMTP        SMTPConfig
	HTTP        HTTPConfig
}

type TelegramConfig struct {
	Token   string  `envconfig:"TELEGRAM_TOKEN" validate:"required"`
	ChatIDs []int64 `envconfig:"ALLOWED_CHAT_IDS" validate:"required,min=1"`
	// AdminIDs may use /debug and see the admin help section
	AdminIDs []int64 `envconfig:"ADMIN_USER_IDS"`
	// RecipientLocales maps chat ID to locale, e.g. "1001:ru,1002:en"
	RecipientLocales map[int64]string `envconfig:"RECIPIENT_LOCALES" validate:"omitempty,dive,oneof=en ru"`
	DefaultLocale    string           `envconfig:"DEFAULT_LANGUAGE" default:"en" validate:"oneof=en ru"`
}

type WeatherConfig struct {
	APIKey    string        `envconfig:"OPENWEATHER_API_KEY" validate:"required"`
	BaseURL   string        `envconfig:"OPENWEATHER_BASE_URL" default:"https://api.openweathermap.org/data/2.5" validate:"url"`
	Latitude  float64       `envconfig:"LATITUDE" default:"12.360176" validate:"gte=-90,lte=90"`
	Longitude float64       `envconfig:"LONGITUDE" default:"99.996044" validate:"gte=-180,lte=180"`
	Timeout   time.Duration `envconfig:"OPENWEATHER_TIMEOUT" default:"10s"`
}

type AlertConfig struct {
	ThresholdKnots  float64 `envconfig:"WIND_THRESHOLD_KNOTS" default:"15" validate:"gt=0"`
	StartTime       string  `envconfig:"ALERT_START_TIME" default:"08:00" validate:"required"`
	EndTime         string  `envconfig:"ALERT_END_TIME" default:"17:00" validate:"required"`
	CooldownMinutes int     `envconfig:"ALERT_COOLDOWN_MINUTES" default:"1440" validate:"min=1"`
	// Timezone is the location the alert window and forecast time are read in
	Timezone    string `envconfig:"ALERT_TIMEZONE" default:"UTC"`
	Parallelism int    `envconfig:"ALERT_PARALLELISM" default:"4" validate:"min=1,max=64"`
}

// Cooldown returns the cooldown interval
func (a AlertConfig) Cooldown() time.Duration {
	return time.Duration(a.CooldownMinutes) * time.Minute
}

// Location resolves Timezone
func (a AlertConfig) Location() (*time.Location, error) {
	return time.LoadLocation(a.Timezone)
}

type ScheduleConfig struct {
	CheckIntervalMinutes int    `envconfig:"WEATHER_CHECK_INTERVAL_MINUTES" default:"10" validate:"min=1"`
	ForecastTime         string `envconfig:"FORECAST_TIME" default:"08:00" validate:"required"`
	// RunTimeout bounds one scheduled check
	RunTimeout time.Duration `envconfig:"CHECK_RUN_TIMEOUT" default:"2m"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"wind_bot"`
	Password string `envconfig:"DB_PASSWORD" default:"wind_bot"`
	DBName   string `envconfig:"DB_NAME" default:"wind_bot_db"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	MigrationsDir string `envconfig:"DB_MIGRATIONS_DIR" default:"migrations"`
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type KafkaConfig struct {
	// Brokers empty disables alert event publishing
	Brokers       []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	TopicAlerts   string   `envconfig:"KAFKA_TOPIC_ALERTS" default:"wind.alerts"`
	NumPartitions int      `envconfig:"KAFKA_NUM_PARTITIONS" default:"3" validate:"min=1"`
}

// Enabled reports whether any broker is configured
func (k KafkaConfig) Enabled() bool {
	for _, b := range k.Brokers {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}

type AggregationConfig struct {
	DailyTime string `envconfig:"AGGREGATION_DAILY_TIME" default:"00:05" validate:"required"`
}

type SMTPConfig struct {
	Host     string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	Username string `envconfig:"SMTP_USERNAME"`
	Password string `envconfig:"SMTP_PASSWORD"`
	From     string `envconfig:"SMTP_FROM" default:"wind-bot@example.com" validate:"email"`
	To       string `envconfig:"SMTP_TO" default:"admin@example.com" validate:"email"`

	DigestBatchSize     int           `envconfig:"DIGEST_BATCH_SIZE" default:"20" validate:"min=1"`
	DigestFlushInterval time.Duration `envconfig:"DIGEST_FLUSH_INTERVAL" default:"5m"`
}

type HTTPConfig struct {
	Addr string `envconfig:"HTTP_ADDR" default:":8080"`
	// MetricsAddr is where the bot process serves /metrics; empty disables it
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9102"`
}

// Load reads .env (if present) and the environment, then validates the
// settings shared by every process.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for name, v := range map[string]string{
		"ALERT_START_TIME":       c.Alert.StartTime,
		"ALERT_END_TIME":         c.Alert.EndTime,
		"FORECAST_TIME":          c.Schedule.ForecastTime,
		"AGGREGATION_DAILY_TIME": c.Aggregation.DailyTime,
	} {
		if !validClock(v) {
			return fmt.Errorf("invalid configuration: %s=%q (expected HH:MM)", name, v)
		}
	}

	if _, err := c.Alert.Location(); err != nil {
		return fmt.Errorf("invalid configuration: ALERT_TIMEZONE: %w", err)
	}
	return nil
}

// ValidateBot checks the secrets needed by processes that talk to
// Telegram and OpenWeather.
func (c *Config) ValidateBot() error {
	v := validator.New()
	if err := v.Struct(c.Telegram); err != nil {
		return fmt.Errorf("invalid telegram configuration: %w", err)
	}
	if err := v.Struct(c.Weather); err != nil {
		return fmt.Errorf("invalid weather configuration: %w", err)
	}
	return nil
}

func validClock(s string) bool {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return false
	}
	return h >= 0 && h <= 23 && m >= 0 && m <= 59
}
