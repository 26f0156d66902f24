package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	TokenStoreFile  = "file"
	TokenStoreRedis = "redis"
)

type Config struct {
	Env            string
	Port           int
	MetricsEnabled bool

	CORS        CORSConfig
	Log         LogConfig
	Calendar    CalendarConfig
	Redis       RedisConfig
	Database    DatabaseConfig
	ShiftAlerts ShiftAlertsConfig
	Notifier    NotifierConfig
	Slack       SlackConfig
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CalendarConfig drives the calendar-bot provider access.
type CalendarConfig struct {
	ID              string `validate:"required"`
	CredentialsFile string `validate:"required"`
	TokenStore      string `validate:"oneof=file redis"`
	TokenFile       string `validate:"required_if=TokenStore file"`
	TokenRedisKey   string `validate:"required_if=TokenStore redis"`
	InteractiveAuth bool
	AuthTimeout     time.Duration `validate:"gt=0"`
	ShiftMarkers    []string      `validate:"min=1,dive,required"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// ShiftAlertsConfig toggles the Postgres log of detected closed shifts.
type ShiftAlertsConfig struct {
	Enabled bool
}

// NotifierConfig drives the slack-bot fetch and background queue.
type NotifierConfig struct {
	CalendarBotURL string        `validate:"required,url"`
	FetchTimeout   time.Duration `validate:"gt=0"`
	Workers        int           `validate:"gte=1"`
	BufferSize     int           `validate:"gte=1"`
}

type SlackConfig struct {
	BotToken string `validate:"required"`
	Channel  string `validate:"required"`
	APIURL   string `validate:"omitempty,url"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.MetricsEnabled = v.GetBool("METRICS_ENABLED")

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Calendar = CalendarConfig{
		ID:              v.GetString("CALENDAR_ID"),
		CredentialsFile: v.GetString("CALENDAR_CREDENTIALS_FILE"),
		TokenStore:      strings.ToLower(v.GetString("TOKEN_STORE")),
		TokenFile:       v.GetString("CALENDAR_TOKEN_FILE"),
		TokenRedisKey:   v.GetString("TOKEN_REDIS_KEY"),
		InteractiveAuth: v.GetBool("CALENDAR_INTERACTIVE_AUTH"),
		AuthTimeout:     parseDuration(v.GetString("CALENDAR_AUTH_TIMEOUT"), 5*time.Minute),
		ShiftMarkers:    splitAndTrim(v.GetString("SHIFT_MARKERS")),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.ShiftAlerts = ShiftAlertsConfig{Enabled: v.GetBool("SHIFT_ALERTS_ENABLED")}

	cfg.Notifier = NotifierConfig{
		CalendarBotURL: strings.TrimRight(v.GetString("CALENDAR_BOT_URL"), "/"),
		FetchTimeout:   parseDuration(v.GetString("CALENDAR_BOT_TIMEOUT"), 30*time.Second),
		Workers:        v.GetInt("NOTIFIER_WORKERS"),
		BufferSize:     v.GetInt("NOTIFIER_BUFFER"),
	}

	cfg.Slack = SlackConfig{
		BotToken: v.GetString("SLACK_BOT_TOKEN"),
		Channel:  v.GetString("SLACK_CHANNEL"),
		APIURL:   v.GetString("SLACK_API_URL"),
	}

	return cfg
}

// ValidateCalendarBot checks the settings the calendar-bot cannot start without.
func (c *Config) ValidateCalendarBot() error {
	return validator.New().Struct(c.Calendar)
}

// ValidateNotifier checks the settings the slack-bot cannot start without.
func (c *Config) ValidateNotifier() error {
	validate := validator.New()
	if err := validate.Struct(c.Notifier); err != nil {
		return err
	}
	return validate.Struct(c.Slack)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8000)
	v.SetDefault("METRICS_ENABLED", true)

	v.SetDefault("ALLOWED_ORIGINS", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CALENDAR_ID", "")
	v.SetDefault("CALENDAR_CREDENTIALS_FILE", "credentials.json")
	v.SetDefault("CALENDAR_TOKEN_FILE", "/secret/token.json")
	v.SetDefault("CALENDAR_INTERACTIVE_AUTH", true)
	v.SetDefault("CALENDAR_AUTH_TIMEOUT", "5m")
	v.SetDefault("SHIFT_MARKERS", "Shift,Closed")
	v.SetDefault("TOKEN_STORE", TokenStoreFile)
	v.SetDefault("TOKEN_REDIS_KEY", "calendar-bot:token")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SHIFT_ALERTS_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "shift_bots")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)

	v.SetDefault("CALENDAR_BOT_URL", "http://calendar-bot:8000")
	v.SetDefault("CALENDAR_BOT_TIMEOUT", "30s")
	v.SetDefault("NOTIFIER_WORKERS", 1)
	v.SetDefault("NOTIFIER_BUFFER", 16)

	v.SetDefault("SLACK_BOT_TOKEN", "")
	v.SetDefault("SLACK_CHANNEL", "#general")
	v.SetDefault("SLACK_API_URL", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
