package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	CalDAV   CalDAVConfig
	Schedule ScheduleConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Export   ExportConfig
	Refresh  RefreshConfig
}

// CalDAVConfig holds iCloud CalDAV credentials and fetch tuning.
type CalDAVConfig struct {
	URL            string
	Username       string
	AppPassword    string
	CalendarFilter string
	LookaheadHours int
	Timeout        time.Duration
}

// ScheduleConfig carries the scalars the row pipeline consumes.
type ScheduleConfig struct {
	HomeBaseAirport string
	Timezone        string
	Use24hClock     bool
	OnlyReports     bool
	IncludeOffRows  bool
	CacheTTL        time.Duration
}

type DatabaseConfig struct {
	Path         string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// ExportConfig toggles table export endpoints.
type ExportConfig struct {
	Enabled bool
}

// RefreshConfig tunes the background calendar poller.
type RefreshConfig struct {
	Enabled  bool
	Interval time.Duration
	CronSpec string
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.CalDAV = CalDAVConfig{
		URL:            v.GetString("CALDAV_URL"),
		Username:       v.GetString("ICLOUD_USER"),
		AppPassword:    v.GetString("ICLOUD_APP_PW"),
		CalendarFilter: strings.ToLower(v.GetString("CALENDAR_NAME_FILTER")),
		LookaheadHours: v.GetInt("SCHEDULE_LOOKAHEAD_HOURS"),
		Timeout:        parseDuration(v.GetString("CALDAV_TIMEOUT"), 30*time.Second),
	}

	cfg.Schedule = ScheduleConfig{
		HomeBaseAirport: strings.ToUpper(v.GetString("HOME_BASE_AIRPORT")),
		Timezone:        v.GetString("TIMEZONE"),
		Use24hClock:     v.GetBool("USE_24H_CLOCK"),
		OnlyReports:     v.GetBool("ONLY_REPORTS"),
		IncludeOffRows:  v.GetBool("INCLUDE_OFF_ROWS"),
		CacheTTL:        parseDuration(v.GetString("SCHEDULE_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Database = DatabaseConfig{
		Path:         v.GetString("DB_PATH"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS_CACHE"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Export = ExportConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
	}

	cfg.Refresh = RefreshConfig{
		Enabled:  v.GetBool("ENABLE_REFRESH_JOB"),
		Interval: parseDuration(v.GetString("REFRESH_INTERVAL"), 30*time.Minute),
		CronSpec: v.GetString("REFRESH_CRON"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("CALDAV_URL", "https://caldav.icloud.com/")
	v.SetDefault("ICLOUD_USER", "")
	v.SetDefault("ICLOUD_APP_PW", "")
	v.SetDefault("CALENDAR_NAME_FILTER", "")
	v.SetDefault("SCHEDULE_LOOKAHEAD_HOURS", 336)
	v.SetDefault("CALDAV_TIMEOUT", "30s")

	v.SetDefault("HOME_BASE_AIRPORT", "DFW")
	v.SetDefault("TIMEZONE", "America/Chicago")
	v.SetDefault("USE_24H_CLOCK", false)
	v.SetDefault("ONLY_REPORTS", true)
	v.SetDefault("INCLUDE_OFF_ROWS", true)
	v.SetDefault("SCHEDULE_CACHE_TTL", "5m")

	v.SetDefault("DB_PATH", "./data/dutywatch.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 4)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)

	v.SetDefault("ENABLE_REDIS_CACHE", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_EXPORTS", true)

	v.SetDefault("ENABLE_REFRESH_JOB", true)
	v.SetDefault("REFRESH_INTERVAL", "30m")
	v.SetDefault("REFRESH_CRON", "")
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
