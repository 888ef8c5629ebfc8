package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// SchedulerConfig holds the cron expressions for the background jobs.
// Defaults mirror the production schedule: alerts at minute 5, reports
// at 15, metric refresh at 30, briefing at 01:30 UTC (07:00 IST).
type SchedulerConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	HourlyAlerts  string `mapstructure:"hourly_alerts"`
	DailyAlerts   string `mapstructure:"daily_alerts"`
	WeeklyAlerts  string `mapstructure:"weekly_alerts"`
	Briefing      string `mapstructure:"briefing"`
	Reports       string `mapstructure:"reports"`
	MetricRefresh string `mapstructure:"metric_refresh"`
}

type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("database.dsn", "file:askerp.db?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.hourly_alerts", "5 * * * *")
	v.SetDefault("scheduler.daily_alerts", "0 2 * * *")
	v.SetDefault("scheduler.weekly_alerts", "0 3 * * 1")
	v.SetDefault("scheduler.briefing", "30 1 * * *")
	v.SetDefault("scheduler.reports", "15 * * * *")
	v.SetDefault("scheduler.metric_refresh", "30 * * * *")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &cfg, nil
}
