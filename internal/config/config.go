package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Target environments and their API base URLs.
var environmentURLs = map[string]string{
	"local": "http://localhost:8080",
	"dev":   "https://dev.api.myworld.ai",
	"uat":   "https://uat.api.myworld.ai",
	"perf":  "https://perf.api.myworld.ai",
	"prod":  "https://api.myworld.ai",
}

const defaultEnvironment = "local"

// Config keeps runtime settings for the bot.
type Config struct {
	Env              string
	APIBaseURL       string
	TelegramToken    string
	DatabaseURL      string
	DigestInterval   time.Duration
	DigestAt         string // HH:MM, replaces the interval when set
	RefreshInterval  time.Duration
	RequestTimeout   time.Duration
	AIRequestTimeout time.Duration
	CacheTTL         time.Duration
	MetricsAddr      string
	Log              LogConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// Load reads configuration from an optional config file and MYWORLD_* environment variables.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/myworld")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	v.SetEnvPrefix("MYWORLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", defaultEnvironment)
	v.SetDefault("database_url", "myworld_bot.db")
	v.SetDefault("digest_interval_hours", 5)
	v.SetDefault("refresh_interval", 10*time.Minute)
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("ai_request_timeout", 60*time.Second)
	v.SetDefault("cache_ttl", 2*time.Minute)
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	cfg := Config{
		Env:              strings.ToLower(strings.TrimSpace(v.GetString("env"))),
		APIBaseURL:       strings.TrimSpace(v.GetString("api_base_url")),
		TelegramToken:    strings.TrimSpace(v.GetString("telegram_token")),
		DatabaseURL:      strings.TrimSpace(v.GetString("database_url")),
		DigestInterval:   parseInterval(v.GetInt("digest_interval_hours")),
		DigestAt:         strings.TrimSpace(v.GetString("digest_at")),
		RefreshInterval:  v.GetDuration("refresh_interval"),
		RequestTimeout:   v.GetDuration("request_timeout"),
		AIRequestTimeout: v.GetDuration("ai_request_timeout"),
		CacheTTL:         v.GetDuration("cache_ttl"),
		MetricsAddr:      strings.TrimSpace(v.GetString("metrics_addr")),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = BaseURLFor(cfg.Env)
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "myworld_bot.db"
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// BaseURLFor maps a target environment to its API base URL. Unknown names fall back to local.
func BaseURLFor(env string) string {
	if u, ok := environmentURLs[strings.ToLower(strings.TrimSpace(env))]; ok {
		return u
	}
	return environmentURLs[defaultEnvironment]
}

func (c Config) validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("MYWORLD_TELEGRAM_TOKEN is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api base url %q", c.APIBaseURL)
	}
	if c.RequestTimeout <= 0 || c.AIRequestTimeout <= 0 {
		return fmt.Errorf("request timeouts must be positive")
	}
	return nil
}

// parseInterval turns whole hours into a duration, 0 disables.
func parseInterval(hours int) time.Duration {
	if hours <= 0 {
		return 0
	}
	return time.Duration(hours) * time.Hour
}
