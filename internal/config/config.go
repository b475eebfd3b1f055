package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Storage    StorageConfig    `mapstructure:"storage"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
}

type BotConfig struct {
	Token         string  `mapstructure:"token"`
	UpdateTimeout int     `mapstructure:"update_timeout"`
	AdminIDs      []int64 `mapstructure:"admin_ids"`
}

// ClassifierConfig points at the toxicity inference endpoint. The model
// itself is an external collaborator reached over HTTP.
type ClassifierConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type ModerationConfig struct {
	SettingsFile string        `mapstructure:"settings_file"`
	LogDir       string        `mapstructure:"log_dir"`
	ShortTimeout time.Duration `mapstructure:"short_timeout"`
	LongTimeout  time.Duration `mapstructure:"long_timeout"`
}

type StorageConfig struct {
	Type  string      `mapstructure:"type"`
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
	Directory       string   `mapstructure:"directory"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Environment variable overrides for secrets
	viper.BindEnv("bot.token", "BOT_TOKEN")
	viper.BindEnv("classifier.base_url", "CLASSIFIER_BASE_URL")
	viper.BindEnv("classifier.api_key", "CLASSIFIER_API_KEY")
	viper.BindEnv("storage.redis.addr", "REDIS_ADDR")
	viper.BindEnv("storage.redis.password", "REDIS_PASSWORD")
	viper.BindEnv("storage.redis.db", "REDIS_DB")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.UpdateTimeout == 0 {
		cfg.Bot.UpdateTimeout = 60
	}
	if cfg.Classifier.Timeout == 0 {
		cfg.Classifier.Timeout = 30 * time.Second
	}
	if cfg.Classifier.MaxRetries == 0 {
		cfg.Classifier.MaxRetries = 3
	}
	if cfg.Moderation.SettingsFile == "" {
		cfg.Moderation.SettingsFile = "config/settings.yaml"
	}
	if cfg.Moderation.LogDir == "" {
		cfg.Moderation.LogDir = "logs"
	}
	if cfg.Moderation.ShortTimeout == 0 {
		cfg.Moderation.ShortTimeout = 10 * time.Second
	}
	if cfg.Moderation.LongTimeout == 0 {
		cfg.Moderation.LongTimeout = 30 * time.Second
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "memory"
	}
	if cfg.I18n.DefaultLanguage == "" {
		cfg.I18n.DefaultLanguage = "en"
	}
	if len(cfg.I18n.Languages) == 0 {
		cfg.I18n.Languages = []string{"en"}
	}
	if cfg.I18n.Directory == "" {
		cfg.I18n.Directory = "configs/i18n"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Bot.Token == "" {
		return fmt.Errorf("bot token is required")
	}
	if cfg.Classifier.BaseURL == "" {
		return fmt.Errorf("classifier base URL is required")
	}
	if cfg.Storage.Type != "memory" && cfg.Storage.Type != "redis" {
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
	return nil
}
