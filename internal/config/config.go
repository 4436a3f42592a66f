package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Server     ServerConfig     `mapstructure:"server"`
	Dictionary DictionaryConfig `mapstructure:"dictionary"`
	Unknown    UnknownConfig    `mapstructure:"unknown"`
	Translit   TranslitConfig   `mapstructure:"translit"`
	Session    SessionConfig    `mapstructure:"session"`
	Database   DatabaseConfig   `mapstructure:"database"`
}

type BotConfig struct {
	Token             string `mapstructure:"token"`
	APIURL            string `mapstructure:"api_url" validate:"url"`
	MaxRetryAttempts  uint   `mapstructure:"max_retry_attempts" validate:"lte=10"`
	SearchURLTemplate string `mapstructure:"search_url_template"`
	WebhookURL        string `mapstructure:"webhook_url" validate:"omitempty,url"`
	SecretToken       string `mapstructure:"secret_token"`
}

type ServerConfig struct {
	Port        int    `mapstructure:"port" validate:"min=1,max=65535"`
	WebhookPath string `mapstructure:"webhook_path" validate:"startswith=/"`
	MetricsPath string `mapstructure:"metrics_path" validate:"startswith=/"`
}

type DictionaryConfig struct {
	Storage           string `mapstructure:"storage" validate:"oneof=yaml flat mysql"`
	Path              string `mapstructure:"path" validate:"required_unless=Storage mysql"`
	Separator         string `mapstructure:"separator" validate:"separator"`
	MatchMode         string `mapstructure:"match_mode" validate:"oneof=word char"`
	CategoriesEnabled bool   `mapstructure:"categories_enabled"`
	DefaultCategory   string `mapstructure:"default_category" validate:"required"`
}

type UnknownConfig struct {
	Storage string `mapstructure:"storage" validate:"oneof=file mysql"`
	Path    string `mapstructure:"path" validate:"required_unless=Storage mysql"`
}

type TranslitConfig struct {
	Separator     string `mapstructure:"separator" validate:"separator"`
	DefaultScript string `mapstructure:"default_script" validate:"oneof=uk ru"`
}

type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

type DatabaseConfig struct {
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds"`
}

// UsesDatabase reports whether any store lives in MySQL.
func (cfg Config) UsesDatabase() bool {
	return cfg.Dictionary.Storage == "mysql" || cfg.Unknown.Storage == "mysql"
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/translitbot")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("bot.api_url", "https://api.telegram.org")
	v.SetDefault("bot.max_retry_attempts", 3)
	v.SetDefault("bot.search_url_template", "https://t.me/s/%s")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.webhook_path", "/webhook")
	v.SetDefault("server.metrics_path", "/metrics")
	v.SetDefault("dictionary.storage", "yaml")
	v.SetDefault("dictionary.path", filepath.Join("data", "dictionary.yml"))
	v.SetDefault("dictionary.separator", "=")
	v.SetDefault("dictionary.match_mode", "word")
	v.SetDefault("dictionary.categories_enabled", true)
	v.SetDefault("dictionary.default_category", "general")
	v.SetDefault("unknown.storage", "file")
	v.SetDefault("unknown.path", filepath.Join("data", "unknown.txt"))
	v.SetDefault("translit.separator", "_")
	v.SetDefault("translit.default_script", "uk")
	v.SetDefault("session.ttl", 15*time.Minute)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "translitbot")
	v.SetDefault("database.username", "user")

	// Secrets are bound to environment variables so they can stay out of the file
	if err := v.BindEnv("bot.token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}
	if err := v.BindEnv("bot.secret_token", "TELEGRAM_SECRET_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_SECRET_TOKEN environment variable: %w", err)
	}
	if err := v.BindEnv("database.password", "DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind DB_PASSWORD environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.validator.Struct(cfg); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}
