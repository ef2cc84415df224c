// Package config provides Viper-based configuration for the tinkoff binaries
package config

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mishannn/tinkoff"
)

// EnvPrefix prefixes every environment variable, e.g. TINKOFF_USERNAME
const EnvPrefix = "TINKOFF"

// Config is the complete configuration
type Config struct {
	BaseURL     string        `mapstructure:"base_url"`
	Origin      string        `mapstructure:"origin"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	// Default credentials for the login command and the demo form.
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	ListenAddr      string        `mapstructure:"listen_addr"`
	RedisURL        string        `mapstructure:"redis_url"`
	SigningKeyFile  string        `mapstructure:"signing_key_file"`
	ConfirmationTTL time.Duration `mapstructure:"confirmation_ttl"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// New returns a viper instance with defaults and environment binding set up.
// Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

// Load reads cfgFile (when set, or .tinkoff.yaml from the usual places) on top
// of the defaults and environment held by v.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".tinkoff")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/tinkoff")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", tinkoff.DefaultBaseURL)
	v.SetDefault("origin", tinkoff.DefaultOrigin)
	v.SetDefault("http_timeout", tinkoff.DefaultTimeout)

	// AutomaticEnv only sees keys viper already knows about
	v.SetDefault("username", "")
	v.SetDefault("password", "")

	v.SetDefault("listen_addr", ":9000")
	v.SetDefault("redis_url", "")
	v.SetDefault("signing_key_file", "")
	v.SetDefault("confirmation_ttl", 5*time.Minute)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

func validate(cfg *Config) error {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url: %q", cfg.BaseURL)
	}

	if cfg.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive, got %s", cfg.HTTPTimeout)
	}
	if cfg.ConfirmationTTL <= 0 {
		return fmt.Errorf("confirmation_ttl must be positive, got %s", cfg.ConfirmationTTL)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[cfg.LogFormat] {
		return fmt.Errorf("invalid log_format: %s (must be text or json)", cfg.LogFormat)
	}

	return nil
}

// ClientOptions turns the bank settings into client options
func (c *Config) ClientOptions() []tinkoff.Option {
	return []tinkoff.Option{
		tinkoff.WithBaseURL(c.BaseURL),
		tinkoff.WithOrigin(c.Origin),
		tinkoff.WithHTTPClient(&http.Client{Timeout: c.HTTPTimeout}),
	}
}
