// Package config loads application settings.
//
// Precedence, lowest first: embedded default.yaml, an external YAML file,
// environment variables prefixed GARDERIE_ (nested keys joined by "_",
// e.g. GARDERIE_DATABASE_DRIVER). A .env file in the working directory is
// loaded into the environment first.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultJWTSecret is the placeholder shipped in default.yaml. Release mode
// refuses to start with it.
const DefaultJWTSecret = "change-me-in-production"

//go:embed default.yaml
var DefaultConfigYAML []byte

// Config is the application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Notifier  NotifierConfig  `mapstructure:"notifier"`
	Timezone  string          `mapstructure:"timezone"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"` // debug | release
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // sqlite | postgres
	Path         string `mapstructure:"path"`
	DSN          string `mapstructure:"dsn"`
	LogLevel     string `mapstructure:"log_level"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type SchedulerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type NotifierConfig struct {
	Thresholds []int `mapstructure:"thresholds"`
}

// GlobalConfig is set by Load.
var GlobalConfig *Config

// Load reads the configuration. configPath may be empty, in which case
// ./config.yaml and ./config/config.yaml are tried.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Println("[Config] Loaded .env")
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(DefaultConfigYAML)); err != nil {
		return nil, fmt.Errorf("failed to read embedded config: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		log.Printf("[Config] Merged %s", configPath)
	} else {
		external := viper.New()
		external.SetConfigName("config")
		external.SetConfigType("yaml")
		external.AddConfigPath(".")
		external.AddConfigPath("./config")
		if err := external.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(external.AllSettings()); err != nil {
				return nil, fmt.Errorf("failed to merge %s: %w", external.ConfigFileUsed(), err)
			}
			log.Printf("[Config] Merged %s", external.ConfigFileUsed())
		}
	}

	v.SetEnvPrefix("GARDERIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	GlobalConfig = &cfg
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for postgres")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.IsRelease() && c.JWT.Secret == DefaultJWTSecret {
		return fmt.Errorf("jwt.secret must be changed from the default in release mode")
	}
	for _, t := range c.Notifier.Thresholds {
		if t < 0 {
			return fmt.Errorf("notifier.thresholds must not be negative, got %d", t)
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// IsRelease reports whether the server runs in release mode.
func (c *Config) IsRelease() bool {
	return c.Server.Mode == "release"
}

// SafeErrorMessage hides internal error details in release mode.
func SafeErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if GlobalConfig != nil && GlobalConfig.IsRelease() {
		return fallback
	}
	return err.Error()
}
