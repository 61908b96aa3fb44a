// Package config loads settings from defaults, an optional YAML file and ATTENDEES_*
// environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pfrederiksen/connpass-attendees/internal/logger"
	"github.com/pfrederiksen/connpass-attendees/internal/scraper"
	"github.com/spf13/viper"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type Config struct {
	Source    SourceConfig    `mapstructure:"source"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type SourceConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type DirectoryConfig struct {
	Driver   string         `mapstructure:"driver"`
	Path     string         `mapstructure:"path"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from configPath, or from config.yaml in the working
// directory or /etc/connpass-attendees when configPath is empty. A missing default
// config file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("source.base_url", scraper.DefaultBaseURL)
	v.SetDefault("source.user_agent", scraper.UserAgent)
	v.SetDefault("source.timeout", scraper.Timeout.String())
	v.SetDefault("directory.driver", DriverMemory)
	v.SetDefault("directory.path", "users.json")
	v.SetDefault("directory.postgres.host", "localhost")
	v.SetDefault("directory.postgres.port", 5432)
	v.SetDefault("directory.postgres.database", "app")
	v.SetDefault("directory.postgres.user", "app")
	v.SetDefault("directory.postgres.password", "")
	v.SetDefault("directory.postgres.sslmode", "disable")
	v.SetDefault("logging.level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/connpass-attendees")
	}

	v.SetEnvPrefix("ATTENDEES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration can be used to build a resolver
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.Source.BaseURL); err != nil {
		return fmt.Errorf("source.base_url: %w", err)
	}
	if c.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be positive, got %s", c.Source.Timeout)
	}

	switch c.Directory.Driver {
	case DriverMemory:
		if c.Directory.Path == "" {
			return fmt.Errorf("directory.path is required for the %s driver", DriverMemory)
		}
	case DriverPostgres:
		if c.Directory.Postgres.Host == "" {
			return fmt.Errorf("directory.postgres.host is required for the %s driver", DriverPostgres)
		}
	default:
		return fmt.Errorf("directory.driver: unknown driver %q (must be %q or %q)", c.Directory.Driver, DriverMemory, DriverPostgres)
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// ConnString builds a PostgreSQL connection URL
func (p PostgresConfig) ConnString() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     "/" + p.Database,
		RawQuery: url.Values{"sslmode": []string{p.SSLMode}}.Encode(),
	}
	if p.User != "" {
		if p.Password != "" {
			u.User = url.UserPassword(p.User, p.Password)
		} else {
			u.User = url.User(p.User)
		}
	}
	return u.String()
}
