// Package config provides application configuration management.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported mapping store backends.
const (
	BackendBolt     = "bolt"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// EnvPrefix is the prefix for environment variables read by Load.
const EnvPrefix = "TMASK"

// Config holds all application configuration.
type Config struct {
	// Salt seeds every pseudonym derivation. Every process that must produce
	// matching pseudonyms needs the same value.
	Salt     string
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Metrics  MetricsConfig
}

// StoreConfig selects and tunes the mapping store.
type StoreConfig struct {
	Backend string
	Path    string
	Timeout time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL          string
	Prefix       string
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

// MetricsConfig holds Prometheus exporter settings.
type MetricsConfig struct {
	Addr     string
	Interval time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom reads configuration from an existing viper instance, which may
// already have a config file loaded. Environment variables take precedence.
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Salt: v.GetString("salt"),
		Store: StoreConfig{
			Backend: strings.ToLower(v.GetString("store.backend")),
			Path:    v.GetString("store.path"),
			Timeout: v.GetDuration("store.timeout"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database.url"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			Prefix:       v.GetString("redis.prefix"),
			MaxRetries:   v.GetInt("redis.max_retries"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
		Metrics: MetricsConfig{
			Addr:     v.GetString("metrics.addr"),
			Interval: v.GetDuration("metrics.interval"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	// Store defaults
	v.SetDefault("store.backend", BackendBolt)
	v.SetDefault("store.path", defaultStorePath())
	v.SetDefault("store.timeout", 5*time.Second)

	// Database defaults
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)

	// Redis defaults
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.prefix", "tmask:")
	v.SetDefault("redis.max_retries", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("log.level", "info")

	v.SetDefault("metrics.addr", ":9464")
	v.SetDefault("metrics.interval", 30*time.Second)
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Debug("home directory unavailable, using relative store path", "error", err)
		return filepath.Join(".tmask", "mappings.db")
	}
	return filepath.Join(home, ".tmask", "mappings.db")
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.Salt == "" {
		return fmt.Errorf("salt is required: set %s_SALT or 'salt' in the config file", EnvPrefix)
	}

	if c.Store.Timeout <= 0 {
		return fmt.Errorf("store timeout must be positive (got %s)", c.Store.Timeout)
	}

	if c.Metrics.Interval <= 0 {
		return fmt.Errorf("metrics interval must be positive (got %s)", c.Metrics.Interval)
	}

	switch c.Store.Backend {
	case BackendBolt:
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for the %s backend", BackendBolt)
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database URL is required for the %s backend", BackendPostgres)
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("redis URL is required for the %s backend", BackendRedis)
		}
	default:
		return fmt.Errorf("unsupported store backend %q (want %s, %s or %s)",
			c.Store.Backend, BackendBolt, BackendPostgres, BackendRedis)
	}

	return nil
}

// SlogLevel maps the configured log level to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
