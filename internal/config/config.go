// Package config loads qbridge configuration from qbridge.yml and the environment
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is the prefix of environment variable overrides (QBRIDGE_QUICKBASE_TOKEN, ...)
const EnvPrefix = "QBRIDGE"

// Catalog sources
const (
	KindPostgres = "postgres"
	KindSQLite   = "sqlite"
	KindFile     = "file"
)

// Cache backends
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config represents the qbridge configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	QuickBase QuickBaseConfig `mapstructure:"quickbase"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Log       LogConfig       `mapstructure:"log"`
}

// DatabaseConfig represents the catalog source configuration
type DatabaseConfig struct {
	// Kind selects the catalog: postgres, sqlite or file
	Kind string `mapstructure:"kind"`
	// URL is a postgres:// connection URL; it takes precedence over the fields below
	URL      string `mapstructure:"url"`
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	// Path is the SQLite DSN or the YAML catalog file
	Path string `mapstructure:"path"`
}

// QuickBaseConfig represents QuickBase API configuration
type QuickBaseConfig struct {
	Token     string        `mapstructure:"token"`
	Realm     string        `mapstructure:"realm"`
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// CacheConfig represents the QuickBase response cache configuration
type CacheConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Prefix  string        `mapstructure:"prefix"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig represents Redis connection configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// setDefaults registers every key so that environment overrides apply to all of them
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.kind", KindPostgres)
	v.SetDefault("database.url", "")
	v.SetDefault("database.driver", "pgx")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.sslmode", "")
	v.SetDefault("database.path", "")

	v.SetDefault("quickbase.token", "")
	v.SetDefault("quickbase.realm", "")
	v.SetDefault("quickbase.base_url", "https://api.quickbase.com/v1")
	v.SetDefault("quickbase.user_agent", "")
	v.SetDefault("quickbase.timeout", 30*time.Second)

	v.SetDefault("cache.backend", CacheNone)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.prefix", "qbridge:")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load loads the configuration from path, or from qbridge.yml / qbridge.yaml
// in the working directory when path is empty. A missing default file is not
// an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("qbridge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// DATABASE_URL is honored the way most PostgreSQL tooling does
	if err := v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Database.Kind {
	case KindPostgres, KindSQLite, KindFile:
	default:
		return fmt.Errorf("database.kind must be one of %s, %s, %s, got: %s", KindPostgres, KindSQLite, KindFile, cfg.Database.Kind)
	}

	switch cfg.Cache.Backend {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("cache.backend must be one of %s, %s, %s, got: %s", CacheNone, CacheMemory, CacheRedis, cfg.Cache.Backend)
	}

	if cfg.QuickBase.BaseURL != "" && !strings.HasPrefix(cfg.QuickBase.BaseURL, "http") {
		return fmt.Errorf("quickbase.base_url must be an http(s) URL, got: %s", cfg.QuickBase.BaseURL)
	}
	if strings.HasSuffix(cfg.QuickBase.BaseURL, "/") {
		return fmt.Errorf("quickbase.base_url must not end with '/', got: %s", cfg.QuickBase.BaseURL)
	}

	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level is invalid: %w", err)
	}

	if cfg.Log.Format != "console" && cfg.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'console' or 'json', got: %s", cfg.Log.Format)
	}

	return nil
}
