package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverOxiDB    = "oxidb"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Store  StoreConfig  `mapstructure:"store"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Log    LogConfig    `mapstructure:"log"`
	Query  QueryConfig  `mapstructure:"query"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// StoreConfig selects the backing store. DSN is used by the SQL drivers,
// OxiDB by the oxidb driver.
type StoreConfig struct {
	Driver string      `mapstructure:"driver"`
	DSN    string      `mapstructure:"dsn"`
	OxiDB  OxiDBConfig `mapstructure:"oxidb"`
}

type OxiDBConfig struct {
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	PoolSize  int           `mapstructure:"pool_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Keepalive time.Duration `mapstructure:"keepalive"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	AdminUsername string        `mapstructure:"admin_username"`
	AdminPassword string        `mapstructure:"admin_password"`
}

type LogConfig struct {
	Level    string        `mapstructure:"level"`
	Format   string        `mapstructure:"format"` // "console" or "json"
	File     LogFileConfig `mapstructure:"file"`
	GELFAddr string        `mapstructure:"gelf_addr"`
}

type LogFileConfig struct {
	Path       string `mapstructure:"path"` // empty disables file output
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type QueryConfig struct {
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold"`
}

// envKeys are bound explicitly so environment overrides apply even when no
// config file mentions the key.
var envKeys = []string{
	"server.addr", "server.allowed_origins", "server.max_body_bytes", "server.request_timeout",
	"store.driver", "store.dsn",
	"store.oxidb.host", "store.oxidb.port", "store.oxidb.pool_size", "store.oxidb.timeout", "store.oxidb.keepalive",
	"auth.jwt_secret", "auth.token_ttl", "auth.admin_username", "auth.admin_password",
	"log.level", "log.format", "log.gelf_addr",
	"log.file.path", "log.file.max_size_mb", "log.file.max_backups", "log.file.max_age_days", "log.file.compress",
	"query.fuzzy_threshold",
}

// NewConfig loads defaults, then the optional config file, then
// LAVENDER_* environment variables.
func NewConfig(configPath string) (*Config, error) {
	cfg := defaultConfig()

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("lavender")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/lavender/")
	}

	v.SetEnvPrefix("LAVENDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range envKeys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", k, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			MaxBodyBytes:   1 << 20,
			RequestTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
			DSN:    "lavender.db",
			OxiDB: OxiDBConfig{
				Host:      "127.0.0.1",
				Port:      4444,
				PoolSize:  3,
				Timeout:   5 * time.Second,
				Keepalive: 10 * time.Second,
			},
		},
		Auth: AuthConfig{
			JWTSecret: "lavender-dev-secret-change-me",
			TokenTTL:  24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			File: LogFileConfig{
				MaxSizeMB:  100,
				MaxBackups: 7,
				MaxAgeDays: 30,
				Compress:   true,
			},
		},
		Query: QueryConfig{FuzzyThreshold: 90},
	}
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver)
		}
	case DriverOxiDB:
		if c.Store.OxiDB.Host == "" || c.Store.OxiDB.Port <= 0 {
			return errors.New("store.oxidb.host and store.oxidb.port are required")
		}
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must not be empty")
	}
	if c.Query.FuzzyThreshold <= 0 || c.Query.FuzzyThreshold > 100 {
		return fmt.Errorf("query.fuzzy_threshold must be in (0, 100], got %v", c.Query.FuzzyThreshold)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}
