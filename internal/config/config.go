package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// StoreDriver represents supported document store drivers
type StoreDriver string

const (
	DriverMongoDB StoreDriver = "mongodb"
	DriverSQLite  StoreDriver = "sqlite"
	DriverMemory  StoreDriver = "memory"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Store       StoreConfig       `mapstructure:"store"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Sandbox     SandboxConfig     `mapstructure:"sandbox"`
	Marketplace MarketplaceConfig `mapstructure:"marketplace"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// StoreConfig holds document store settings
type StoreConfig struct {
	Driver StoreDriver `mapstructure:"driver"`
	// MongoDB settings (remote mode)
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
	// SQLite settings (local-install mode)
	Path string `mapstructure:"path"`
}

// AuthConfig holds JWT verification settings
type AuthConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// SandboxConfig holds plugin sandbox limits
type SandboxConfig struct {
	ExecutionTimeout time.Duration `mapstructure:"execution_timeout"`
	CallStackSize    int           `mapstructure:"call_stack_size"`
}

// MarketplaceConfig holds marketplace settings
type MarketplaceConfig struct {
	// IndexURL is the base URL of a static marketplace index
	// (local-install variant). Empty disables the static index.
	IndexURL     string        `mapstructure:"index_url"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	PageSize     int           `mapstructure:"page_size"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/tabhome/")

	v.SetEnvPrefix("TABHOME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults suffice
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tabhome")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", true)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.uri", "mongodb://localhost:27017")
	v.SetDefault("store.database", "tabhome")
	v.SetDefault("store.path", "tabhome.db")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "tabhome")

	v.SetDefault("sandbox.execution_timeout", 5*time.Second)
	v.SetDefault("sandbox.call_stack_size", 120)

	v.SetDefault("marketplace.index_url", "")
	v.SetDefault("marketplace.fetch_timeout", 10*time.Second)
	v.SetDefault("marketplace.page_size", 50)
}

// Validate checks required settings
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMongoDB:
		if c.Store.URI == "" {
			return fmt.Errorf("store.uri is required for the mongodb driver")
		}
		if c.Store.Database == "" {
			return fmt.Errorf("store.database is required for the mongodb driver")
		}
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Store.Driver)
	}

	if c.App.Environment == "production" && c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required in production")
	}

	if c.Sandbox.ExecutionTimeout <= 0 {
		return fmt.Errorf("sandbox.execution_timeout must be positive")
	}

	return nil
}

// IsLocalMode reports whether the service runs against a local store
// instead of a remote document database.
func (c *StoreConfig) IsLocalMode() bool {
	return c.Driver != DriverMongoDB
}
