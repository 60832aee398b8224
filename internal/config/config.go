package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the entire application configuration
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Sharing  SharingConfig  `mapstructure:"sharing"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// HTTPConfig contains HTTP server configuration
type HTTPConfig struct {
	BindAddr      string `mapstructure:"bind_addr"`
	BaseURL       string `mapstructure:"base_url"`
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
	ReadTimeout   string `mapstructure:"read_timeout"`
	WriteTimeout  string `mapstructure:"write_timeout"`
	IdleTimeout   string `mapstructure:"idle_timeout"`
}

// SharingConfig contains share behavior settings
type SharingConfig struct {
	RootDir         string `mapstructure:"root_dir"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
	BcryptCost      int    `mapstructure:"bcrypt_cost"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path          string `mapstructure:"path"`
	CacheSizeMB   int    `mapstructure:"cache_size_mb"`
	BusyTimeoutMs int    `mapstructure:"busy_timeout_ms"`
}

// RedisConfig contains the optional shared cache backend.
// When disabled the service falls back to the process-local cache, which is
// only correct for single-instance deployments.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from the specified file path
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("http.bind_addr", "0.0.0.0:8080")
	viper.SetDefault("http.base_url", "http://localhost:8080")
	viper.SetDefault("http.admin_username", "admin")
	viper.SetDefault("http.admin_password", "")
	viper.SetDefault("http.read_timeout", "30s")
	viper.SetDefault("http.write_timeout", "30s")
	viper.SetDefault("http.idle_timeout", "60s")
	viper.SetDefault("sharing.root_dir", "/var/lib/secure-file-share/data")
	viper.SetDefault("sharing.cache_ttl_seconds", 3600)
	viper.SetDefault("sharing.bcrypt_cost", 10)
	viper.SetDefault("database.path", "")
	viper.SetDefault("database.cache_size_mb", 64)
	viper.SetDefault("database.busy_timeout_ms", 5000)
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "127.0.0.1:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults plus env apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate checks configuration constraints that defaults cannot repair
func (c *Config) validate() error {
	if c.Sharing.RootDir == "" {
		return fmt.Errorf("sharing.root_dir is required")
	}
	if c.Sharing.CacheTTLSeconds <= 0 {
		return fmt.Errorf("sharing.cache_ttl_seconds must be positive")
	}
	if c.Sharing.BcryptCost < 4 || c.Sharing.BcryptCost > 31 {
		return fmt.Errorf("sharing.bcrypt_cost must be between 4 and 31")
	}
	return nil
}

// GetCacheTTL returns the share cache TTL as a duration
func (c *SharingConfig) GetCacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// GetReadTimeout returns the HTTP read timeout
func (c *HTTPConfig) GetReadTimeout() time.Duration {
	return parseDurationOr(c.ReadTimeout, 30*time.Second)
}

// GetWriteTimeout returns the HTTP write timeout
func (c *HTTPConfig) GetWriteTimeout() time.Duration {
	return parseDurationOr(c.WriteTimeout, 30*time.Second)
}

// GetIdleTimeout returns the HTTP idle timeout
func (c *HTTPConfig) GetIdleTimeout() time.Duration {
	return parseDurationOr(c.IdleTimeout, 60*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
