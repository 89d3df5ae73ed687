package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	CoinGecko CoinGeckoConfig `mapstructure:"coingecko"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Log       LogConfig       `mapstructure:"log"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       string        `mapstructure:"rate_limit"` // ulule/limiter format, e.g. "120-M"
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	SessionCookie   string        `mapstructure:"session_cookie"`
	SecureCookie    bool          `mapstructure:"secure_cookie"`
}

type CoinGeckoConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	APIKey    string        `mapstructure:"api_key"`
	Pro       bool          `mapstructure:"pro"`
	UserAgent string        `mapstructure:"user_agent"`
	PerPage   int           `mapstructure:"per_page"`
}

// PolicyConfig overrides the freshness and retention windows of one query.
type PolicyConfig struct {
	StaleTime time.Duration `mapstructure:"stale_time"`
	CacheTime time.Duration `mapstructure:"cache_time"`
}

type CacheConfig struct {
	Retry          int                     `mapstructure:"retry"`
	RetryMaxDelay  time.Duration           `mapstructure:"retry_max_delay"`
	JanitorPeriod  time.Duration           `mapstructure:"janitor_period"`
	WarmInterval   time.Duration           `mapstructure:"warm_interval"`
	Policies       map[string]PolicyConfig `mapstructure:"policies"`
	RedisAddr      string                  `mapstructure:"redis_addr"` // empty disables the shared tier
	RedisPassword  string                  `mapstructure:"redis_password"`
	RedisDB        int                     `mapstructure:"redis_db"`
	RedisKeyPrefix string                  `mapstructure:"redis_key_prefix"`
}

type StorageConfig struct {
	Driver     string `mapstructure:"driver"` // "sqlite" or "postgres"
	SQLitePath string `mapstructure:"sqlite_path"`
	CreateDB   bool   `mapstructure:"create_db"`
}

type StreamConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	TopCoins     int           `mapstructure:"top_coins"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.rate_limit", "300-M")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.session_cookie", "cryptonics_session")
	v.SetDefault("server.secure_cookie", false)

	v.SetDefault("coingecko.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("coingecko.timeout", 10*time.Second)
	v.SetDefault("coingecko.api_key", "")
	v.SetDefault("coingecko.pro", false)
	v.SetDefault("coingecko.user_agent", "cryptonics/1.0")
	v.SetDefault("coingecko.per_page", 100)

	v.SetDefault("cache.retry", 3)
	v.SetDefault("cache.retry_max_delay", 30*time.Second)
	v.SetDefault("cache.janitor_period", time.Minute)
	v.SetDefault("cache.warm_interval", 30*time.Second)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.redis_key_prefix", "cryptonics:")

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "./data/cryptonics.db")
	v.SetDefault("storage.create_db", false)

	v.SetDefault("stream.interval", 15*time.Second)
	v.SetDefault("stream.write_timeout", 5*time.Second)
	v.SetDefault("stream.top_coins", 20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.dbname", "cryptonics")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", time.Hour)
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
// An explicit path wins over the default search locations; a missing
// config file is not an error since every key has a default.
func Load(path string) (*Config, error) {
	// .env is optional, real environment variables still win
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")

		ex, _ := os.Executable()
		if strings.Contains(ex, "go-build") {
			pwd, _ := os.Getwd()
			v.AddConfigPath(filepath.Join(pwd, "../../config"))
		} else {
			v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
		}
	}

	// Support environment variables with dot notation (e.g., COINGECKO_API_KEY)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values viper cannot type-check on its own.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid storage driver: %q", c.Storage.Driver)
	}
	if c.CoinGecko.BaseURL == "" {
		return errors.New("coingecko.base_url is required")
	}
	if c.CoinGecko.Timeout <= 0 {
		return errors.New("coingecko.timeout must be positive")
	}
	if c.Cache.Retry < 0 {
		return errors.New("cache.retry cannot be negative")
	}
	return nil
}
