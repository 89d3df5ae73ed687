package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// PostgresConfig defines the configuration for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// Parameter Store names holding production secrets.
const (
	ParamDBHost       = "CRYPTONICS_DB_HOST"
	ParamDBUser       = "CRYPTONICS_DB_USER"
	ParamDBPassword   = "CRYPTONICS_DB_PASSWORD"
	ParamCoinGeckoKey = "CRYPTONICS_COINGECKO_API_KEY"
)

// SecretLookup resolves a secret by name, returning "" when it is unavailable.
type SecretLookup func(name string) string

// DSN builds the connection string. In prod, host and credentials come from
// Parameter Store instead of the config file.
func (cfg *PostgresConfig) DSN(env string) string {
	return cfg.dsn(env, func(name string) string {
		return GetParameterStoreValue(name, true)
	})
}

func (cfg *PostgresConfig) dsn(env string, lookup SecretLookup) string {
	host, user, password := cfg.Host, cfg.User, cfg.Password
	if env == "prod" {
		host = lookup(ParamDBHost)
		user = lookup(ParamDBUser)
		password = lookup(ParamDBPassword)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, cfg.Port, user, password, cfg.DBName, cfg.SSLMode,
	)

	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}

	return dsn
}

// ResolveSecrets fills secrets that are kept out of config files in prod.
func (c *Config) ResolveSecrets(lookup SecretLookup) {
	if c.Log.Environment != "prod" {
		return
	}
	if c.CoinGecko.APIKey == "" {
		c.CoinGecko.APIKey = lookup(ParamCoinGeckoKey)
	}
}

// GetParameterStoreValue reads one SSM parameter with a 5s budget.
func GetParameterStoreValue(parameterName string, decrypt bool) string {
	baseCtx := context.Background()
	ctxWithTimeout, cancel := context.WithTimeout(baseCtx, 5*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return ""
	}

	client := ssm.NewFromConfig(cfg)

	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctxWithTimeout, input)
	if err != nil {
		return ""
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return ""
	}

	return *result.Parameter.Value
}
