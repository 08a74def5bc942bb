package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Logger   Logger   `mapstructure:"logger"`
	Quotes   Quotes   `mapstructure:"quotes"`
	Auth     Auth     `mapstructure:"auth"`
	Redis    Redis    `mapstructure:"redis"`
	Ledger   Ledger   `mapstructure:"ledger"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port            int           `mapstructure:"port"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Quotes holds the configuration for the quote provider.
// Provider is either "rest" or "static".
type Quotes struct {
	Provider       string                 `mapstructure:"provider"`
	BaseURL        string                 `mapstructure:"base_url"`
	ApiKey         string                 `mapstructure:"api_key"`
	Timeout        time.Duration          `mapstructure:"timeout"`
	RateLimit      float64                `mapstructure:"rate_limit"`
	RateLimitBurst int                    `mapstructure:"rate_limit_burst"`
	Static         map[string]StaticQuote `mapstructure:"static"`
}

// StaticQuote is a fixed quote served by the static provider.
// Price is kept as a string so it parses into an exact decimal.
type StaticQuote struct {
	Name  string `mapstructure:"name"`
	Price string `mapstructure:"price"`
}

// Auth holds the configuration for session tokens.
type Auth struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// Redis holds the connection URL of the token revocation store.
// An empty URL keeps revocations in memory.
type Redis struct {
	URL string `mapstructure:"url"`
}

// Ledger holds the configuration for account bookkeeping.
type Ledger struct {
	InitialCash string `mapstructure:"initial_cash"`
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error: defaults and environment apply.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}

	if placeholderSecrets[strings.ToLower(strings.TrimSpace(config.Auth.JWTSecret))] {
		err = fmt.Errorf("auth.jwt_secret is set to the placeholder %q, set a real secret or leave it empty", config.Auth.JWTSecret)
	}
	return
}

// placeholderSecrets are signing secrets copied from sample configs.
// Tokens signed with them can be forged by anyone.
var placeholderSecrets = map[string]bool{
	"change-me": true,
	"changeme":  true,
	"secret":    true,
}

// setDefaults registers every key so AutomaticEnv can override it on Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.dsn", "brokerage.db")
	v.SetDefault("database.max_open_conns", 1)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("quotes.provider", "rest")
	v.SetDefault("quotes.base_url", "https://cloud.iexapis.com/stable")
	v.SetDefault("quotes.api_key", "")
	v.SetDefault("quotes.timeout", 5*time.Second)
	v.SetDefault("quotes.rate_limit", 10)      // requests per second
	v.SetDefault("quotes.rate_limit_burst", 5) // burst size

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("redis.url", "")

	v.SetDefault("ledger.initial_cash", "10000.00")
}
