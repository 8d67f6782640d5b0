package config

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field maps 1:1 to an env var of the same name.
type Config struct {
	// Server
	Port           int    `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"` // development | production
	WorkerPoolSize int    `mapstructure:"WORKER_POOL_SIZE"`
	CORSOrigins    string `mapstructure:"CORS_ORIGINS"`

	// Database. "memory" selects the in-process store, postgres:// URLs
	// select PostgreSQL and anything else is an SQLite DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Redis. Empty disables the catalog cache and keeps the ticket queue in-process.
	RedisURL               string `mapstructure:"REDIS_URL"`
	CatalogCacheTTLSeconds int    `mapstructure:"CATALOG_CACHE_TTL_SECONDS"`

	// Auth
	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTExpirationHours int    `mapstructure:"JWT_EXPIRATION_HOURS"`
	JWTRefreshHours    int    `mapstructure:"JWT_REFRESH_HOURS"`

	// Printing
	TicketSpoolPath   string `mapstructure:"TICKET_SPOOL_PATH"`
	TicketMaxAttempts int    `mapstructure:"TICKET_MAX_ATTEMPTS"`

	// Business
	AllowNegativeStock bool   `mapstructure:"ALLOW_NEGATIVE_STOCK"`
	PriceTolerancePct  string `mapstructure:"PRICE_TOLERANCE_PCT"`
}

// Load reads configuration from environment variables (and optional .env file).
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	// Sensible defaults for development. Every key needs one so that
	// Unmarshal picks up values that only exist in the environment.
	v.SetDefault("PORT", 8000)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("WORKER_POOL_SIZE", 2)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("DATABASE_URL", "file:kiosco.db?_foreign_keys=on")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CATALOG_CACHE_TTL_SECONDS", 300)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRATION_HOURS", 8)
	v.SetDefault("JWT_REFRESH_HOURS", 24)
	v.SetDefault("TICKET_SPOOL_PATH", "./tickets")
	v.SetDefault("TICKET_MAX_ATTEMPTS", 3)
	v.SetDefault("ALLOW_NEGATIVE_STOCK", true)
	v.SetDefault("PRICE_TOLERANCE_PCT", "0")

	// Optional .env file for local development; a missing file is not an error
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// UsesPostgres reports whether DATABASE_URL points at a PostgreSQL server.
func (c *Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// UsesMemoryStore reports whether the in-process demo store was requested.
func (c *Config) UsesMemoryStore() bool { return c.DatabaseURL == "memory" }

// Tolerance parses PRICE_TOLERANCE_PCT. Invalid or negative values disable the guard.
func (c *Config) Tolerance() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(c.PriceTolerancePct))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}
