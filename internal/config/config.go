package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Environment is the deployment environment of the service.
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

func (e Environment) IsProduction() bool {
	return e == Production
}

// Flag is a boolean that also accepts "yes"; anything unrecognised is false.
type Flag bool

func (f *Flag) Decode(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		*f = true
	default:
		*f = false
	}
	return nil
}

type Config struct {
	Environment Environment `envconfig:"APP_ENV" default:"development"`
	LogLevel    string      `envconfig:"LOG_LEVEL" default:"debug"`

	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Admin    AdminConfig
	Seed     SeedConfig
}

type ServerConfig struct {
	Port         int           `envconfig:"PORT" default:"5001"`
	ReadTimeout  time.Duration `split_words:"true" default:"5s"`
	WriteTimeout time.Duration `split_words:"true" default:"10s"`
	IdleTimeout  time.Duration `split_words:"true" default:"1m"`
}

type DatabaseConfig struct {
	// URL selects Postgres; when empty the SQLite file at SQLitePath is used.
	URL          string `envconfig:"DATABASE_URL"`
	SQLitePath   string `envconfig:"SQLITE_PATH" default:"pos.db"`
	MaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	AutoMigrate  Flag   `envconfig:"DB_AUTO_MIGRATE" default:"true"`
	Debug        Flag   `envconfig:"DB_DEBUG"`
}

type RedisConfig struct {
	// URL is optional; caching is disabled when it is empty.
	URL            string        `envconfig:"REDIS_URL"`
	CatalogTTL     time.Duration `envconfig:"CACHE_CATALOG_TTL" default:"30s"`
	TransactionTTL time.Duration `envconfig:"CACHE_TRANSACTION_TTL" default:"10m"`
	DialTimeout    time.Duration `split_words:"true" default:"5s"`
}

type AdminConfig struct {
	AllowDestructive Flag   `envconfig:"ALLOW_DESTRUCTIVE"`
	Key              string `envconfig:"ADMIN_KEY"`
}

type SeedConfig struct {
	Transactions int  `envconfig:"SEED_TRANSACTIONS" default:"50"`
	OnStart      Flag `envconfig:"SEED_ON_START"`
}

func (d DatabaseConfig) UsesPostgres() bool {
	return d.URL != ""
}

// PostgresURL normalises the "postgres://" scheme some hosts hand out.
func (d DatabaseConfig) PostgresURL() string {
	if strings.HasPrefix(d.URL, "postgresql://") {
		return "postgres://" + strings.TrimPrefix(d.URL, "postgresql://")
	}
	return d.URL
}

// SQLiteDSN enables foreign keys and makes every transaction take the write
// lock up front so checkouts are serialized.
func (d DatabaseConfig) SQLiteDSN() string {
	return fmt.Sprintf("file:%s?_foreign_keys=1&_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL", d.SQLitePath)
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if cfg.Server.Port <= 0 {
		return nil, fmt.Errorf("invalid PORT %d", cfg.Server.Port)
	}
	if cfg.Seed.Transactions < 0 {
		return nil, fmt.Errorf("SEED_TRANSACTIONS must not be negative")
	}
	return cfg, nil
}
