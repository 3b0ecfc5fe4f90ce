package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	Port                  int      `env:"PORT" envDefault:"8080"`
	StoreDriver           string   `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL           string   `env:"DATABASE_URL"`
	MongoURI              string   `env:"MONGODB_URI"`
	MongoDatabase         string   `env:"MONGODB_DATABASE" envDefault:"institute"`
	RedisURL              string   `env:"REDIS_URL"`
	RealtimeEnabled       bool     `env:"REALTIME_ENABLED" envDefault:"true"`
	AdminTokenHash        string   `env:"ADMIN_TOKEN_HASH"`
	CORSOrigins           []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	Timezone              string   `env:"TIMEZONE" envDefault:"UTC"`
	EnrollRateLimitPerMin int      `env:"ENROLL_RATE_LIMIT_PER_MIN" envDefault:"30"`
	ReconcileSchedule     string   `env:"RECONCILE_SCHEDULE" envDefault:"@every 10m"`
	StaticDir             string   `env:"STATIC_DIR" envDefault:"public"`
	LogLevel              string   `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv                string   `env:"APP_ENV" envDefault:"development"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Location is the zone session dates and times are interpreted in.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c *Config) Validate(isProduction bool) error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", DriverPostgres)
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required when STORE_DRIVER=%s", DriverMongo)
		}
	case DriverMemory:
		if isProduction {
			return fmt.Errorf("STORE_DRIVER=%s is not allowed in production", DriverMemory)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (expected postgres, mongo or memory)", c.StoreDriver)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}

	if _, err := cron.ParseStandard(c.ReconcileSchedule); err != nil {
		return fmt.Errorf("invalid RECONCILE_SCHEDULE %q: %w", c.ReconcileSchedule, err)
	}

	if c.AdminTokenHash != "" {
		if !strings.HasPrefix(c.AdminTokenHash, "$2a$") &&
			!strings.HasPrefix(c.AdminTokenHash, "$2b$") &&
			!strings.HasPrefix(c.AdminTokenHash, "$2y$") {
			return fmt.Errorf("ADMIN_TOKEN_HASH must be a bcrypt hash (generate with: go run ./cmd/hash-token <token>)")
		}
	}

	if isProduction {
		if c.AdminTokenHash == "" {
			log.Warn().Msg("ADMIN_TOKEN_HASH is empty in production: admin endpoints will refuse all requests")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
