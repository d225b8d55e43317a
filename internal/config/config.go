// Package config loads runtime configuration from the environment with
// sensible defaults for local development. Secrets are env-only.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Addr          string `env:"ADDR" env-default:":8080"`
	DatabaseURL   string `env:"DATABASE_URL" env-default:""`
	MigrationsDir string `env:"MIGRATIONS_DIR" env-default:"migrations"`

	RedisAddr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	JWTSecret     string        `env:"JWT_SECRET" env-required:"true"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" env-default:"30m"`
	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL" env-default:"1h"`

	LedgerTimeout    time.Duration `env:"LEDGER_TIMEOUT" env-default:"5s"`
	LedgerMaxRetries int           `env:"LEDGER_MAX_RETRIES" env-default:"3"`

	LoginRateLimit     int64         `env:"LOGIN_RATE_LIMIT" env-default:"5"`
	LoginRateWindow    time.Duration `env:"LOGIN_RATE_WINDOW" env-default:"5m"`
	ResetRateLimit     int64         `env:"RESET_RATE_LIMIT" env-default:"3"`
	ResetRateWindow    time.Duration `env:"RESET_RATE_WINDOW" env-default:"1h"`
	MutationRateLimit  int64         `env:"MUTATION_RATE_LIMIT" env-default:"60"`
	MutationRateWindow time.Duration `env:"MUTATION_RATE_WINDOW" env-default:"1m"`

	// EventBroker selects the event transport: "redis", "kafka" or "none".
	EventBroker  string   `env:"EVENT_BROKER" env-default:"redis"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
