package infra

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5435"`
	PGUser      string `env:"PGUSER" envDefault:"ledgersafe"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"ledgersafe"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"ledgersafe"`

	// Redis. Not used by default — the balance read-model cache
	// (internal/projection.InMemoryStore) is in-process; set this and swap
	// in a Redis-backed Store if the API runs behind more than one replica.
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6380"`

	SecretKey string `env:"SECRET_KEY" envDefault:"change-me-in-production"`
	Debug     bool   `env:"DEBUG" envDefault:"false"`

	// Server
	APIPort int `env:"API_PORT" envDefault:"3100"`

	// Kafka — transport for the payout task runner.
	KafkaBrokers    string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled    bool   `env:"KAFKA_ENABLED" envDefault:"false"`
	PayoutJobsTopic string `env:"PAYOUT_JOBS_TOPIC" envDefault:"payout-jobs"`

	// CORS
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`

	// External payout provider. Leave ProviderBaseURL empty to run against
	// the in-memory sandbox provider (default for local dev and tests).
	ProviderBaseURL string `env:"PAYOUT_PROVIDER_BASE_URL"`
	ProviderAPIKey  string `env:"PAYOUT_PROVIDER_API_KEY"`
	WebhookSecret   string `env:"PAYOUT_PROVIDER_WEBHOOK_SECRET"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for insecure configuration that must not run in production.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass (local dev only).
func (c *Config) Validate() error {
	if c.AllowInsecureDefaults {
		return nil
	}
	if c.SecretKey == "change-me-in-production" {
		return fmt.Errorf("SECRET_KEY is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.SecretKey) < 32 {
		return fmt.Errorf("SECRET_KEY is too short (%d chars); minimum 32 characters required", len(c.SecretKey))
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
