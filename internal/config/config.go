// Package config loads typed configuration from the environment via struct
// tags, the same envconfig style ahwlsqja-go-stable/internal/config uses.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full process configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Sweeper  SweeperConfig
}

// ServerConfig configures the demo HTTP transport (component L).
type ServerConfig struct {
	Host         string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	Environment  string        `envconfig:"ENVIRONMENT" default:"development"`
}

// Addr returns the host:port to listen on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the durable attestation/audit-log store
// (internal/storage/mysqlstore).
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"3306"`
	User            string        `envconfig:"DB_USER" default:"app"`
	Password        string        `envconfig:"DB_PASSWORD" default:"apppassword"`
	Name            string        `envconfig:"DB_NAME" default:"wageattest"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig configures the durable nonce/nullifier store
// (internal/storage/redisstore).
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// SweeperConfig configures the background rate-limit-window reset sweep: a
// periodic pass over the Registry's employers that nudges any rate state
// whose 24h window has elapsed, so the reset is visible even to an employer
// that has not attempted a sign since the window closed. Adapted from the
// teacher's WorkerConfig (poll-interval/batch-size background job shape);
// the teacher's retry/backoff fields are dropped since this sweep has
// nothing to retry — it is a pure, idempotent read-modify pass.
type SweeperConfig struct {
	PollInterval time.Duration `envconfig:"SWEEPER_POLL_INTERVAL" default:"1m"`
	BatchSize    int           `envconfig:"SWEEPER_BATCH_SIZE" default:"100"`
}

// Load reads Config from the process environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
