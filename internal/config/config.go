package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the memory service.
// Environment variables are parsed from the RYOS_MEMORY_ prefix, e.g.
// RYOS_MEMORY_HTTP_PORT, RYOS_MEMORY_REDIS_ADDR.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Backing store; "auto" resolves to redis
	KVDriver      string `envconfig:"KV_DRIVER" default:"auto"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Default expiration window for shortterm memories
	ShorttermTTLDays int `envconfig:"SHORTTERM_TTL_DAYS" default:"7"`

	// Health probing
	HealthIntervalSeconds     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"15"`
	HealthProbeTimeoutSeconds int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
	StartupTimeoutSeconds     int `envconfig:"STARTUP_TIMEOUT_SECONDS" default:"30"`
}

// ResolveDefaults derives KVDriver when set to "auto" or empty and rejects
// unsupported values.
func (c *Config) ResolveDefaults() error {
	if c.KVDriver == "" || c.KVDriver == "auto" {
		c.KVDriver = "redis"
	}
	allowed := map[string]bool{"redis": true}
	if !allowed[c.KVDriver] {
		return fmt.Errorf("unsupported KV_DRIVER: %s", c.KVDriver)
	}
	if c.ShorttermTTLDays <= 0 {
		return fmt.Errorf("SHORTTERM_TTL_DAYS must be positive, got %d", c.ShorttermTTLDays)
	}
	return nil
}

// New creates a Config by parsing RYOS_MEMORY_-prefixed environment
// variables.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("RYOS_MEMORY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("kv_driver", cfg.KVDriver).
		Str("redis_addr", cfg.RedisAddr).
		Int("redis_db", cfg.RedisDB).
		Int("http_port", cfg.HTTPPort).
		Int("shortterm_ttl_days", cfg.ShorttermTTLDays).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config suitable for unit tests.
func NewForTesting() *Config {
	return &Config{
		Environment:               EnvTesting,
		HTTPPort:                  8080,
		KVDriver:                  "redis",
		RedisAddr:                 "localhost:6379",
		ShorttermTTLDays:          7,
		HealthIntervalSeconds:     1,
		HealthProbeTimeoutSeconds: 1,
		StartupTimeoutSeconds:     5,
	}
}

// IsTesting returns true if the environment is set to testing.
func (c *Config) IsTesting() bool { return c.Environment == EnvTesting }

// IsProduction returns true if the environment is set to production.
func (c *Config) IsProduction() bool { return c.Environment == EnvProduction }

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string { return fmt.Sprintf(":%d", c.HTTPPort) }
