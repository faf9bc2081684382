package config

import (
	"os"
	"testing"
)

func TestConfigLoad_Defaults(t *testing.T) {
	_ = os.Unsetenv("RYOS_MEMORY_HTTP_PORT")
	_ = os.Unsetenv("RYOS_MEMORY_REDIS_ADDR")
	_ = os.Unsetenv("RYOS_MEMORY_KV_DRIVER")
	_ = os.Unsetenv("RYOS_MEMORY_SHORTTERM_TTL_DAYS")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.HTTPPort != 8080 || cfg.RedisAddr != "localhost:6379" || cfg.ShorttermTTLDays != 7 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.KVDriver != "redis" {
		t.Fatalf("KV driver should resolve to redis, got %q", cfg.KVDriver)
	}
}

func TestConfigLoad_EnvOverride(t *testing.T) {
	_ = os.Setenv("RYOS_MEMORY_REDIS_ADDR", "redis.internal:6380")
	_ = os.Setenv("RYOS_MEMORY_SHORTTERM_TTL_DAYS", "14")
	defer func() {
		_ = os.Unsetenv("RYOS_MEMORY_REDIS_ADDR")
		_ = os.Unsetenv("RYOS_MEMORY_SHORTTERM_TTL_DAYS")
	}()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.RedisAddr != "redis.internal:6380" {
		t.Fatalf("redis addr override failed, got %s", cfg.RedisAddr)
	}
	if cfg.ShorttermTTLDays != 14 {
		t.Fatalf("ttl override failed, got %d", cfg.ShorttermTTLDays)
	}
}

func TestResolveDefaults_RejectsUnknownDriver(t *testing.T) {
	cfg := NewForTesting()
	cfg.KVDriver = "dynamo"
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestResolveDefaults_RejectsNonPositiveTTL(t *testing.T) {
	cfg := NewForTesting()
	cfg.ShorttermTTLDays = 0
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatalf("expected error for zero TTL")
	}
}
