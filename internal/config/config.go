// Package config provides configuration management for the feed cache service.
// It handles loading configuration from environment variables with sensible
// defaults and validates the configuration so the process fails fast at boot
// instead of surfacing configuration problems as per-request errors.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Admin/health server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//
// Redis Configuration:
//   - REDIS_ADDRESS: Redis server address (default: localhost:6379)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//
// Cache Configuration:
//   - CACHE_KEY_PREFIX: Namespace prepended to every remote key (default: feedcache:)
//   - CACHE_LOCAL_CAPACITY: Max entries held by the local tier (default: 10000)
//   - CACHE_SWEEP_INTERVAL: Period of the local expiry sweep (default: 1m)
//   - CACHE_REMOTE_TIMEOUT: Per-operation remote timeout (default: 100ms)
//   - CACHE_WARM_TTL: TTL used when warming the local tier from a remote hit (default: 30s)
//
// Circuit Breaker:
//   - CACHE_BREAKER_THRESHOLD: Consecutive failures before the breaker opens (default: 5)
//   - CACHE_BREAKER_COOLDOWN: Time the breaker stays open before probing (default: 30s)
//   - CACHE_BREAKER_MAX_COOLDOWN: Cap on the backed-off cooldown (default: 120s)
//
// Feed:
//   - FEED_CACHE_TTL: TTL for cached feed pages (default: 30s)
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values for the feed cache service.
// All string fields correspond to environment variables that can be set to
// override the default values.
//
// The configuration is loaded using the Load() function and should be
// validated using the Validate() method before use.
type Config struct {
	// Application settings
	Port     string // Admin server port number
	LogLevel string // Logging level (debug, info, warn, error)

	// Redis configuration for the remote cache tier
	RedisAddress  string // Redis server address (host:port)
	RedisPassword string // Redis authentication password
	RedisDB       string // Redis database number (0-15)
	RedisPoolSize string // Redis connection pool size

	// Cache tuning
	CacheKeyPrefix     string // Namespace prefix for remote keys
	CacheLocalCapacity string // Bounded capacity of the local tier
	CacheSweepInterval string // Local expiry sweep period (e.g. "1m")
	CacheRemoteTimeout string // Per-operation remote timeout (e.g. "100ms")
	CacheWarmTTL       string // Local TTL for values warmed from remote hits

	// Circuit breaker tuning
	BreakerThreshold   string // Consecutive failures before opening
	BreakerCooldown    string // Open-state cooldown before probing
	BreakerMaxCooldown string // Cap for the backed-off cooldown

	// Feed settings
	FeedCacheTTL string // TTL for cached feed pages
}

// Load creates a new Config instance with values loaded from environment variables.
// If an environment variable is not set, the corresponding default value is used.
//
// This function does not validate the configuration - call Validate() on the
// returned Config to ensure all values are properly set and valid.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),
		RedisPoolSize: getEnv("REDIS_POOL_SIZE", "10"),

		CacheKeyPrefix:     getEnv("CACHE_KEY_PREFIX", "feedcache:"),
		CacheLocalCapacity: getEnv("CACHE_LOCAL_CAPACITY", "10000"),
		CacheSweepInterval: getEnv("CACHE_SWEEP_INTERVAL", "1m"),
		CacheRemoteTimeout: getEnv("CACHE_REMOTE_TIMEOUT", "100ms"),
		CacheWarmTTL:       getEnv("CACHE_WARM_TTL", "30s"),

		BreakerThreshold:   getEnv("CACHE_BREAKER_THRESHOLD", "5"),
		BreakerCooldown:    getEnv("CACHE_BREAKER_COOLDOWN", "30s"),
		BreakerMaxCooldown: getEnv("CACHE_BREAKER_MAX_COOLDOWN", "120s"),

		FeedCacheTTL: getEnv("FEED_CACHE_TTL", "30s"),
	}
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate performs comprehensive validation on the configuration to ensure
// all values are valid. The application should call this method after loading
// configuration and before starting; a non-nil error here is a boot-time
// configuration error, never a per-request condition.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	if c.RedisAddress == "" {
		return fmt.Errorf("REDIS_ADDRESS is required")
	}
	if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
		return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
	}
	if poolSize, err := strconv.Atoi(c.RedisPoolSize); err != nil || poolSize < 1 {
		return fmt.Errorf("REDIS_POOL_SIZE must be a positive number")
	}

	if capacity, err := strconv.Atoi(c.CacheLocalCapacity); err != nil || capacity < 1 {
		return fmt.Errorf("CACHE_LOCAL_CAPACITY must be a positive number")
	}
	if _, err := time.ParseDuration(c.CacheSweepInterval); err != nil {
		return fmt.Errorf("CACHE_SWEEP_INTERVAL must be a valid duration (e.g. '1m')")
	}
	if d, err := time.ParseDuration(c.CacheRemoteTimeout); err != nil || d <= 0 {
		return fmt.Errorf("CACHE_REMOTE_TIMEOUT must be a positive duration (e.g. '100ms')")
	}
	if d, err := time.ParseDuration(c.CacheWarmTTL); err != nil || d <= 0 {
		return fmt.Errorf("CACHE_WARM_TTL must be a positive duration (e.g. '30s')")
	}

	if threshold, err := strconv.Atoi(c.BreakerThreshold); err != nil || threshold < 1 {
		return fmt.Errorf("CACHE_BREAKER_THRESHOLD must be a positive number")
	}
	cooldown, err := time.ParseDuration(c.BreakerCooldown)
	if err != nil || cooldown <= 0 {
		return fmt.Errorf("CACHE_BREAKER_COOLDOWN must be a positive duration (e.g. '30s')")
	}
	maxCooldown, err := time.ParseDuration(c.BreakerMaxCooldown)
	if err != nil || maxCooldown < cooldown {
		return fmt.Errorf("CACHE_BREAKER_MAX_COOLDOWN must be a duration >= CACHE_BREAKER_COOLDOWN")
	}

	if d, err := time.ParseDuration(c.FeedCacheTTL); err != nil || d <= 0 {
		return fmt.Errorf("FEED_CACHE_TTL must be a positive duration (e.g. '30s')")
	}

	return nil
}

// Typed accessors. These assume Validate() has passed and fall back to the
// documented defaults on parse errors so they never panic.

// RedisDBNumber returns the Redis database number.
func (c *Config) RedisDBNumber() int {
	return intOr(c.RedisDB, 0)
}

// RedisPoolSizeNumber returns the Redis connection pool size.
func (c *Config) RedisPoolSizeNumber() int {
	return intOr(c.RedisPoolSize, 10)
}

// LocalCapacity returns the bounded capacity of the local tier.
func (c *Config) LocalCapacity() int {
	return intOr(c.CacheLocalCapacity, 10000)
}

// SweepInterval returns the local expiry sweep period.
func (c *Config) SweepInterval() time.Duration {
	return durationOr(c.CacheSweepInterval, time.Minute)
}

// RemoteTimeout returns the per-operation remote timeout.
func (c *Config) RemoteTimeout() time.Duration {
	return durationOr(c.CacheRemoteTimeout, 100*time.Millisecond)
}

// WarmTTL returns the local TTL for values warmed from remote hits.
func (c *Config) WarmTTL() time.Duration {
	return durationOr(c.CacheWarmTTL, 30*time.Second)
}

// BreakerFailureThreshold returns the consecutive-failure threshold.
func (c *Config) BreakerFailureThreshold() int {
	return intOr(c.BreakerThreshold, 5)
}

// BreakerCooldownDuration returns the open-state cooldown.
func (c *Config) BreakerCooldownDuration() time.Duration {
	return durationOr(c.BreakerCooldown, 30*time.Second)
}

// BreakerMaxCooldownDuration returns the cap for the backed-off cooldown.
func (c *Config) BreakerMaxCooldownDuration() time.Duration {
	return durationOr(c.BreakerMaxCooldown, 120*time.Second)
}

// FeedTTL returns the TTL for cached feed pages.
func (c *Config) FeedTTL() time.Duration {
	return durationOr(c.FeedCacheTTL, 30*time.Second)
}

func intOr(s string, fallback int) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return fallback
}

func durationOr(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return fallback
}
