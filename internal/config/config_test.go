package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "localhost:6379", cfg.RedisAddress)
	assert.Equal(t, "feedcache:", cfg.CacheKeyPrefix)
	assert.Equal(t, "10000", cfg.CacheLocalCapacity)
	assert.Equal(t, "5", cfg.BreakerThreshold)
	assert.Equal(t, "30s", cfg.BreakerCooldown)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDRESS", "redis.internal:6380")
	t.Setenv("CACHE_LOCAL_CAPACITY", "500")
	t.Setenv("CACHE_BREAKER_THRESHOLD", "3")

	cfg := Load()

	assert.Equal(t, "redis.internal:6380", cfg.RedisAddress)
	assert.Equal(t, 500, cfg.LocalCapacity())
	assert.Equal(t, 3, cfg.BreakerFailureThreshold())
}

func TestValidate(t *testing.T) {
	valid := func() *Config { return Load() }

	t.Run("default configuration is valid", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("rejects invalid port", func(t *testing.T) {
		cfg := valid()
		cfg.Port = "99999"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects empty redis address", func(t *testing.T) {
		cfg := valid()
		cfg.RedisAddress = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects redis db out of range", func(t *testing.T) {
		cfg := valid()
		cfg.RedisDB = "16"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects non-positive pool size", func(t *testing.T) {
		cfg := valid()
		cfg.RedisPoolSize = "0"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects zero local capacity", func(t *testing.T) {
		cfg := valid()
		cfg.CacheLocalCapacity = "0"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects malformed durations", func(t *testing.T) {
		cfg := valid()
		cfg.CacheRemoteTimeout = "fast"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects max cooldown below cooldown", func(t *testing.T) {
		cfg := valid()
		cfg.BreakerCooldown = "60s"
		cfg.BreakerMaxCooldown = "30s"
		assert.Error(t, cfg.Validate())
	})
}

func TestTypedAccessors(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 10, cfg.RedisPoolSizeNumber())
	assert.Equal(t, 0, cfg.RedisDBNumber())
	assert.Equal(t, time.Minute, cfg.SweepInterval())
	assert.Equal(t, 100*time.Millisecond, cfg.RemoteTimeout())
	assert.Equal(t, 30*time.Second, cfg.WarmTTL())
	assert.Equal(t, 30*time.Second, cfg.BreakerCooldownDuration())
	assert.Equal(t, 120*time.Second, cfg.BreakerMaxCooldownDuration())
	assert.Equal(t, 30*time.Second, cfg.FeedTTL())
}
