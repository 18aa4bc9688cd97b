package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	apperrors "feedcache/internal/common/errors"
)

// scanBatchSize bounds how many keys a single SCAN page may visit or a
// single DEL may remove during prefix invalidation, so invalidation never
// stalls the shared Redis under load.
const scanBatchSize = 128

// RemoteConfig holds the connection settings for the remote tier.
type RemoteConfig struct {
	Address   string        `json:"address"`
	Password  string        `json:"password"`
	DB        int           `json:"db"`
	PoolSize  int           `json:"pool_size"`
	KeyPrefix string        `json:"key_prefix"`
	OpTimeout time.Duration `json:"op_timeout"`
}

// RemoteStore adapts a pooled Redis client into the remote cache tier.
// Every operation is bounded by the configured per-operation timeout, and
// every wire-level error is classified as either transient or a
// serialization failure before it reaches the orchestrator. JSON
// encode/decode is isolated here; the local tier holds values in their
// native representation.
type RemoteStore struct {
	rdb         *redis.Client
	keyPrefix   string
	opTimeout   time.Duration
	scanTimeout time.Duration
}

// NewRemoteStore wraps an existing Redis client. Use DialRemote to build the
// client from configuration with a boot-time connectivity check.
func NewRemoteStore(rdb *redis.Client, keyPrefix string, opTimeout time.Duration) *RemoteStore {
	if opTimeout <= 0 {
		opTimeout = 100 * time.Millisecond
	}

	scanTimeout := opTimeout * 10
	if scanTimeout < time.Second {
		scanTimeout = time.Second
	}

	return &RemoteStore{
		rdb:         rdb,
		keyPrefix:   keyPrefix,
		opTimeout:   opTimeout,
		scanTimeout: scanTimeout,
	}
}

// DialRemote connects to Redis and verifies the connection. A failure here
// is a configuration error and should abort startup; it is never surfaced
// as a per-request condition.
func DialRemote(config *RemoteConfig) (*RemoteStore, error) {
	if config == nil {
		return nil, apperrors.ConfigError("remote cache config is required")
	}

	if config.Address == "" {
		config.Address = "localhost:6379"
	}
	if config.PoolSize == 0 {
		config.PoolSize = 10
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, apperrors.ConfigError(fmt.Sprintf("failed to connect to Redis at %s: %v", config.Address, err))
	}

	return NewRemoteStore(rdb, config.KeyPrefix, config.OpTimeout), nil
}

// Close releases the underlying connection pool.
func (s *RemoteStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies the connection within the operation timeout.
func (s *RemoteStore) Ping(ctx context.Context) error {
	tctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.rdb.Ping(tctx).Err(); err != nil {
		return apperrors.TransientError("redis ping failed", err)
	}
	return nil
}

// Get fetches and decodes the value for key along with its remaining
// lifetime, so callers warming another tier never extend the value past its
// original expiry. A missing key is (nil, 0, false, nil); an unreachable
// Redis is a transient error; an undecodable payload is a serialization
// error. A zero remaining lifetime means Redis reported no expiry.
func (s *RemoteStore) Get(ctx context.Context, key string) (interface{}, time.Duration, bool, error) {
	tctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	// GET and PTTL in one round trip.
	pipe := s.rdb.Pipeline()
	getCmd := pipe.Get(tctx, s.keyPrefix+key)
	ttlCmd := pipe.PTTL(tctx, s.keyPrefix+key)
	if _, err := pipe.Exec(tctx); err != nil && err != redis.Nil {
		return nil, 0, false, apperrors.TransientError("redis get failed", err).WithContext("key", key)
	}

	data, err := getCmd.Result()
	if err == redis.Nil {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, apperrors.TransientError("redis get failed", err).WithContext("key", key)
	}

	var value interface{}
	if err := json.Unmarshal([]byte(data), &value); err != nil {
		return nil, 0, false, apperrors.SerializationError("failed to decode cached value", err).WithContext("key", key)
	}

	// PTTL reports -1 for keys without an expiry and -2 for missing keys.
	remaining := ttlCmd.Val()
	if remaining < 0 {
		remaining = 0
	}

	return value, remaining, true, nil
}

// Set encodes value as JSON and stores it under key for ttl.
func (s *RemoteStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.SerializationError("failed to encode value", err).WithContext("key", key)
	}

	tctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.rdb.Set(tctx, s.keyPrefix+key, data, ttl).Err(); err != nil {
		return apperrors.TransientError("redis set failed", err).WithContext("key", key)
	}
	return nil
}

// Delete removes the entry for key.
func (s *RemoteStore) Delete(ctx context.Context, key string) error {
	tctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.rdb.Del(tctx, s.keyPrefix+key).Err(); err != nil {
		return apperrors.TransientError("redis delete failed", err).WithContext("key", key)
	}
	return nil
}

// ScanDelete removes every key starting with prefix using an incremental
// cursor-based SCAN with batched deletes, never a single blocking full
// scan. It returns the number of keys removed; on error the count covers
// what was deleted before the scan was cut short, so callers treat it as a
// best-effort lower bound.
func (s *RemoteStore) ScanDelete(ctx context.Context, prefix string) (int, error) {
	tctx, cancel := context.WithTimeout(ctx, s.scanTimeout)
	defer cancel()

	// Literal prefix match: SCAN patterns are globs, so metacharacters in
	// the prefix must be escaped.
	pattern := escapeGlob(s.keyPrefix+prefix) + "*"

	deleted := 0
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(tctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return deleted, apperrors.TransientError("redis scan failed", err).WithContext("prefix", prefix)
		}

		if len(keys) > 0 {
			n, err := s.rdb.Del(tctx, keys...).Result()
			if err != nil {
				return deleted, apperrors.TransientError("redis batched delete failed", err).WithContext("prefix", prefix)
			}
			deleted += int(n)
		}

		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// escapeGlob escapes Redis glob metacharacters so a pattern matches the
// literal prefix.
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
