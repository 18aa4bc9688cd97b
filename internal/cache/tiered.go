package cache

import (
	"context"
	"time"

	"feedcache/internal/circuitbreaker"
	apperrors "feedcache/internal/common/errors"
	"feedcache/internal/common/logging"
	"feedcache/internal/stats"
)

// RemoteBackend is the surface TieredCache needs from the remote tier.
// *RemoteStore implements it; tests substitute a mock to assert call counts.
type RemoteBackend interface {
	Get(ctx context.Context, key string) (interface{}, time.Duration, bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	ScanDelete(ctx context.Context, prefix string) (int, error)
	Ping(ctx context.Context) error
}

var _ RemoteBackend = (*RemoteStore)(nil)

// BackendRemote and BackendDegraded are the values reported in the Backend
// field of a stats snapshot.
const (
	BackendRemote   = "remote"
	BackendDegraded = "memory-degraded"
)

// Options configures a TieredCache. Local and Remote are required; the
// remaining fields default sensibly.
type Options struct {
	Local   *LocalStore
	Remote  RemoteBackend
	Breaker *circuitbreaker.CircuitBreaker
	Stats   *stats.Collector
	Logger  logging.Logger

	// WarmTTL is the local-tier TTL applied when a remote hit is copied
	// into the local tier. Defaults to 30s.
	WarmTTL time.Duration
}

// TieredCache composes the circuit breaker, remote tier, local tier and
// stats collector behind the Get/Set/InvalidatePrefix contract. It is safe
// for arbitrary concurrent callers.
//
// Operational failures of the remote tier never surface as errors from
// Get, Set or InvalidatePrefix; they degrade to a cache miss or a
// local-tier answer, observable only through Stats(). The only errors these
// methods return are validation errors for invalid arguments.
type TieredCache struct {
	local   *LocalStore
	remote  RemoteBackend
	breaker *circuitbreaker.CircuitBreaker
	stats   *stats.Collector
	logger  logging.Logger
	warmTTL time.Duration
}

// New creates a TieredCache from options.
func New(opts Options) (*TieredCache, error) {
	if opts.Local == nil {
		return nil, apperrors.ConfigError("local store is required")
	}
	if opts.Remote == nil {
		return nil, apperrors.ConfigError("remote store is required")
	}

	breaker := opts.Breaker
	if breaker == nil {
		breaker = circuitbreaker.New("remote-cache", circuitbreaker.DefaultConfig())
	}

	collector := opts.Stats
	if collector == nil {
		collector = stats.New()
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	warmTTL := opts.WarmTTL
	if warmTTL <= 0 {
		warmTTL = 30 * time.Second
	}

	tc := &TieredCache{
		local:   opts.Local,
		remote:  opts.Remote,
		breaker: breaker,
		stats:   collector,
		logger:  logger,
		warmTTL: warmTTL,
	}

	breaker.OnStateChange(func(name string, from, to circuitbreaker.State) {
		tc.logger.Warn("remote cache circuit state changed",
			logging.String("breaker", name),
			logging.String("from", from.String()),
			logging.String("to", to.String()),
		)
	})

	return tc, nil
}

// Get returns the cached value for key, consulting the remote tier when the
// circuit breaker permits and the local tier otherwise or on a remote miss.
// The returned error is non-nil only for an invalid key.
func (t *TieredCache) Get(ctx context.Context, key string) (interface{}, bool, error) {
	if key == "" {
		return nil, false, apperrors.ValidationError("key must not be empty")
	}

	t.stats.IncRequest()

	res := t.remoteLookup(ctx, key)
	if res.Outcome == OutcomeHit {
		t.stats.IncHit()
		// Keep the local tier warm so a later remote outage can still serve
		// this value. The warm TTL is capped at the value's remaining
		// lifetime; warming must never push a value past its expiry.
		warm := t.warmTTL
		if res.TTL > 0 && res.TTL < warm {
			warm = res.TTL
		}
		t.local.Set(key, res.Value, warm)
		return res.Value, true, nil
	}

	// Remote miss or degraded: the local tier is always consulted, both to
	// serve recently-written values that have not propagated and to answer
	// during degraded mode.
	if value, ok := t.local.Get(key); ok {
		t.stats.IncHit()
		return value, true, nil
	}

	t.stats.IncMiss()
	return nil, false, nil
}

// remoteLookup consults the remote tier through the circuit breaker and
// returns a tagged result. All stats and breaker accounting for the remote
// leg happens here.
func (t *TieredCache) remoteLookup(ctx context.Context, key string) Result {
	if !t.breaker.Allow() {
		t.stats.IncFallback()
		return Result{Outcome: OutcomeDegraded}
	}

	value, remaining, found, err := t.remote.Get(ctx, key)
	if err != nil {
		t.stats.IncError()

		if apperrors.IsType(err, apperrors.ErrTypeSerialization) {
			// The remote answered; the payload is unreadable. Treat as a
			// miss rather than an availability failure.
			t.breaker.OnSuccess()
			t.logger.Warn("discarding unreadable remote cache entry",
				logging.String("key", key), logging.Err(err))
			return Result{Outcome: OutcomeMiss}
		}

		t.breaker.OnFailure()
		t.stats.IncFallback()
		t.logger.Warn("remote cache unavailable, serving from local tier",
			logging.String("key", key), logging.Err(err))
		return Result{Outcome: OutcomeDegraded}
	}

	t.breaker.OnSuccess()
	if !found {
		return Result{Outcome: OutcomeMiss}
	}
	return Result{Outcome: OutcomeHit, Value: value, TTL: remaining}
}

// Set writes value through both tiers. The local write always happens, so
// the value is immediately visible even if Redis is down or slow; the
// remote write is attempted only when the breaker permits it, and its
// failure is recorded but never returned. The returned error is non-nil
// only for invalid arguments.
func (t *TieredCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		return apperrors.ValidationError("key must not be empty")
	}
	if ttl <= 0 {
		return apperrors.ValidationError("ttl must be positive")
	}

	t.local.Set(key, value, ttl)

	if !t.breaker.Allow() {
		return nil
	}

	// The write-through is detached from the caller's cancellation: once the
	// local write has happened, finishing the remote write only improves
	// future hit rate. The remote adapter applies its own timeout.
	err := t.remote.Set(context.WithoutCancel(ctx), key, value, ttl)
	if err != nil {
		t.stats.IncError()

		if apperrors.IsType(err, apperrors.ErrTypeSerialization) {
			t.breaker.OnSuccess()
			t.logger.Warn("value not serializable for remote tier, kept local only",
				logging.String("key", key), logging.Err(err))
			return nil
		}

		t.breaker.OnFailure()
		t.logger.Warn("remote cache write failed, kept local only",
			logging.String("key", key), logging.Err(err))
		return nil
	}

	t.breaker.OnSuccess()
	return nil
}

// InvalidatePrefix removes every entry whose key starts with prefix from
// both tiers and returns the number removed. Local removal is exact and
// immediate; remote removal is an incremental scan and may undercount when
// cut short. The returned error is non-nil only for an empty prefix.
func (t *TieredCache) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, apperrors.ValidationError("prefix must not be empty")
	}

	removed := t.local.DeletePrefix(prefix)

	if !t.breaker.Allow() {
		return removed, nil
	}

	n, err := t.remote.ScanDelete(ctx, prefix)
	removed += n
	if err != nil {
		t.stats.IncError()

		if apperrors.IsType(err, apperrors.ErrTypeSerialization) {
			t.breaker.OnSuccess()
		} else {
			t.breaker.OnFailure()
		}
		t.logger.Warn("remote prefix invalidation incomplete",
			logging.String("prefix", prefix),
			logging.Int("removed", removed),
			logging.Err(err))
		return removed, nil
	}

	t.breaker.OnSuccess()
	return removed, nil
}

// Stats returns a snapshot of the cache counters. Backend reports "remote"
// while the breaker is closed and "memory-degraded" while the remote tier
// is being bypassed.
func (t *TieredCache) Stats() stats.Snapshot {
	s := t.stats.Snapshot()
	if t.breaker.State() == circuitbreaker.StateClosed {
		s.Backend = BackendRemote
	} else {
		s.Backend = BackendDegraded
	}
	return s
}

// ResetStats zeroes the counters. For tests and admin tooling only.
func (t *TieredCache) ResetStats() {
	t.stats.Reset()
}

// BreakerStats exposes the circuit breaker's current view for health
// reporting.
func (t *TieredCache) BreakerStats() circuitbreaker.Stats {
	return t.breaker.Stats()
}

// Ping checks remote connectivity through the breaker. While the circuit is
// open it fails fast without touching Redis.
func (t *TieredCache) Ping(ctx context.Context) error {
	if !t.breaker.Allow() {
		return apperrors.TransientError("remote cache circuit is open", nil)
	}

	if err := t.remote.Ping(ctx); err != nil {
		t.breaker.OnFailure()
		return err
	}

	t.breaker.OnSuccess()
	return nil
}

// Close stops the local tier's background sweep.
func (t *TieredCache) Close() {
	t.local.Close()
}
