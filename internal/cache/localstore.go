package cache

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	apperrors "feedcache/internal/common/errors"
)

// LocalStore is the bounded in-process tier. Capacity is enforced by LRU
// eviction; staleness is enforced per entry, lazily on read and by an
// optional periodic sweep. The underlying LRU is safe for concurrent use.
type LocalStore struct {
	entries *lru.Cache[string, entry]

	// now is the clock; replaceable in tests. Guarded by clockMu because
	// the sweep goroutine reads it concurrently with SetClock.
	clockMu sync.RWMutex
	now     func() time.Time

	sweepInterval time.Duration
	stopSweep     chan struct{}
	stopOnce      sync.Once
}

// NewLocalStore creates a local store holding at most capacity entries.
// A positive sweepInterval enables the background expiry sweep once
// StartSweep is called.
func NewLocalStore(capacity int, sweepInterval time.Duration) (*LocalStore, error) {
	if capacity < 1 {
		return nil, apperrors.ConfigError("local store capacity must be positive")
	}

	entries, err := lru.New[string, entry](capacity)
	if err != nil {
		return nil, apperrors.ConfigError("failed to create local store: " + err.Error())
	}

	return &LocalStore{
		entries:       entries,
		now:           time.Now,
		sweepInterval: sweepInterval,
		stopSweep:     make(chan struct{}),
	}, nil
}

// Get returns the unexpired value for key. Expired entries are removed and
// reported as absent.
func (ls *LocalStore) Get(key string) (interface{}, bool) {
	e, ok := ls.entries.Get(key)
	if !ok {
		return nil, false
	}

	if e.expired(ls.clock()) {
		ls.entries.Remove(key)
		return nil, false
	}

	return e.value, true
}

// Set stores value under key for ttl. Inserting beyond capacity evicts the
// least-recently-used entry.
func (ls *LocalStore) Set(key string, value interface{}, ttl time.Duration) {
	storedAt := ls.clock()
	ls.entries.Add(key, entry{
		value:     value,
		storedAt:  storedAt,
		expiresAt: storedAt.Add(ttl),
	})
}

// Delete removes the entry for key if present.
func (ls *LocalStore) Delete(key string) {
	ls.entries.Remove(key)
}

// DeletePrefix removes every entry whose key starts with prefix and returns
// the number removed. The scan is bounded by the store's capacity.
func (ls *LocalStore) DeletePrefix(prefix string) int {
	removed := 0
	for _, key := range ls.entries.Keys() {
		if strings.HasPrefix(key, prefix) {
			if ls.entries.Remove(key) {
				removed++
			}
		}
	}
	return removed
}

// Len returns the number of entries currently held, including any expired
// entries the sweep has not reached yet.
func (ls *LocalStore) Len() int {
	return ls.entries.Len()
}

// Purge drops every entry.
func (ls *LocalStore) Purge() {
	ls.entries.Purge()
}

// StartSweep launches the periodic expiry sweep. It is a no-op when the
// store was created without a sweep interval. Stop it with Close.
func (ls *LocalStore) StartSweep() {
	if ls.sweepInterval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(ls.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ls.removeExpired()
			case <-ls.stopSweep:
				return
			}
		}
	}()
}

// removeExpired drops every entry past its expiry.
func (ls *LocalStore) removeExpired() int {
	now := ls.clock()
	removed := 0
	for _, key := range ls.entries.Keys() {
		if e, ok := ls.entries.Peek(key); ok && e.expired(now) {
			if ls.entries.Remove(key) {
				removed++
			}
		}
	}
	return removed
}

// Close stops the background sweep. Safe to call multiple times.
func (ls *LocalStore) Close() {
	ls.stopOnce.Do(func() {
		close(ls.stopSweep)
	})
}

func (ls *LocalStore) clock() time.Time {
	ls.clockMu.RLock()
	defer ls.clockMu.RUnlock()
	return ls.now()
}

// SetClock replaces the store's clock. Intended for tests; safe to call
// while the sweep is running.
func (ls *LocalStore) SetClock(now func() time.Time) {
	ls.clockMu.Lock()
	defer ls.clockMu.Unlock()
	ls.now = now
}
