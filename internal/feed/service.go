// Package feed implements the read-through feed page service on top of the
// tiered cache. Feed pages are cached under deterministic pagination keys so
// any write path can invalidate every cached page with a single prefix.
package feed

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "feedcache/internal/common/errors"
	"feedcache/internal/common/logging"
)

// KeyPrefix is the shared prefix of every global feed page key. Invalidating
// it drops all cached pages at once.
const KeyPrefix = "feed:global"

// maxPageLimit bounds a single feed page.
const maxPageLimit = 100

// Cache is the surface the service needs from the tiered cache.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string) (int, error)
}

// Loader produces a feed page from the source of truth on a cache miss.
type Loader interface {
	LoadFeed(ctx context.Context, skip, limit int) (interface{}, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, skip, limit int) (interface{}, error)

func (f LoaderFunc) LoadFeed(ctx context.Context, skip, limit int) (interface{}, error) {
	return f(ctx, skip, limit)
}

// PageKey returns the cache key for one page of the global feed.
func PageKey(skip, limit int) string {
	return fmt.Sprintf("%s:skip=%d:limit=%d", KeyPrefix, skip, limit)
}

// Service serves feed pages read-through: cache first, loader on miss, and
// concurrent misses for the same page collapsed into a single load.
type Service struct {
	cache  Cache
	loader Loader
	ttl    time.Duration
	logger logging.Logger
	group  singleflight.Group
}

// NewService creates a feed service. ttl bounds how stale a cached page may
// be and defaults to 30s.
func NewService(cache Cache, loader Loader, ttl time.Duration, logger logging.Logger) (*Service, error) {
	if cache == nil {
		return nil, apperrors.ConfigError("feed service requires a cache")
	}
	if loader == nil {
		return nil, apperrors.ConfigError("feed service requires a loader")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Service{
		cache:  cache,
		loader: loader,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// GetPage returns one page of the global feed, serving from cache when
// possible. A loader failure is returned as-is; it is never cached.
func (s *Service) GetPage(ctx context.Context, skip, limit int) (interface{}, error) {
	if skip < 0 {
		return nil, apperrors.ValidationError("skip must not be negative")
	}
	if limit < 1 || limit > maxPageLimit {
		return nil, apperrors.ValidationError(fmt.Sprintf("limit must be between 1 and %d", maxPageLimit))
	}

	key := PageKey(skip, limit)

	if value, ok, err := s.cache.Get(ctx, key); err != nil {
		return nil, err
	} else if ok {
		return value, nil
	}

	// Collapse concurrent misses for the same page into one load. The shared
	// result is handed to every waiter.
	value, err, _ := s.group.Do(key, func() (interface{}, error) {
		page, err := s.loader.LoadFeed(ctx, skip, limit)
		if err != nil {
			return nil, err
		}

		if err := s.cache.Set(ctx, key, page, s.ttl); err != nil {
			// Only invalid arguments reach here; the page itself is fine.
			s.logger.Warn("failed to cache feed page",
				logging.String("key", key), logging.Err(err))
		}

		return page, nil
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

// InvalidateAll drops every cached feed page from both tiers and returns the
// number of entries removed. Called after any write that changes feed
// content.
func (s *Service) InvalidateAll(ctx context.Context) (int, error) {
	removed, err := s.cache.InvalidatePrefix(ctx, KeyPrefix)
	if err != nil {
		return removed, err
	}

	s.logger.Info("invalidated cached feed pages", logging.Int("removed", removed))
	return removed, nil
}
