// Package stats provides concurrency-safe counters for cache observability.
package stats

import (
	"sync/atomic"
)

// Metric names exported to Prometheus.
const (
	MetricRequests  = "feedcache_requests_total"
	MetricHits      = "feedcache_hits_total"
	MetricMisses    = "feedcache_misses_total"
	MetricErrors    = "feedcache_errors_total"
	MetricFallbacks = "feedcache_local_fallbacks_total"
)

// Snapshot is a consistent, immutable copy of the cache counters.
type Snapshot struct {
	Hits            int64   `json:"hits"`
	Misses          int64   `json:"misses"`
	Errors          int64   `json:"errors"`
	FallbackToLocal int64   `json:"fallback_to_local_count"`
	TotalRequests   int64   `json:"total_requests"`
	HitRatePercent  float64 `json:"hit_rate_percent"`
	Backend         string  `json:"backend,omitempty"`
}

// Collector tracks cache hit/miss/error counters. All increment operations
// are lock-free and safe for concurrent use. Counters only ever increase;
// Reset exists for tests and admin tooling, never for implicit use.
type Collector struct {
	hits      atomic.Int64
	misses    atomic.Int64
	errors    atomic.Int64
	fallbacks atomic.Int64
	requests  atomic.Int64

	mirror *promMirror
}

// New creates a collector with no Prometheus mirror.
func New() *Collector {
	return &Collector{}
}

// IncRequest counts one call into the cache's read path.
func (c *Collector) IncRequest() {
	c.requests.Add(1)
	c.mirror.inc(MetricRequests)
}

// IncHit counts a lookup served from either tier.
func (c *Collector) IncHit() {
	c.hits.Add(1)
	c.mirror.inc(MetricHits)
}

// IncMiss counts a lookup that found no unexpired value in any tier.
func (c *Collector) IncMiss() {
	c.misses.Add(1)
	c.mirror.inc(MetricMisses)
}

// IncError counts an operational failure (transient remote or serialization).
func (c *Collector) IncError() {
	c.errors.Add(1)
	c.mirror.inc(MetricErrors)
}

// IncFallback counts a read that bypassed the remote tier and was answered
// (or missed) by the local tier because the remote was failing or the
// breaker was open.
func (c *Collector) IncFallback() {
	c.fallbacks.Add(1)
	c.mirror.inc(MetricFallbacks)
}

// Snapshot returns a copy of the counters plus the derived hit rate. The
// copy is taken counter by counter; it is safe under concurrent increments
// but not linearizable across all counters, which is acceptable for
// monitoring output.
func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{
		Hits:            c.hits.Load(),
		Misses:          c.misses.Load(),
		Errors:          c.errors.Load(),
		FallbackToLocal: c.fallbacks.Load(),
		TotalRequests:   c.requests.Load(),
	}

	if lookups := s.Hits + s.Misses; lookups > 0 {
		s.HitRatePercent = float64(s.Hits) / float64(lookups) * 100
	}

	return s
}

// Reset zeroes every counter. For tests and explicit admin operations only.
// The Prometheus mirror is left untouched: scrape-side counters are
// monotonic by contract.
func (c *Collector) Reset() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.errors.Store(0)
	c.fallbacks.Store(0)
	c.requests.Store(0)
}
