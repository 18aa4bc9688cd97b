package stats

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	c := New()

	c.IncRequest()
	c.IncRequest()
	c.IncHit()
	c.IncMiss()
	c.IncError()
	c.IncFallback()

	s := c.Snapshot()
	assert.Equal(t, int64(2), s.TotalRequests)
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, int64(1), s.Errors)
	assert.Equal(t, int64(1), s.FallbackToLocal)
}

func TestCollector_HitRate(t *testing.T) {
	t.Run("zero lookups means zero rate", func(t *testing.T) {
		assert.Equal(t, float64(0), New().Snapshot().HitRatePercent)
	})

	t.Run("computed from hits and misses", func(t *testing.T) {
		c := New()
		for i := 0; i < 3; i++ {
			c.IncHit()
		}
		c.IncMiss()

		assert.InDelta(t, 75.0, c.Snapshot().HitRatePercent, 0.001)
	})

	t.Run("all hits", func(t *testing.T) {
		c := New()
		c.IncHit()
		assert.InDelta(t, 100.0, c.Snapshot().HitRatePercent, 0.001)
	})
}

func TestCollector_Reset(t *testing.T) {
	c := New()
	c.IncRequest()
	c.IncHit()
	c.IncError()

	c.Reset()

	s := c.Snapshot()
	assert.Zero(t, s.TotalRequests)
	assert.Zero(t, s.Hits)
	assert.Zero(t, s.Errors)
	assert.Zero(t, s.HitRatePercent)
}

func TestCollector_ConcurrentIncrements(t *testing.T) {
	c := New()

	const workers = 20
	const perWorker = 500

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				c.IncRequest()
				c.IncHit()
				c.IncMiss()
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	assert.Equal(t, int64(workers*perWorker), s.TotalRequests)
	assert.Equal(t, int64(workers*perWorker), s.Hits)
	assert.Equal(t, int64(workers*perWorker), s.Misses)
	assert.InDelta(t, 50.0, s.HitRatePercent, 0.001)
}

func TestCollector_PrometheusMirror(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewWithRegistry(registry)

	c.IncRequest()
	c.IncHit()
	c.IncHit()

	families, err := registry.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)

	hits := findCounterValue(t, registry, MetricHits)
	assert.Equal(t, float64(2), hits)

	t.Run("reset leaves mirror monotonic", func(t *testing.T) {
		c.Reset()
		assert.Equal(t, float64(2), findCounterValue(t, registry, MetricHits))
		assert.Zero(t, c.Snapshot().Hits)
	})
}

func findCounterValue(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			require.Len(t, mf.GetMetric(), 1)
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestCollector_MirrorlessIsNoop(t *testing.T) {
	c := New()
	assert.NotPanics(t, func() {
		c.IncRequest()
		c.IncHit()
		c.IncMiss()
		c.IncError()
		c.IncFallback()
	})
}
