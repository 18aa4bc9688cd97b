package stats

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// promMirror duplicates counter increments into Prometheus metrics so the
// cache can be scraped without touching the Snapshot path. A nil mirror is
// valid and makes every operation a no-op.
type promMirror struct {
	registry prometheus.Registerer

	mu       sync.RWMutex
	counters map[string]prometheus.Counter
}

// NewWithRegistry creates a collector whose counters are mirrored into the
// given Prometheus registry. If registry is nil, prometheus.DefaultRegisterer
// is used.
func NewWithRegistry(registry prometheus.Registerer) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	return &Collector{
		mirror: &promMirror{
			registry: registry,
			counters: make(map[string]prometheus.Counter),
		},
	}
}

func (m *promMirror) inc(name string) {
	if m == nil {
		return
	}
	m.getOrCreateCounter(name).Inc()
}

func (m *promMirror) getOrCreateCounter(name string) prometheus.Counter {
	m.mu.RLock()
	counter, ok := m.counters[name]
	m.mu.RUnlock()
	if ok {
		return counter
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock.
	if counter, ok = m.counters[name]; ok {
		return counter
	}

	counter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: name,
	})
	if err := m.registry.Register(counter); err != nil {
		// If already registered, reuse the existing metric.
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				m.counters[name] = existing
				return existing
			}
		}
	}
	m.counters[name] = counter
	return counter
}
