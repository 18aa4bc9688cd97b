package circuitbreaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock shared with the breaker under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(config Config) (*CircuitBreaker, *fakeClock) {
	clock := newFakeClock()
	cb := New("remote-cache", config)
	cb.SetClock(clock.Now)
	return cb, clock
}

func TestBreaker_ClosedAllowsRequests(t *testing.T) {
	cb, _ := newTestBreaker(DefaultConfig())

	assert.Equal(t, StateClosed, cb.State())
	for i := 0; i < 10; i++ {
		assert.True(t, cb.Allow())
		cb.OnSuccess()
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(Config{FailureThreshold: 3, Cooldown: 30 * time.Second})

	t.Run("stays closed below threshold", func(t *testing.T) {
		cb.OnFailure()
		cb.OnFailure()
		assert.Equal(t, StateClosed, cb.State())
		assert.True(t, cb.Allow())
	})

	t.Run("opens at threshold", func(t *testing.T) {
		cb.OnFailure()
		assert.Equal(t, StateOpen, cb.State())
		assert.False(t, cb.Allow())
	})
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(Config{FailureThreshold: 3, Cooldown: 30 * time.Second})

	cb.OnFailure()
	cb.OnFailure()
	cb.OnSuccess()

	// Two more failures alone should not reach the threshold again.
	cb.OnFailure()
	cb.OnFailure()
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreaker_HalfOpenAfterCooldown(t *testing.T) {
	cb, clock := newTestBreaker(Config{FailureThreshold: 1, Cooldown: 30 * time.Second})

	cb.OnFailure()
	require.Equal(t, StateOpen, cb.State())

	t.Run("rejects before cooldown", func(t *testing.T) {
		clock.Advance(29 * time.Second)
		assert.False(t, cb.Allow())
	})

	t.Run("selects probe after cooldown", func(t *testing.T) {
		clock.Advance(2 * time.Second)
		assert.True(t, cb.Allow())
		assert.Equal(t, StateHalfOpen, cb.State())
	})

	t.Run("rejects concurrent callers while probe in flight", func(t *testing.T) {
		assert.False(t, cb.Allow())
		assert.False(t, cb.Allow())
	})
}

func TestBreaker_Recovery(t *testing.T) {
	cb, clock := newTestBreaker(Config{FailureThreshold: 1, Cooldown: 30 * time.Second})

	cb.OnFailure()
	clock.Advance(31 * time.Second)
	require.True(t, cb.Allow())

	cb.OnSuccess()

	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())
	assert.Equal(t, 30*time.Second, cb.Stats().Cooldown)
}

func TestBreaker_FailedProbeBacksOff(t *testing.T) {
	cb, clock := newTestBreaker(Config{
		FailureThreshold: 1,
		Cooldown:         30 * time.Second,
		MaxCooldown:      120 * time.Second,
	})

	cb.OnFailure()

	t.Run("first failed probe doubles cooldown", func(t *testing.T) {
		clock.Advance(31 * time.Second)
		require.True(t, cb.Allow())
		cb.OnFailure()

		assert.Equal(t, StateOpen, cb.State())
		assert.Equal(t, 60*time.Second, cb.Stats().Cooldown)

		// Old cooldown is no longer enough.
		clock.Advance(31 * time.Second)
		assert.False(t, cb.Allow())
	})

	t.Run("cooldown is capped", func(t *testing.T) {
		for i := 0; i < 4; i++ {
			clock.Advance(121 * time.Second)
			require.True(t, cb.Allow())
			cb.OnFailure()
		}
		assert.Equal(t, 120*time.Second, cb.Stats().Cooldown)
	})

	t.Run("successful probe restores base cooldown", func(t *testing.T) {
		clock.Advance(121 * time.Second)
		require.True(t, cb.Allow())
		cb.OnSuccess()

		assert.Equal(t, 30*time.Second, cb.Stats().Cooldown)
	})
}

func TestBreaker_SingleProbeUnderConcurrency(t *testing.T) {
	cb, clock := newTestBreaker(Config{FailureThreshold: 1, Cooldown: time.Second})

	cb.OnFailure()
	clock.Advance(2 * time.Second)

	const callers = 50
	var wg sync.WaitGroup
	allowed := make(chan bool, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- cb.Allow()
		}()
	}
	wg.Wait()
	close(allowed)

	winners := 0
	for ok := range allowed {
		if ok {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestBreaker_OnStateChange(t *testing.T) {
	cb, _ := newTestBreaker(Config{FailureThreshold: 1, Cooldown: 30 * time.Second})

	transitions := make(chan [2]State, 4)
	cb.OnStateChange(func(name string, from, to State) {
		transitions <- [2]State{from, to}
	})

	cb.OnFailure()

	select {
	case tr := <-transitions:
		assert.Equal(t, StateClosed, tr[0])
		assert.Equal(t, StateOpen, tr[1])
	case <-time.After(time.Second):
		t.Fatal("state change hook was not called")
	}
}

func TestBreaker_StateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestNew_NormalizesConfig(t *testing.T) {
	cb := New("x", Config{FailureThreshold: -1, Cooldown: 0, MaxCooldown: 0})
	stats := cb.Stats()

	assert.Equal(t, "closed", stats.State)
	assert.Equal(t, 30*time.Second, stats.Cooldown)
}
