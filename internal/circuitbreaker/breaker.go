// Package circuitbreaker provides a circuit breaker implementation for protecting remote cache calls
package circuitbreaker

import (
	"sync"
	"time"
)

// State represents the current state of the circuit breaker
type State int

const (
	// StateClosed means the circuit breaker is closed and allowing requests through
	StateClosed State = iota
	// StateOpen means the circuit breaker is open and rejecting requests
	StateOpen
	// StateHalfOpen means the circuit breaker is testing if the service has recovered
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds the configuration for a circuit breaker
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit
	FailureThreshold int
	// Cooldown is how long the circuit stays open before a probe is allowed
	Cooldown time.Duration
	// MaxCooldown caps the exponentially backed-off cooldown after repeated
	// failed probes
	MaxCooldown time.Duration
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		MaxCooldown:      120 * time.Second,
	}
}

// CircuitBreaker implements the circuit breaker pattern as an explicit
// CLOSED/OPEN/HALF_OPEN state machine.
//
// In the half-open state exactly one concurrent caller is selected as the
// probe; every other caller is rejected as if the circuit were still open.
// A failed probe reopens the circuit and doubles the cooldown up to
// Config.MaxCooldown; a successful probe closes it and restores the base
// cooldown.
type CircuitBreaker struct {
	name   string
	config Config

	mu              sync.Mutex
	state           State
	failures        int
	cooldown        time.Duration
	lastStateChange time.Time
	probeInFlight   bool

	// now is the clock; replaceable in tests
	now func() time.Time

	// Hook for monitoring and logging
	onStateChange func(name string, from, to State)
}

// New creates a new circuit breaker with the given name and configuration
func New(name string, config Config) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultConfig().Cooldown
	}
	if config.MaxCooldown < config.Cooldown {
		config.MaxCooldown = config.Cooldown
	}

	cb := &CircuitBreaker{
		name:   name,
		config: config,
		state:  StateClosed,
		now:    time.Now,
	}
	cb.cooldown = config.Cooldown
	cb.lastStateChange = cb.now()
	return cb
}

// OnStateChange sets a callback that's called whenever the circuit breaker changes state
func (cb *CircuitBreaker) OnStateChange(fn func(name string, from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Allow reports whether a remote call may be attempted right now.
//
// In the closed state every caller is allowed. In the open state callers are
// rejected until the cooldown elapses, at which point the circuit moves to
// half-open and the calling goroutine becomes the probe. In the half-open
// state only the single probe is in flight; all other callers are rejected.
//
// A caller that receives true must report the call's outcome via OnSuccess
// or OnFailure.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.now().Sub(cb.lastStateChange) >= cb.cooldown {
			cb.setState(StateHalfOpen)
			cb.probeInFlight = true
			return true
		}
		return false
	case StateHalfOpen:
		// Single-winner selection: the first caller to flip the flag is
		// the probe, everyone else bypasses to the local tier.
		if !cb.probeInFlight {
			cb.probeInFlight = true
			return true
		}
		return false
	}

	return false
}

// OnSuccess records a successful remote call
func (cb *CircuitBreaker) OnSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0

	if cb.state == StateHalfOpen {
		cb.setState(StateClosed)
		cb.cooldown = cb.config.Cooldown
		cb.probeInFlight = false
	}
}

// OnFailure records a failed remote call
func (cb *CircuitBreaker) OnFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		// The probe failed: back off and reopen.
		cb.cooldown = cb.cooldown * 2
		if cb.cooldown > cb.config.MaxCooldown {
			cb.cooldown = cb.config.MaxCooldown
		}
		cb.probeInFlight = false
		cb.setState(StateOpen)
	}
}

// setState changes the circuit breaker state and calls the state change hook.
// Caller must hold cb.mu.
func (cb *CircuitBreaker) setState(newState State) {
	oldState := cb.state
	cb.state = newState
	cb.lastStateChange = cb.now()

	if cb.onStateChange != nil && oldState != newState {
		// Call the hook without holding the lock to avoid deadlock
		go cb.onStateChange(cb.name, oldState, newState)
	}
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats holds a point-in-time view of the circuit breaker
type Stats struct {
	Name            string        `json:"name"`
	State           string        `json:"state"`
	Failures        int           `json:"failures"`
	Cooldown        time.Duration `json:"cooldown"`
	LastStateChange time.Time     `json:"last_state_change"`
}

// Stats returns the current statistics
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return Stats{
		Name:            cb.name,
		State:           cb.state.String(),
		Failures:        cb.failures,
		Cooldown:        cb.cooldown,
		LastStateChange: cb.lastStateChange,
	}
}

// SetClock replaces the breaker's clock. Intended for tests.
func (cb *CircuitBreaker) SetClock(now func() time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.now = now
}
