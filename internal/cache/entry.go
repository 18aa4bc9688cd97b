package cache

import "time"

// entry is an immutable cached value with its expiry bounds. A Set for an
// existing key stores a fresh entry; entries are never mutated in place.
type entry struct {
	value     interface{}
	storedAt  time.Time
	expiresAt time.Time
}

// expired reports whether the entry must be treated as absent at t.
func (e entry) expired(t time.Time) bool {
	return !t.Before(e.expiresAt)
}

// Outcome tags the result of consulting the remote tier.
type Outcome int

const (
	// OutcomeHit means the remote tier returned an unexpired value.
	OutcomeHit Outcome = iota
	// OutcomeMiss means the remote tier answered and had no value.
	OutcomeMiss
	// OutcomeDegraded means the remote tier was not consulted or failed;
	// the lookup falls back to the local tier.
	OutcomeDegraded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeMiss:
		return "miss"
	case OutcomeDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of a single-tier lookup. Expressing the
// fallback chain as explicit results keeps the degradation path directly
// testable instead of burying it in nested error handling.
type Result struct {
	Outcome Outcome
	Value   interface{}

	// TTL is the value's remaining lifetime on a hit; zero when unknown.
	TTL time.Duration
}
