// Package ratelimit implements an exact sliding-window rate limiter keyed by
// (scope, identity). State is process-local and lost on restart; the limiter
// is abuse-dampening, not a security boundary.
package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of a single Check. RetryAfter is whole seconds,
// floored, never negative; it is only meaningful when Allowed is false.
type Decision struct {
	Allowed    bool
	RetryAfter int
}

type bucket struct {
	mu     sync.Mutex
	events []time.Time
}

// Limiter holds one timestamp bucket per key. Each bucket has its own lock
// so checks on distinct keys don't contend; the outer lock only guards the
// map itself.
type Limiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket

	now func() time.Time // test hook
}

func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Check evicts events older than the trailing window, rejects when the
// remaining count has reached the limit, otherwise records the event and
// allows. Eviction is O(limit) per call, which is fine at the small limits
// this serves.
func (l *Limiter) Check(scope, identity string) Decision {
	key := scope + ":" + identity

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{}
		l.buckets[key] = b
	}
	l.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.now()
	keep := 0
	for keep < len(b.events) && now.Sub(b.events[keep]) > l.window {
		keep++
	}
	b.events = b.events[keep:]

	if len(b.events) >= l.limit {
		retry := int((l.window - now.Sub(b.events[0])).Seconds())
		if retry < 0 {
			retry = 0
		}
		return Decision{Allowed: false, RetryAfter: retry}
	}

	b.events = append(b.events, now)
	return Decision{Allowed: true}
}

// Len reports the number of live events for a key (for monitoring/tests).
func (l *Limiter) Len(scope, identity string) int {
	l.mu.Lock()
	b, ok := l.buckets[scope+":"+identity]
	l.mu.Unlock()
	if !ok {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
