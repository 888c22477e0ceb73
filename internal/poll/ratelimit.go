package poll

import (
	"sync"
	"time"
)

// DefaultServerLockout applies when the remote signals a rate limit without a
// usable Retry-After hint.
const DefaultServerLockout = 300 * time.Second

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateLimiter is a per-source sliding window log. Exceeding the quota locks
// the source out for twice the window; a server-signalled lockout replaces
// whatever was computed locally.
type RateLimiter struct {
	mu           sync.Mutex
	maxPerWindow int
	window       time.Duration
	timestamps   []time.Time
	lockedUntil  time.Time
}

func NewRateLimiter(maxPerWindow int, window time.Duration) *RateLimiter {
	if maxPerWindow < 1 {
		maxPerWindow = 1
	}
	return &RateLimiter{maxPerWindow: maxPerWindow, window: window}
}

func (l *RateLimiter) CheckAndRecord(now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Before(l.lockedUntil) {
		return Decision{RetryAfter: l.lockedUntil.Sub(now)}
	}

	l.prune(now)
	if len(l.timestamps) >= l.maxPerWindow {
		l.lockedUntil = now.Add(2 * l.window)
		return Decision{RetryAfter: 2 * l.window}
	}

	l.timestamps = append(l.timestamps, now)
	return Decision{Allowed: true}
}

func (l *RateLimiter) ApplyServerLockout(now time.Time, retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = DefaultServerLockout
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.lockedUntil = now.Add(retryAfter)
}

// Locked reports an active lockout without recording a request.
func (l *RateLimiter) Locked(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return now.Before(l.lockedUntil)
}

func (l *RateLimiter) LockedUntil() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lockedUntil
}

func (l *RateLimiter) prune(now time.Time) {
	kept := l.timestamps[:0]
	for _, ts := range l.timestamps {
		if now.Sub(ts) < l.window {
			kept = append(kept, ts)
		}
	}
	l.timestamps = kept
}
