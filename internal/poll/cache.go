package poll

import (
	"sync"
	"time"
)

// StaleCache keeps the last validated payload. Failures never clear it; only
// a newer success overwrites it.
type StaleCache[T any] struct {
	mu       sync.RWMutex
	value    T
	at       time.Time
	has      bool
	degraded bool
}

func (c *StaleCache[T]) Store(value T, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = value
	c.at = at
	c.has = true
	c.degraded = false
}

func (c *StaleCache[T]) Get() (T, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.at, c.has
}

func (c *StaleCache[T]) Has() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.has
}

func (c *StaleCache[T]) MarkDegraded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.has {
		c.degraded = true
	}
}

func (c *StaleCache[T]) Degraded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.degraded
}
