package poll

import (
	"sync"
	"time"
)

// FormatFunc renders the display pair from cached data. It must not do I/O.
type FormatFunc func(now time.Time) (primary, secondary string)

// DisplayCache snapshots formatted strings on its own, shorter cadence so
// rendering never drives network refreshes.
type DisplayCache struct {
	mu           sync.Mutex
	interval     time.Duration
	format       FormatFunc
	lastRenderAt time.Time
	primary      string
	secondary    string
	has          bool
}

func NewDisplayCache(interval time.Duration, format FormatFunc) *DisplayCache {
	return &DisplayCache{interval: interval, format: format}
}

func (d *DisplayCache) GetFormatted(now time.Time) (string, string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.has || now.Sub(d.lastRenderAt) > d.interval || now.Before(d.lastRenderAt) {
		d.primary, d.secondary = d.format(now)
		d.lastRenderAt = now
		d.has = true
	}

	return d.primary, d.secondary
}

// Invalidate forces the next GetFormatted to recompute.
func (d *DisplayCache) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.has = false
}
