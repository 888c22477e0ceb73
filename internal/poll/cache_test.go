package poll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStaleCache(t *testing.T) {
	t.Parallel()

	var cache StaleCache[string]
	_, _, ok := cache.Get()
	assert.False(t, ok)

	cache.MarkDegraded()
	assert.False(t, cache.Degraded(), "nothing to serve")

	cache.Store("v1", at(0))
	cache.MarkDegraded()
	value, storedAt, ok := cache.Get()
	assert.True(t, ok)
	assert.Equal(t, "v1", value)
	assert.Equal(t, at(0), storedAt)
	assert.True(t, cache.Degraded())

	cache.Store("v2", at(10))
	value, _, _ = cache.Get()
	assert.Equal(t, "v2", value)
	assert.False(t, cache.Degraded())
}

func TestDisplayCacheReusesWithinInterval(t *testing.T) {
	t.Parallel()

	calls := 0
	display := NewDisplayCache(300*time.Second, func(time.Time) (string, string) {
		calls++
		return "12:00", "Sun May 4"
	})

	primary, secondary := display.GetFormatted(at(0))
	assert.Equal(t, "12:00", primary)
	assert.Equal(t, "Sun May 4", secondary)

	display.GetFormatted(at(100))
	display.GetFormatted(at(300))
	assert.Equal(t, 1, calls)

	display.GetFormatted(at(301))
	assert.Equal(t, 2, calls)

	display.Invalidate()
	display.GetFormatted(at(302))
	assert.Equal(t, 3, calls)

	display.GetFormatted(at(0).Add(-time.Minute))
	assert.Equal(t, 4, calls, "clock went backwards")
}

func TestDisplayCacheSnapshotsUnderlyingData(t *testing.T) {
	t.Parallel()

	value := "a"
	display := NewDisplayCache(time.Minute, func(time.Time) (string, string) { return value, "" })

	first, _ := display.GetFormatted(at(0))
	value = "b"
	second, _ := display.GetFormatted(at(30))

	assert.Equal(t, "a", first)
	assert.Equal(t, "a", second)
}
