package poll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollGateIsDue(t *testing.T) {
	t.Parallel()

	gate := NewPollGate(3600 * time.Second)
	assert.True(t, gate.IsDue(at(0), false), "never succeeded")

	gate.MarkSuccess(at(0))
	assert.False(t, gate.IsDue(at(1000), false))
	assert.False(t, gate.IsDue(at(3600), false), "boundary is exclusive")
	assert.True(t, gate.IsDue(at(3601), false))
	assert.True(t, gate.IsDue(at(10), true))
}

func TestPollGateClockWentBackwards(t *testing.T) {
	t.Parallel()

	gate := NewPollGate(time.Hour)
	gate.MarkSuccess(at(5000))

	assert.True(t, gate.IsDue(at(100), false))
	assert.False(t, gate.WithinMinGap(at(100), 0.5))
}

func TestPollGateWithinMinGap(t *testing.T) {
	t.Parallel()

	gate := NewPollGate(3600 * time.Second)
	assert.False(t, gate.WithinMinGap(at(0), 0.5), "never succeeded")

	gate.MarkSuccess(at(0))
	assert.True(t, gate.WithinMinGap(at(1799), 0.5))
	assert.False(t, gate.WithinMinGap(at(1800), 0.5))
	assert.False(t, gate.WithinMinGap(at(1), 0), "ratio disabled")
	assert.False(t, gate.WithinMinGap(at(1), -1), "ratio disabled")
}

func TestPollGateLastSuccessMonotonicWithSuccess(t *testing.T) {
	t.Parallel()

	gate := NewPollGate(time.Minute)
	assert.True(t, gate.LastSuccess().IsZero())

	gate.MarkSuccess(at(10))
	gate.IsDue(at(20), false)
	gate.WithinMinGap(at(20), 0.5)
	assert.Equal(t, at(10), gate.LastSuccess())
	assert.Equal(t, time.Minute, gate.Interval())
}
