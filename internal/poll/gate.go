package poll

import (
	"sync"
	"time"
)

// PollGate decides whether a refresh is due. The success stamp only moves
// forward on a validated refresh.
type PollGate struct {
	mu            sync.Mutex
	interval      time.Duration
	lastSuccessAt time.Time
}

func NewPollGate(interval time.Duration) *PollGate {
	return &PollGate{interval: interval}
}

func (g *PollGate) IsDue(now time.Time, force bool) bool {
	if force {
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lastSuccessAt.IsZero() {
		return true
	}
	elapsed := now.Sub(g.lastSuccessAt)
	if elapsed < 0 {
		// wall clock went backwards, re-anchor on the next success
		return true
	}
	return elapsed > g.interval
}

// WithinMinGap reports whether now is closer than ratio*interval to the last
// success.
func (g *PollGate) WithinMinGap(now time.Time, ratio float64) bool {
	if ratio <= 0 {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lastSuccessAt.IsZero() {
		return false
	}
	elapsed := now.Sub(g.lastSuccessAt)
	if elapsed < 0 {
		return false
	}
	return elapsed < time.Duration(float64(g.interval)*ratio)
}

func (g *PollGate) MarkSuccess(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastSuccessAt = now
}

func (g *PollGate) LastSuccess() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastSuccessAt
}

func (g *PollGate) Interval() time.Duration {
	return g.interval
}
