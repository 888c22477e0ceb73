package poll

import "time"

// RetryPolicy is stateless: the delay after attempt i is BaseDelay * 2^i.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 || p.BaseDelay <= 0 {
		return 0
	}
	if attempt > 30 {
		attempt = 30
	}
	return p.BaseDelay * time.Duration(1<<attempt)
}

func (p RetryPolicy) Delays() []time.Duration {
	delays := make([]time.Duration, 0, p.Attempts())
	for i := 0; i < p.Attempts(); i++ {
		delays = append(delays, p.Delay(i))
	}
	return delays
}
