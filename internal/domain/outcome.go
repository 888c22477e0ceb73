package domain

import (
	"fmt"
	"time"
)

type SourceID string

const (
	SourceClock     SourceID = "clock"
	SourceWeather   SourceID = "weather"
	SourcePihole    SourceID = "pihole"
	SourceSiteViews SourceID = "siteviews"
)

type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeDegraded Outcome = "degraded"
	OutcomeFailed   Outcome = "failed"
)

type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonRateLimited          Reason = "rate_limited"
	ReasonAuthPreviouslyFailed Reason = "auth_previously_failed"
	ReasonAuthError            Reason = "auth_error"
	ReasonNetworkError         Reason = "network_error"
	ReasonInvalidPayload       Reason = "invalid_payload"
	ReasonExhausted            Reason = "exhausted"
)

// Result is what a single refresh reports to the driving loop. Degraded
// results keep the reason and error of the failed attempt for observability.
type Result struct {
	Source     SourceID
	Outcome    Outcome
	Reason     Reason
	Err        error
	RetryAfter time.Duration
	Attempts   int
}

// OK reports whether the caller should treat the refresh as a success.
func (r Result) OK() bool {
	switch r.Outcome {
	case OutcomeSuccess, OutcomeSkipped, OutcomeDegraded:
		return true
	default:
		return false
	}
}

func (r Result) String() string {
	s := fmt.Sprintf("%s: %s", r.Source, r.Outcome)
	if r.Reason != ReasonNone {
		s += " (" + string(r.Reason) + ")"
	}
	if r.Err != nil {
		s += ": " + r.Err.Error()
	}
	return s
}
