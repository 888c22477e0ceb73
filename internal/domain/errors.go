package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrSourceNotFound = errors.New("source not found")

	ErrOffline              = errors.New("network unavailable")
	ErrAuthExpired          = errors.New("authorization expired")
	ErrAuthRejected         = errors.New("authentication rejected")
	ErrAuthPreviouslyFailed = errors.New("authentication previously failed")
	ErrMalformedLogin       = errors.New("malformed login response")
	ErrRateLimited          = errors.New("rate limited")
	ErrInvalidPayload       = errors.New("invalid payload")
)

// RateLimitError reports a quota rejection, either local or signalled by the
// remote. A zero RetryAfter means the remote gave no hint.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter <= 0 {
		return ErrRateLimited.Error()
	}
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// StatusError is an unexpected HTTP status. It is treated as transient.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}
