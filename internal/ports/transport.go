package ports

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/dashd/internal/domain"
)

type HTTPRequest struct {
	Method  string
	URL     string
	Header  http.Header
	Body    []byte
	Timeout time.Duration
}

type HTTPResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Classify maps a status code onto the domain error taxonomy. It returns nil
// for 2xx. now anchors an HTTP-date Retry-After.
func (r HTTPResponse) Classify(now time.Time) error {
	switch {
	case r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices:
		return nil
	case r.StatusCode == http.StatusUnauthorized || r.StatusCode == http.StatusForbidden:
		return &authExpiredError{code: r.StatusCode}
	case r.StatusCode == http.StatusTooManyRequests:
		return &domain.RateLimitError{RetryAfter: r.RetryAfter(now)}
	default:
		return &domain.StatusError{Code: r.StatusCode, Body: snippet(r.Body)}
	}
}

// RetryAfter reads the Retry-After header, in delta-seconds or HTTP-date
// form. Zero means absent or unparseable.
func (r HTTPResponse) RetryAfter(now time.Time) time.Duration {
	value := strings.TrimSpace(r.Header.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

type authExpiredError struct {
	code int
}

func (e *authExpiredError) Error() string {
	return "status " + strconv.Itoa(e.code) + ": " + domain.ErrAuthExpired.Error()
}

func (e *authExpiredError) Unwrap() error {
	return domain.ErrAuthExpired
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// HTTPTransport performs a single request. A non-nil error means the request
// never produced a response (dial, TLS, timeout, read failure).
type HTTPTransport interface {
	Do(ctx context.Context, req HTTPRequest) (HTTPResponse, error)
}

type DatagramTransport interface {
	Exchange(ctx context.Context, host string, port int, payload []byte, timeout time.Duration) ([]byte, error)
}
