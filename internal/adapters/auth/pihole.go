package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/dashd/internal/domain"
	"github.com/bnema/dashd/internal/poll"
	"github.com/bnema/dashd/internal/ports"
)

const (
	DefaultAuthPath   = "/auth"
	DefaultLogoutPath = "/logout"
)

type API struct {
	BaseURL    string
	AuthPath   string
	LogoutPath string
}

// PiholeSession logs in to the Pi-hole API with the admin password and
// exchanges it for a session id and CSRF token.
type PiholeSession struct {
	API       API
	Password  string
	Transport ports.HTTPTransport
	// Clock defaults to the system clock.
	Clock          ports.Clock
	RequestTimeout time.Duration
}

var _ poll.Authenticator = (*PiholeSession)(nil)

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Session struct {
		Valid   bool   `json:"valid"`
		SID     string `json:"sid"`
		CSRF    string `json:"csrf"`
		Message string `json:"message"`
	} `json:"session"`
}

func (a *PiholeSession) Login(ctx context.Context) (poll.Credentials, error) {
	endpoint, err := BuildAPIURL(a.API.BaseURL, pathOr(a.API.AuthPath, DefaultAuthPath))
	if err != nil {
		return poll.Credentials{}, err
	}

	body, err := json.Marshal(loginRequest{Password: a.Password})
	if err != nil {
		return poll.Credentials{}, fmt.Errorf("encode login request: %w", err)
	}

	resp, err := a.Transport.Do(ctx, ports.HTTPRequest{
		Method:  http.MethodPost,
		URL:     endpoint,
		Header:  http.Header{"Content-Type": []string{"application/json"}},
		Body:    body,
		Timeout: a.RequestTimeout,
	})
	if err != nil {
		return poll.Credentials{}, fmt.Errorf("request session: %w", err)
	}

	if err := resp.Classify(a.now()); err != nil {
		if errors.Is(err, domain.ErrAuthExpired) {
			// the password itself was refused
			return poll.Credentials{}, fmt.Errorf("request session: %w: status %d", domain.ErrAuthRejected, resp.StatusCode)
		}
		return poll.Credentials{}, fmt.Errorf("request session: %w", err)
	}

	var payload loginResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return poll.Credentials{}, fmt.Errorf("decode session response: %w: %v", domain.ErrMalformedLogin, err)
	}
	if payload.Session.SID == "" {
		message := payload.Session.Message
		if message == "" {
			message = "no session id"
		}
		return poll.Credentials{}, fmt.Errorf("decode session response: %w: %s", domain.ErrMalformedLogin, message)
	}

	return poll.Credentials{SessionID: payload.Session.SID, CSRFToken: payload.Session.CSRF}, nil
}

func (a *PiholeSession) Logout(ctx context.Context, creds poll.Credentials) error {
	endpoint, err := BuildAPIURL(a.API.BaseURL, pathOr(a.API.LogoutPath, DefaultLogoutPath))
	if err != nil {
		return err
	}

	resp, err := a.Transport.Do(ctx, ports.HTTPRequest{
		Method:  http.MethodPost,
		URL:     endpoint,
		Header:  SessionHeaders(creds),
		Timeout: a.RequestTimeout,
	})
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if err := resp.Classify(a.now()); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (a *PiholeSession) now() time.Time {
	if a.Clock == nil {
		return time.Now()
	}
	return a.Clock.Now()
}

// SessionHeaders carries a session on data requests.
func SessionHeaders(creds poll.Credentials) http.Header {
	header := http.Header{}
	if creds.SessionID == "" {
		return header
	}
	header.Set("X-FTL-SID", creds.SessionID)
	if creds.CSRFToken != "" {
		header.Set("X-FTL-CSRF", creds.CSRFToken)
	}
	return header
}

// BuildAPIURL appends path to the base URL's own path.
func BuildAPIURL(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", errors.New("api base url is required")
	}
	if path == "" {
		return "", errors.New("api path is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("api base url host is required")
	}

	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/" + strings.TrimLeft(path, "/")
	return parsed.String(), nil
}

func pathOr(path, fallback string) string {
	if path == "" {
		return fallback
	}
	return path
}
