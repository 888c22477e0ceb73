// Package pihole shows DNS query and block counters from a Pi-hole.
package pihole

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bnema/dashd/internal/adapters/auth"
	"github.com/bnema/dashd/internal/domain"
	"github.com/bnema/dashd/internal/poll"
	"github.com/bnema/dashd/internal/ports"
	"github.com/bnema/dashd/internal/sources"
	"github.com/charmbracelet/log"
)

const (
	DefaultInterval        = 3600 * time.Second
	DefaultDisplayInterval = 300 * time.Second
	DefaultMaxPerWindow    = 1
	DefaultWindow          = 60 * time.Second
	DefaultAttempts        = 2
	DefaultBaseDelay       = 5 * time.Second

	summaryPath = "/stats/summary"
)

type Config struct {
	Host string
	// Password opens a one-shot session per refresh. APIToken, used only
	// when Password is empty, is sent as a query parameter instead.
	Password        string
	APIToken        string
	Interval        time.Duration
	DisplayInterval time.Duration
	MaxPerWindow    int
	Window          time.Duration
	Retry           poll.RetryPolicy
	Timeout         time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.DisplayInterval <= 0 {
		c.DisplayInterval = DefaultDisplayInterval
	}
	if c.MaxPerWindow <= 0 {
		c.MaxPerWindow = DefaultMaxPerWindow
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = DefaultAttempts
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = DefaultBaseDelay
	}
	return c
}

// BaseURL accepts a bare host or a full URL.
func (c Config) BaseURL() string {
	if u, err := url.Parse(c.Host); err == nil && u.Scheme != "" && u.Host != "" {
		return u.String()
	}
	return "http://" + c.Host + "/api"
}

type Deps struct {
	Transport    ports.HTTPTransport
	Clock        ports.Clock
	Connectivity ports.Connectivity
	Sleeper      ports.Sleeper
	Logger       *log.Logger
}

type Source struct {
	*poll.Source[Summary]

	cfg       Config
	transport ports.HTTPTransport
	clock     ports.Clock
	display   *poll.DisplayCache
}

func New(cfg Config, deps Deps) (*Source, error) {
	if cfg.Host == "" {
		return nil, errors.New("pihole host is required")
	}
	if cfg.Password == "" && cfg.APIToken == "" {
		return nil, errors.New("pihole password or api token is required")
	}
	cfg = cfg.withDefaults()
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}

	limiter := poll.NewRateLimiter(cfg.MaxPerWindow, cfg.Window)

	var session *poll.SessionAuth
	if cfg.Password != "" {
		authenticator := &auth.PiholeSession{
			API:            auth.API{BaseURL: cfg.BaseURL()},
			Password:       cfg.Password,
			Transport:      deps.Transport,
			Clock:          deps.Clock,
			RequestTimeout: cfg.Timeout,
		}
		session = poll.NewSessionAuth(authenticator, poll.SessionConfig{
			Retry:       cfg.Retry,
			CallTimeout: cfg.Timeout,
			OneShot:     true,
		}, limiter, deps.Sleeper, deps.Logger)
	}

	s := &Source{cfg: cfg, transport: deps.Transport, clock: deps.Clock}
	s.Source = poll.NewSource(poll.Config{
		ID:          domain.SourcePihole,
		Interval:    cfg.Interval,
		Retry:       cfg.Retry,
		CallTimeout: cfg.Timeout,
	}, poll.Capability[Summary]{
		Fetch:    s.fetch,
		Validate: ValidateSummary,
	}, poll.Deps{
		Limiter:      limiter,
		Session:      session,
		Connectivity: deps.Connectivity,
		Sleeper:      deps.Sleeper,
		Logger:       deps.Logger,
	})
	s.display = poll.NewDisplayCache(cfg.DisplayInterval, s.format)

	return s, nil
}

func (s *Source) Total() float64 {
	summary, _, _ := s.Snapshot()
	return summary.Total
}

func (s *Source) Blocked() float64 {
	summary, _, _ := s.Snapshot()
	return summary.Blocked
}

func (s *Source) Status() string {
	summary, _, ok := s.Snapshot()
	if !ok {
		return "unknown"
	}
	return summary.Status
}

func (s *Source) Formatted(now time.Time) (string, string) {
	return s.display.GetFormatted(now)
}

func (s *Source) Panel(now time.Time) domain.Panel {
	primary, secondary := s.Formatted(now)
	return domain.Panel{
		Source:    domain.SourcePihole,
		Title:     "Pi-hole",
		Primary:   primary,
		Secondary: secondary,
		Degraded:  s.Degraded(),
	}
}

func (s *Source) fetch(ctx context.Context, creds poll.Credentials) (Summary, error) {
	endpoint, err := auth.BuildAPIURL(s.cfg.BaseURL(), summaryPath)
	if err != nil {
		return Summary{}, err
	}

	header := http.Header{}
	if s.cfg.Password == "" {
		endpoint += "?auth=" + url.QueryEscape(s.cfg.APIToken)
	} else {
		header = auth.SessionHeaders(creds)
	}

	resp, err := s.transport.Do(ctx, ports.HTTPRequest{
		Method:  http.MethodGet,
		URL:     endpoint,
		Header:  header,
		Timeout: s.cfg.Timeout,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("fetch summary: %w", err)
	}
	if err := resp.Classify(s.clock.Now()); err != nil {
		return Summary{}, fmt.Errorf("fetch summary: %w", err)
	}

	return DecodeSummary(resp.Body)
}

func (s *Source) format(time.Time) (string, string) {
	summary, _, ok := s.Snapshot()
	if !ok {
		return "Loading", "..."
	}
	return "DNS Queries: " + sources.FormatCount(summary.Total),
		"Blocked Ads: " + sources.FormatCount(summary.Blocked)
}
