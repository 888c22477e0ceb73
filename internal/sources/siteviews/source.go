// Package siteviews shows the root page view counter of a website.
package siteviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/dashd/internal/domain"
	"github.com/bnema/dashd/internal/poll"
	"github.com/bnema/dashd/internal/ports"
	"github.com/bnema/dashd/internal/sources"
	"github.com/charmbracelet/log"
)

const (
	DefaultInterval        = 300 * time.Second
	DefaultDisplayInterval = 300 * time.Second
	DefaultAttempts        = 2
	DefaultBaseDelay       = 5 * time.Second
)

type Config struct {
	APIURL          string
	Interval        time.Duration
	DisplayInterval time.Duration
	Retry           poll.RetryPolicy
	Timeout         time.Duration
}

type Deps struct {
	Transport    ports.HTTPTransport
	Clock        ports.Clock
	Connectivity ports.Connectivity
	Sleeper      ports.Sleeper
	Logger       *log.Logger
}

type Stats struct {
	RootViews int64
	// Legacy is set for the flat {"/": n} reply.
	Legacy bool
}

type page struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

// DecodeStats reads either {"pages":[{"path","count"}]} or the legacy flat
// map keyed by path. A missing root page counts as zero views. A pages key
// that does not decode is invalid, never a legacy reply.
func DecodeStats(body []byte) (Stats, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Stats{}, fmt.Errorf("decode views: %w: %v", domain.ErrInvalidPayload, err)
	}

	if raw, ok := fields["pages"]; ok {
		var pages []page
		if err := json.Unmarshal(raw, &pages); err != nil || pages == nil {
			if err == nil {
				err = errors.New("pages is null")
			}
			return Stats{}, fmt.Errorf("decode views: %w: pages: %v", domain.ErrInvalidPayload, err)
		}
		for _, p := range pages {
			if p.Path == "/" {
				return Stats{RootViews: p.Count}, nil
			}
		}
		return Stats{}, nil
	}

	stats := Stats{Legacy: true}
	if raw, ok := fields["/"]; ok {
		if err := json.Unmarshal(raw, &stats.RootViews); err != nil {
			return Stats{}, fmt.Errorf("decode views: %w: root count: %v", domain.ErrInvalidPayload, err)
		}
	}
	return stats, nil
}

func Validate(s Stats) error {
	if s.RootViews < 0 {
		return fmt.Errorf("negative view count %d", s.RootViews)
	}
	return nil
}

type Source struct {
	*poll.Source[Stats]

	cfg       Config
	transport ports.HTTPTransport
	clock     ports.Clock
	display   *poll.DisplayCache
}

func New(cfg Config, deps Deps) (*Source, error) {
	if cfg.APIURL == "" {
		return nil, errors.New("site views api url is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.DisplayInterval <= 0 {
		cfg.DisplayInterval = DefaultDisplayInterval
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = poll.RetryPolicy{MaxAttempts: DefaultAttempts, BaseDelay: DefaultBaseDelay}
	}

	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}

	s := &Source{cfg: cfg, transport: deps.Transport, clock: deps.Clock}
	s.Source = poll.NewSource(poll.Config{
		ID:          domain.SourceSiteViews,
		Interval:    cfg.Interval,
		Retry:       cfg.Retry,
		CallTimeout: cfg.Timeout,
	}, poll.Capability[Stats]{
		Fetch:    s.fetch,
		Validate: Validate,
	}, poll.Deps{
		Connectivity: deps.Connectivity,
		Sleeper:      deps.Sleeper,
		Logger:       deps.Logger,
	})
	s.display = poll.NewDisplayCache(cfg.DisplayInterval, s.format)

	return s, nil
}

func (s *Source) RootViews() int64 {
	stats, _, _ := s.Snapshot()
	return stats.RootViews
}

func (s *Source) Formatted(now time.Time) (string, string) {
	return s.display.GetFormatted(now)
}

func (s *Source) Panel(now time.Time) domain.Panel {
	primary, secondary := s.Formatted(now)
	return domain.Panel{
		Source:    domain.SourceSiteViews,
		Title:     "Website",
		Primary:   primary,
		Secondary: secondary,
		Degraded:  s.Degraded(),
	}
}

func (s *Source) fetch(ctx context.Context, _ poll.Credentials) (Stats, error) {
	resp, err := s.get(ctx, s.cfg.APIURL)
	if err != nil {
		return Stats{}, err
	}

	// some hosts redirect /stats to /stats/; retry once with the slash
	if resp.StatusCode == http.StatusMovedPermanently || resp.StatusCode == http.StatusFound {
		withSlash := s.cfg.APIURL
		if !strings.HasSuffix(withSlash, "/") {
			withSlash += "/"
		}
		if resp, err = s.get(ctx, withSlash); err != nil {
			return Stats{}, err
		}
	}

	if err := resp.Classify(s.clock.Now()); err != nil {
		return Stats{}, fmt.Errorf("fetch views: %w", err)
	}
	return DecodeStats(resp.Body)
}

func (s *Source) get(ctx context.Context, url string) (ports.HTTPResponse, error) {
	resp, err := s.transport.Do(ctx, ports.HTTPRequest{
		Method:  http.MethodGet,
		URL:     url,
		Timeout: s.cfg.Timeout,
	})
	if err != nil {
		return ports.HTTPResponse{}, fmt.Errorf("fetch views: %w", err)
	}
	return resp, nil
}

func (s *Source) format(time.Time) (string, string) {
	return "Site Views:", sources.FormatCount(float64(s.RootViews()))
}
