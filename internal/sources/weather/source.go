// Package weather shows current conditions from OpenWeatherMap.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/bnema/dashd/internal/domain"
	"github.com/bnema/dashd/internal/poll"
	"github.com/bnema/dashd/internal/ports"
	"github.com/charmbracelet/log"
)

const (
	DefaultBaseURL         = "https://api.openweathermap.org/data/2.5/weather"
	DefaultInterval        = 300 * time.Second
	DefaultDisplayInterval = 300 * time.Second
	DefaultAttempts        = 3
	DefaultBaseDelay       = 5 * time.Second
)

var errMissingTemp = errors.New("main.temp missing")

type Config struct {
	APIKey          string
	CityID          string
	BaseURL         string
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

// Conditions is the decoded subset of a current-weather reply. Optional
// readings are pointers so an absent field is distinguishable from zero.
type Conditions struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Rain map[string]float64 `json:"rain"`
}

func (c Conditions) Location() string {
	name := c.Name
	if name == "" {
		name = "Unknown"
	}
	return name + "," + c.Sys.Country
}

// Rainfall prefers the 3h accumulation and falls back to 1h.
func (c Conditions) Rainfall() float64 {
	if mm, ok := c.Rain["3h"]; ok {
		return mm
	}
	return c.Rain["1h"]
}

type Source struct {
	*poll.Source[Conditions]

	cfg       Config
	transport ports.HTTPTransport
	clock     ports.Clock
	display   *poll.DisplayCache
}

func New(cfg Config, deps Deps) (*Source, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("weather api key is required")
	}
	if cfg.CityID == "" {
		return nil, errors.New("weather city id is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
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
		ID:          domain.SourceWeather,
		Interval:    cfg.Interval,
		Retry:       cfg.Retry,
		CallTimeout: cfg.Timeout,
	}, poll.Capability[Conditions]{
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

func Validate(c Conditions) error {
	if c.Main.Temp == nil {
		return errMissingTemp
	}
	return nil
}

// Temperature is rounded to whole degrees Celsius.
func (s *Source) Temperature() (int, bool) {
	c, _, ok := s.Snapshot()
	if !ok || c.Main.Temp == nil {
		return 0, false
	}
	return int(math.Round(*c.Main.Temp)), true
}

func (s *Source) Humidity() (int, bool) {
	c, _, ok := s.Snapshot()
	if !ok || c.Main.Humidity == nil {
		return 0, false
	}
	return int(math.Round(*c.Main.Humidity)), true
}

func (s *Source) Formatted(now time.Time) (string, string) {
	return s.display.GetFormatted(now)
}

func (s *Source) Panel(now time.Time) domain.Panel {
	primary, secondary := s.Formatted(now)
	return domain.Panel{
		Source:    domain.SourceWeather,
		Title:     "Weather",
		Primary:   primary,
		Secondary: secondary,
		Degraded:  s.Degraded(),
	}
}

func (s *Source) fetch(ctx context.Context, _ poll.Credentials) (Conditions, error) {
	endpoint, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return Conditions{}, fmt.Errorf("parse weather url: %w", err)
	}
	query := endpoint.Query()
	query.Set("id", s.cfg.CityID)
	query.Set("appid", s.cfg.APIKey)
	query.Set("units", "metric")
	endpoint.RawQuery = query.Encode()

	resp, err := s.transport.Do(ctx, ports.HTTPRequest{
		Method:  http.MethodGet,
		URL:     endpoint.String(),
		Timeout: s.cfg.Timeout,
	})
	if err != nil {
		return Conditions{}, fmt.Errorf("fetch weather: %w", err)
	}
	if err := resp.Classify(s.clock.Now()); err != nil {
		return Conditions{}, fmt.Errorf("fetch weather: %w", err)
	}

	var conditions Conditions
	if err := json.Unmarshal(resp.Body, &conditions); err != nil {
		return Conditions{}, fmt.Errorf("decode weather: %w: %v", domain.ErrInvalidPayload, err)
	}
	return conditions, nil
}

func (s *Source) format(time.Time) (string, string) {
	c, _, ok := s.Snapshot()
	if !ok {
		return "No weather data", ""
	}

	temp := "?"
	if t, ok := s.Temperature(); ok {
		temp = fmt.Sprint(t)
	}
	humidity := "?"
	if h, ok := s.Humidity(); ok {
		humidity = fmt.Sprint(h)
	}

	return fmt.Sprintf("%s %s°C", c.Location(), temp),
		fmt.Sprintf("Hum:%s%% Rain:%.1fmm", humidity, c.Rainfall())
}
