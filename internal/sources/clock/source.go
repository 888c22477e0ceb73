// Package clock keeps the dashboard's wall clock in sync with SNTP servers.
package clock

import (
	"context"
	"errors"
	"time"

	"github.com/bnema/dashd/internal/domain"
	"github.com/bnema/dashd/internal/poll"
	"github.com/bnema/dashd/internal/ports"
	"github.com/charmbracelet/log"
)

const (
	DefaultInterval        = 3600 * time.Second
	DefaultDisplayInterval = 300 * time.Second
)

// Seed is shown until the first sync completes.
var Seed = time.Date(2025, time.May, 4, 12, 0, 0, 0, time.UTC)

// Reading is one synced wall-clock value. Fallback readings come from the
// local system clock after every time server failed.
type Reading struct {
	Time     time.Time
	Host     string
	Fallback bool
}

type Options struct {
	SNTP            SNTPConfig
	Interval        time.Duration
	DisplayInterval time.Duration
	Clock           ports.Clock
	Sleeper         ports.Sleeper
	Logger          *log.Logger
}

type Source struct {
	*poll.Source[Reading]

	client  *SNTPClient
	clock   ports.Clock
	loc     *time.Location
	started time.Time
	display *poll.DisplayCache
}

func New(transport ports.DatagramTransport, opts Options) *Source {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.DisplayInterval <= 0 {
		opts.DisplayInterval = DefaultDisplayInterval
	}
	if opts.Clock == nil {
		opts.Clock = ports.SystemClock{}
	}

	s := &Source{
		client:  NewSNTPClient(transport, opts.SNTP, opts.Logger),
		clock:   opts.Clock,
		loc:     opts.SNTP.Location(),
		started: opts.Clock.Now(),
	}
	s.Source = poll.NewSource(poll.Config{
		ID:       domain.SourceClock,
		Interval: opts.Interval,
		Retry:    poll.RetryPolicy{MaxAttempts: 1},
		// the whole host list is walked inside one call
		CallTimeout: s.client.cfg.Timeout * time.Duration(1+len(s.client.cfg.BackupHosts)),
	}, poll.Capability[Reading]{
		Fetch:    s.fetch,
		Validate: validate,
	}, poll.Deps{Sleeper: opts.Sleeper, Logger: opts.Logger})
	s.display = poll.NewDisplayCache(opts.DisplayInterval, s.format)

	return s
}

// Refresh syncs with the time servers and, on success, forces the next
// render to pick up the corrected time.
func (s *Source) Refresh(ctx context.Context, now time.Time, force bool) domain.Result {
	res := s.Source.Refresh(ctx, now, force)
	if res.Outcome == domain.OutcomeSuccess {
		s.display.Invalidate()
	}
	return res
}

// Now is the dashboard's notion of the current time: the last reading
// advanced by the local time elapsed since it was taken.
func (s *Source) Now(now time.Time) time.Time {
	reading, at, ok := s.Snapshot()
	if !ok {
		return Seed.Add(nonNegative(now.Sub(s.started)))
	}
	return reading.Time.Add(nonNegative(now.Sub(at)))
}

func (s *Source) Synced() bool {
	reading, _, ok := s.Snapshot()
	return ok && !reading.Fallback
}

func (s *Source) Formatted(now time.Time) (string, string) {
	return s.display.GetFormatted(now)
}

func (s *Source) Panel(now time.Time) domain.Panel {
	primary, secondary := s.Formatted(now)
	return domain.Panel{
		Source:    domain.SourceClock,
		Title:     "Time",
		Primary:   primary,
		Secondary: secondary,
		Degraded:  s.Degraded(),
	}
}

func (s *Source) fetch(ctx context.Context, _ poll.Credentials) (Reading, error) {
	ts, host, err := s.client.Query(ctx)
	if err != nil {
		s.client.logger.Warn("using system clock", "err", err)
		return Reading{Time: s.clock.Now().In(s.loc), Fallback: true}, nil
	}
	return Reading{Time: ts, Host: host}, nil
}

func (s *Source) format(now time.Time) (string, string) {
	current := s.Now(now)
	return current.Format("15:04"), current.Format("Mon Jan 2")
}

func validate(r Reading) error {
	if r.Time.IsZero() {
		return errors.New("empty reading")
	}
	return nil
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
