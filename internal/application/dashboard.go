package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/bnema/dashd/internal/domain"
	"github.com/bnema/dashd/internal/ports"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCycleEvery = 300 * time.Second
	DefaultCooldown   = 60 * time.Second
)

// Section is one configured source as the dashboard sees it.
type Section interface {
	ID() domain.SourceID
	Interval() time.Duration
	LastSuccess() time.Time
	Degraded() bool
	Refresh(ctx context.Context, now time.Time, force bool) domain.Result
	Panel(now time.Time) domain.Panel
}

type Options struct {
	CycleEvery time.Duration
	// Cooldown replaces CycleEvery after a cycle in which every source failed.
	Cooldown time.Duration
	// CycleTimeout bounds a whole cycle; zero leaves only per-call timeouts.
	CycleTimeout time.Duration
}

type Deps struct {
	Renderer     ports.Renderer
	Connectivity ports.Connectivity
	Clock        ports.Clock
	Sleeper      ports.Sleeper
	Logger       *log.Logger
}

type Dashboard struct {
	sections []Section
	deps     Deps
	opts     Options
	flight   singleflight.Group
}

func NewDashboard(sections []Section, deps Deps, opts Options) *Dashboard {
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Sleeper == nil {
		deps.Sleeper = ports.SystemSleeper{}
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	if opts.CycleEvery <= 0 {
		opts.CycleEvery = DefaultCycleEvery
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}

	return &Dashboard{sections: sections, deps: deps, opts: opts}
}

func (d *Dashboard) Sections() []Section {
	return append([]Section(nil), d.sections...)
}

type CycleReport struct {
	ID      string
	Started time.Time
	Elapsed time.Duration
	Results []domain.Result
}

// AllFailed is false for an empty cycle.
func (r CycleReport) AllFailed() bool {
	if len(r.Results) == 0 {
		return false
	}
	for _, res := range r.Results {
		if res.OK() {
			return false
		}
	}
	return true
}

// Progress receives each section's result as soon as it finishes. It is
// called from the refreshing goroutines.
type Progress func(domain.Result)

// Selected resolves only into section ids, all of them when only is empty.
func (d *Dashboard) Selected(only ...domain.SourceID) ([]domain.SourceID, error) {
	selected, err := d.selectSections(only)
	if err != nil {
		return nil, err
	}
	ids := make([]domain.SourceID, 0, len(selected))
	for _, s := range selected {
		ids = append(ids, s.ID())
	}
	return ids, nil
}

// Cycle refreshes the selected sections in parallel, or all of them when
// only is empty. One section failing never cancels another.
func (d *Dashboard) Cycle(ctx context.Context, force bool, only ...domain.SourceID) (CycleReport, error) {
	return d.CycleWithProgress(ctx, force, nil, only...)
}

func (d *Dashboard) CycleWithProgress(ctx context.Context, force bool, progress Progress, only ...domain.SourceID) (CycleReport, error) {
	selected, err := d.selectSections(only)
	if err != nil {
		return CycleReport{}, err
	}

	report := CycleReport{ID: uuid.NewString(), Started: d.deps.Clock.Now()}
	logger := d.deps.Logger.With("cycle", report.ID)

	if d.opts.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.CycleTimeout)
		defer cancel()
	}

	report.Results = make([]domain.Result, len(selected))
	var g errgroup.Group
	for i, section := range selected {
		g.Go(func() error {
			res := d.refresh(ctx, section, report.Started, force)
			if res.Source == "" {
				res.Source = section.ID()
			}
			report.Results[i] = res
			if progress != nil {
				progress(res)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Elapsed = d.deps.Clock.Now().Sub(report.Started)
	for _, res := range report.Results {
		if res.OK() {
			logger.Debug("source refreshed", "source", res.Source, "outcome", res.Outcome)
			continue
		}
		logger.Warn("source failed", "source", res.Source, "reason", res.Reason, "err", res.Err)
	}
	logger.Info("cycle done", "sources", len(report.Results), "all_failed", report.AllFailed(), "elapsed", report.Elapsed)

	return report, nil
}

// refresh joins a call already in flight for the same source and mode.
func (d *Dashboard) refresh(ctx context.Context, s Section, now time.Time, force bool) domain.Result {
	key := string(s.ID()) + "/" + strconv.FormatBool(force)
	v, _, _ := d.flight.Do(key, func() (any, error) {
		return s.Refresh(ctx, now, force), nil
	})
	return v.(domain.Result)
}

func (d *Dashboard) Panels(now time.Time) []domain.Panel {
	panels := make([]domain.Panel, 0, len(d.sections))
	for _, s := range d.sections {
		panels = append(panels, s.Panel(now))
	}
	return panels
}

func (d *Dashboard) Draw(ctx context.Context) error {
	if d.deps.Renderer == nil {
		return nil
	}
	if err := d.deps.Renderer.Render(ctx, d.Panels(d.deps.Clock.Now())); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}

// RunOnce is a single unforced cycle followed by a redraw.
func (d *Dashboard) RunOnce(ctx context.Context) (CycleReport, error) {
	report, err := d.Cycle(ctx, false)
	if err != nil {
		return report, err
	}
	return report, d.Draw(ctx)
}

// Run cycles until ctx is done. Source failures never end the loop; a cycle
// where everything failed triggers a reconnect and the cooldown wait.
func (d *Dashboard) Run(ctx context.Context) error {
	for {
		report, err := d.RunOnce(ctx)
		if err != nil {
			d.deps.Logger.Error("cycle", "err", err)
		}

		wait := d.opts.CycleEvery
		if report.AllFailed() {
			wait = d.opts.Cooldown
			d.deps.Logger.Warn("every source failed, cooling down", "cooldown", wait)
			if d.deps.Connectivity != nil && !d.deps.Connectivity.Connect(ctx) {
				d.deps.Logger.Warn("reconnect failed")
			}
		}

		if err := d.deps.Sleeper.Sleep(ctx, wait); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("wait for next cycle: %w", err)
		}
	}
}

func (d *Dashboard) selectSections(only []domain.SourceID) ([]Section, error) {
	if len(only) == 0 {
		return d.sections, nil
	}

	selected := make([]Section, 0, len(only))
	for _, id := range only {
		found := false
		for _, s := range d.sections {
			if s.ID() == id {
				selected = append(selected, s)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", domain.ErrSourceNotFound, id)
		}
	}
	return selected, nil
}
