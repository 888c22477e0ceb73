package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/dashd/internal/domain"
	"github.com/bnema/dashd/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, time.October, 17, 8, 0, 0, 0, time.UTC)

func mockAnyContext() any {
	return mock.Anything
}

type fakeSection struct {
	id      domain.SourceID
	outcome domain.Outcome
	reason  domain.Reason

	mu     sync.Mutex
	forced []bool
	calls  atomic.Int32
	block  chan struct{}
	enter  chan struct{}
}

func (f *fakeSection) ID() domain.SourceID     { return f.id }
func (f *fakeSection) Interval() time.Duration { return time.Minute }
func (f *fakeSection) LastSuccess() time.Time  { return time.Time{} }
func (f *fakeSection) Degraded() bool          { return false }
func (f *fakeSection) Panel(time.Time) domain.Panel {
	return domain.Panel{Source: f.id, Title: string(f.id)}
}

func (f *fakeSection) Refresh(ctx context.Context, _ time.Time, force bool) domain.Result {
	f.calls.Add(1)
	f.mu.Lock()
	f.forced = append(f.forced, force)
	f.mu.Unlock()

	if f.enter != nil {
		f.enter <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return domain.Result{Source: f.id, Outcome: domain.OutcomeFailed, Reason: domain.ReasonExhausted, Err: ctx.Err()}
		}
	}
	return domain.Result{Source: f.id, Outcome: f.outcome, Reason: f.reason}
}

func ok(id domain.SourceID) *fakeSection {
	return &fakeSection{id: id, outcome: domain.OutcomeSuccess}
}

func failing(id domain.SourceID) *fakeSection {
	return &fakeSection{id: id, outcome: domain.OutcomeFailed, reason: domain.ReasonNetworkError}
}

// stopAfter cancels the run loop once n waits were requested.
type stopAfter struct {
	n      int
	cancel context.CancelFunc
	waits  []time.Duration
}

func (s *stopAfter) Sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	if len(s.waits) >= s.n {
		s.cancel()
	}
	return ctx.Err()
}

func fixedClock(t *testing.T) *mocks.MockClock {
	clock := mocks.NewMockClock(t)
	clock.EXPECT().Now().Return(t0).Maybe()
	return clock
}

func TestCycleRefreshesEverySection(t *testing.T) {
	t.Parallel()

	clock, weather, pihole := ok(domain.SourceClock), failing(domain.SourceWeather), ok(domain.SourcePihole)
	d := NewDashboard([]Section{clock, weather, pihole}, Deps{Clock: fixedClock(t)}, Options{})

	report, err := d.Cycle(context.Background(), false)
	require.NoError(t, err)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, t0, report.Started)
	require.Len(t, report.Results, 3)
	assert.Equal(t, domain.SourceClock, report.Results[0].Source)
	assert.Equal(t, domain.OutcomeFailed, report.Results[1].Outcome)
	assert.False(t, report.AllFailed())
}

func TestCycleSelectsSources(t *testing.T) {
	t.Parallel()

	clock, weather := ok(domain.SourceClock), ok(domain.SourceWeather)
	d := NewDashboard([]Section{clock, weather}, Deps{Clock: fixedClock(t)}, Options{})

	report, err := d.Cycle(context.Background(), true, domain.SourceWeather)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, int32(0), clock.calls.Load())
	assert.Equal(t, []bool{true}, weather.forced)

	_, err = d.Cycle(context.Background(), false, "radio")
	require.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestCycleWithProgressReportsEachSection(t *testing.T) {
	t.Parallel()

	clock, weather := ok(domain.SourceClock), failing(domain.SourceWeather)
	d := NewDashboard([]Section{clock, weather}, Deps{Clock: fixedClock(t)}, Options{})

	ids, err := d.Selected()
	require.NoError(t, err)
	assert.Equal(t, []domain.SourceID{domain.SourceClock, domain.SourceWeather}, ids)

	var (
		mu   sync.Mutex
		seen = map[domain.SourceID]domain.Outcome{}
	)
	_, err = d.CycleWithProgress(context.Background(), false, func(res domain.Result) {
		mu.Lock()
		defer mu.Unlock()
		seen[res.Source] = res.Outcome
	})
	require.NoError(t, err)
	assert.Equal(t, map[domain.SourceID]domain.Outcome{
		domain.SourceClock:   domain.OutcomeSuccess,
		domain.SourceWeather: domain.OutcomeFailed,
	}, seen)

	_, err = d.Selected("radio")
	require.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestCycleTimeoutBoundsSlowSources(t *testing.T) {
	t.Parallel()

	slow := &fakeSection{id: domain.SourceSiteViews, outcome: domain.OutcomeSuccess, block: make(chan struct{})}
	fast := ok(domain.SourceClock)
	d := NewDashboard([]Section{slow, fast}, Deps{Clock: fixedClock(t)}, Options{CycleTimeout: 20 * time.Millisecond})

	report, err := d.Cycle(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, report.Results[0].Outcome)
	assert.Equal(t, domain.OutcomeSuccess, report.Results[1].Outcome)
}

func TestConcurrentRefreshesAreCoalesced(t *testing.T) {
	t.Parallel()

	section := &fakeSection{
		id:      domain.SourcePihole,
		outcome: domain.OutcomeSuccess,
		block:   make(chan struct{}),
		enter:   make(chan struct{}, 2),
	}
	d := NewDashboard([]Section{section}, Deps{Clock: fixedClock(t)}, Options{})

	var wg sync.WaitGroup
	results := make([]CycleReport, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = d.Cycle(context.Background(), true)
		}()
		if i == 0 {
			<-section.enter
		}
	}
	time.Sleep(50 * time.Millisecond)
	close(section.block)
	wg.Wait()

	assert.Equal(t, int32(1), section.calls.Load())
	assert.Equal(t, domain.OutcomeSuccess, results[0].Results[0].Outcome)
	assert.Equal(t, domain.OutcomeSuccess, results[1].Results[0].Outcome)
}

func TestRunOnceDrawsPanels(t *testing.T) {
	t.Parallel()

	renderer := mocks.NewMockRenderer(t)
	renderer.EXPECT().Render(mockAnyContext(), []domain.Panel{
		{Source: domain.SourceClock, Title: "clock"},
		{Source: domain.SourceWeather, Title: "weather"},
	}).Return(nil).Once()

	d := NewDashboard([]Section{ok(domain.SourceClock), failing(domain.SourceWeather)},
		Deps{Renderer: renderer, Clock: fixedClock(t)}, Options{})

	_, err := d.RunOnce(context.Background())
	require.NoError(t, err)
}

func TestRunOnceReportsRenderErrors(t *testing.T) {
	t.Parallel()

	renderer := mocks.NewMockRenderer(t)
	renderer.EXPECT().Render(mockAnyContext(), mock.Anything).Return(errors.New("tty gone")).Once()

	d := NewDashboard([]Section{ok(domain.SourceClock)}, Deps{Renderer: renderer, Clock: fixedClock(t)}, Options{})

	_, err := d.RunOnce(context.Background())
	require.ErrorContains(t, err, "tty gone")
}

func TestRunWaitsCycleIntervalWhileSourcesWork(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sleeper := &stopAfter{n: 2, cancel: cancel}

	section := ok(domain.SourceClock)
	d := NewDashboard([]Section{section, failing(domain.SourceWeather)},
		Deps{Clock: fixedClock(t), Sleeper: sleeper}, Options{CycleEvery: 5 * time.Minute})

	require.NoError(t, d.Run(ctx))
	assert.Equal(t, []time.Duration{5 * time.Minute, 5 * time.Minute}, sleeper.waits)
	assert.Equal(t, int32(2), section.calls.Load())
}

func TestRunReconnectsAndCoolsDownWhenEverythingFails(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sleeper := &stopAfter{n: 1, cancel: cancel}

	conn := mocks.NewMockConnectivity(t)
	conn.EXPECT().Connect(mockAnyContext()).Return(false).Once()

	d := NewDashboard([]Section{failing(domain.SourceClock), failing(domain.SourceWeather)},
		Deps{Connectivity: conn, Clock: fixedClock(t), Sleeper: sleeper}, Options{})

	require.NoError(t, d.Run(ctx))
	assert.Equal(t, []time.Duration{DefaultCooldown}, sleeper.waits)
}

func TestCycleReportAllFailed(t *testing.T) {
	t.Parallel()

	assert.False(t, CycleReport{}.AllFailed())
	assert.True(t, CycleReport{Results: []domain.Result{{Outcome: domain.OutcomeFailed}}}.AllFailed())
	assert.False(t, CycleReport{Results: []domain.Result{
		{Outcome: domain.OutcomeFailed},
		{Outcome: domain.OutcomeDegraded},
	}}.AllFailed())
}
