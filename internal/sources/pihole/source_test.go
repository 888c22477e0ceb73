package pihole

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/dashd/internal/adapters/transport/httpclient"
	"github.com/bnema/dashd/internal/domain"
	"github.com/bnema/dashd/internal/poll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, time.October, 17, 8, 0, 0, 0, time.UTC)

type noSleep struct{}

func (noSleep) Sleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

// fakePihole records every request path in order.
type fakePihole struct {
	mu           sync.Mutex
	calls        []string
	summaryCodes []int
	summaryBody  string
}

func (f *fakePihole) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakePihole) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	code := http.StatusOK
	if len(f.summaryCodes) > 0 && r.URL.Path == "/api/stats/summary" {
		code = f.summaryCodes[0]
		f.summaryCodes = f.summaryCodes[1:]
	}
	body := f.summaryBody
	f.mu.Unlock()

	switch r.URL.Path {
	case "/api/auth":
		_, _ = w.Write([]byte(`{"session":{"valid":true,"sid":"sid-1","csrf":"csrf-1"}}`))
	case "/api/logout":
		w.WriteHeader(http.StatusNoContent)
	case "/api/stats/summary":
		if r.URL.Query().Get("auth") == "" && r.Header.Get("X-FTL-SID") != "sid-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(code)
		if code == http.StatusOK {
			_, _ = w.Write([]byte(body))
		}
	default:
		http.NotFound(w, r)
	}
}

func newTestSource(t *testing.T, fake *fakePihole, cfg Config) *Source {
	t.Helper()

	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := httpclient.New(time.Second)
	require.NoError(t, err)

	cfg.Host = server.URL + "/api"
	source, err := New(cfg, Deps{Transport: client, Sleeper: noSleep{}})
	require.NoError(t, err)
	return source
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Host: "pi.hole"}, Deps{})
	require.Error(t, err)

	_, err = New(Config{Password: "x"}, Deps{})
	require.Error(t, err)
}

func TestConfigBaseURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "http://192.168.1.2/api", Config{Host: "192.168.1.2"}.BaseURL())
	assert.Equal(t, "https://pi.example/admin/api", Config{Host: "https://pi.example/admin/api"}.BaseURL())
}

func TestSourceSessionLifecycle(t *testing.T) {
	t.Parallel()

	fake := &fakePihole{summaryBody: `{"queries":{"total":12345,"blocked":678},"status":"enabled"}`}
	source := newTestSource(t, fake, Config{Password: "hunter2"})

	primary, secondary := source.Formatted(t0)
	assert.Equal(t, "Loading", primary)
	assert.Equal(t, "...", secondary)

	res := source.Refresh(context.Background(), t0, false)
	require.Equal(t, domain.OutcomeSuccess, res.Outcome, res.String())
	assert.Equal(t, []string{"POST /api/auth", "GET /api/stats/summary", "POST /api/logout"}, fake.Calls())
	assert.Equal(t, poll.StateUnauthenticated, source.SessionState())

	assert.Equal(t, 12345.0, source.Total())
	assert.Equal(t, 678.0, source.Blocked())
	assert.Equal(t, "enabled", source.Status())

	source.display.Invalidate()
	panel := source.Panel(t0)
	assert.Equal(t, "DNS Queries: 12.3k", panel.Primary)
	assert.Equal(t, "Blocked Ads: 678", panel.Secondary)
}

func TestSourceReauthenticatesOnExpiredSession(t *testing.T) {
	t.Parallel()

	fake := &fakePihole{
		summaryCodes: []int{http.StatusUnauthorized},
		summaryBody:  `{"queries":{"total":1,"blocked":0}}`,
	}
	source := newTestSource(t, fake, Config{Password: "hunter2"})

	res := source.Refresh(context.Background(), t0, false)
	require.Equal(t, domain.OutcomeSuccess, res.Outcome, res.String())
	assert.Equal(t, []string{
		"POST /api/auth",
		"GET /api/stats/summary",
		"POST /api/auth",
		"GET /api/stats/summary",
		"POST /api/logout",
	}, fake.Calls())
}

func TestSourceServerRateLimitLocksOut(t *testing.T) {
	t.Parallel()

	fake := &fakePihole{
		summaryCodes: []int{http.StatusTooManyRequests},
		summaryBody:  `{"queries":{"total":1,"blocked":0}}`,
	}
	source := newTestSource(t, fake, Config{Password: "hunter2", MaxPerWindow: 5})

	res := source.Refresh(context.Background(), t0, false)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Equal(t, domain.ReasonRateLimited, res.Reason)
	assert.Equal(t, 300*time.Second, res.RetryAfter)

	calls := len(fake.Calls())
	res = source.Refresh(context.Background(), t0.Add(2*time.Minute), false)
	assert.Equal(t, domain.ReasonRateLimited, res.Reason)
	assert.Len(t, fake.Calls(), calls, "locked out sources stay off the wire")
}

func TestSourceAPITokenSkipsSession(t *testing.T) {
	t.Parallel()

	fake := &fakePihole{summaryBody: `{"dns":{"queries":2500000,"blocked":1200},"gravity":{},"status":{"state":"enabled"}}`}
	source := newTestSource(t, fake, Config{APIToken: "tok"})

	res := source.Refresh(context.Background(), t0, false)
	require.Equal(t, domain.OutcomeSuccess, res.Outcome, res.String())
	assert.Equal(t, []string{"GET /api/stats/summary"}, fake.Calls())
	assert.Empty(t, string(source.SessionState()))

	primary, secondary := source.Formatted(t0)
	assert.Equal(t, "DNS Queries: 2.5M", primary)
	assert.Equal(t, "Blocked Ads: 1.2k", secondary)
}

func TestSourceInvalidPayloadServesCache(t *testing.T) {
	t.Parallel()

	fake := &fakePihole{summaryBody: `{"queries":{"total":50,"blocked":5}}`}
	source := newTestSource(t, fake, Config{APIToken: "tok", MaxPerWindow: 10})

	require.Equal(t, domain.OutcomeSuccess, source.Refresh(context.Background(), t0, false).Outcome)

	fake.mu.Lock()
	fake.summaryBody = `{"unexpected":true}`
	fake.mu.Unlock()

	res := source.Refresh(context.Background(), t0.Add(2*time.Hour), false)
	assert.Equal(t, domain.OutcomeDegraded, res.Outcome)
	assert.Equal(t, domain.ReasonInvalidPayload, res.Reason)
	assert.Equal(t, 50.0, source.Total())
	assert.True(t, strings.HasPrefix(source.Panel(t0.Add(2*time.Hour)).Primary, "DNS Queries"))
	assert.True(t, source.Panel(t0.Add(2*time.Hour)).Degraded)
}
