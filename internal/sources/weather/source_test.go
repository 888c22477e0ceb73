package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
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

func newTestSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := httpclient.New(time.Second)
	require.NoError(t, err)

	source, err := New(Config{
		APIKey:  "key-1",
		CityID:  "2988507",
		BaseURL: server.URL + "/data/2.5/weather",
		Retry:   poll.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Second},
	}, Deps{Transport: client, Sleeper: noSleep{}})
	require.NoError(t, err)
	return source
}

func TestSourceFetchesCurrentWeather(t *testing.T) {
	t.Parallel()

	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "2988507", r.URL.Query().Get("id"))
		assert.Equal(t, "key-1", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		_, _ = w.Write([]byte(`{"name":"Paris","sys":{"country":"FR"},"main":{"temp":20.6,"humidity":45},"rain":{"1h":0.3}}`))
	})

	primary, secondary := source.Formatted(t0)
	assert.Equal(t, "No weather data", primary)
	assert.Empty(t, secondary)

	res := source.Refresh(context.Background(), t0, false)
	require.Equal(t, domain.OutcomeSuccess, res.Outcome, res.String())

	temp, ok := source.Temperature()
	require.True(t, ok)
	assert.Equal(t, 21, temp)

	source.display.Invalidate()
	panel := source.Panel(t0)
	assert.Equal(t, "Paris,FR 21°C", panel.Primary)
	assert.Equal(t, "Hum:45% Rain:0.3mm", panel.Secondary)
}

func TestSourceRejectsReplyWithoutTemperature(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	})

	res := source.Refresh(context.Background(), t0, false)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Equal(t, domain.ReasonInvalidPayload, res.Reason)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSourceRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"name":"Oslo","sys":{"country":"NO"},"main":{"temp":-3.4}}`))
	})

	res := source.Refresh(context.Background(), t0, false)
	require.Equal(t, domain.OutcomeSuccess, res.Outcome, res.String())
	assert.Equal(t, 2, res.Attempts)

	primary, secondary := source.Formatted(t0)
	assert.Equal(t, "Oslo,NO -3°C", primary)
	assert.Equal(t, "Hum:?% Rain:0.0mm", secondary)
}

func TestSourceUnauthorizedKeyIsNotRetried(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	res := source.Refresh(context.Background(), t0, false)
	assert.Equal(t, domain.OutcomeFailed, res.Outcome)
	assert.Equal(t, domain.ReasonAuthError, res.Reason)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSourceHonoursServerRetryAfter(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	source := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	res := source.Refresh(context.Background(), t0, false)
	assert.Equal(t, domain.ReasonRateLimited, res.Reason)
	assert.Equal(t, 120*time.Second, res.RetryAfter)
	assert.Equal(t, int32(1), hits.Load())

	res = source.Refresh(context.Background(), t0.Add(60*time.Second), false)
	assert.Equal(t, domain.ReasonRateLimited, res.Reason)
	assert.Equal(t, 60*time.Second, res.RetryAfter)
	assert.Equal(t, int32(1), hits.Load(), "no request while locked out")

	source.Refresh(context.Background(), t0.Add(130*time.Second), false)
	assert.Equal(t, int32(2), hits.Load())
}

func TestConditionsRainfall(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.5, Conditions{Rain: map[string]float64{"3h": 1.5, "1h": 0.2}}.Rainfall())
	assert.Equal(t, 0.2, Conditions{Rain: map[string]float64{"1h": 0.2}}.Rainfall())
	assert.Equal(t, 0.0, Conditions{}.Rainfall())
}

func TestNewRequiresKeyAndCity(t *testing.T) {
	t.Parallel()

	_, err := New(Config{CityID: "1"}, Deps{})
	require.Error(t, err)
	_, err = New(Config{APIKey: "k"}, Deps{})
	require.Error(t, err)
}
