package poll

import (
	"context"
	"sync"
	"time"
)

var epoch = time.Date(2025, 5, 4, 12, 0, 0, 0, time.UTC)

func at(seconds int) time.Time {
	return epoch.Add(time.Duration(seconds) * time.Second)
}

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return s.err
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

type loginStep struct {
	creds Credentials
	err   error
}

type fakeAuthenticator struct {
	mu      sync.Mutex
	steps   []loginStep
	logins  int
	logouts []Credentials
}

func (a *fakeAuthenticator) Login(context.Context) (Credentials, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.logins++
	if len(a.steps) == 0 {
		return Credentials{SessionID: "sid", CSRFToken: "csrf"}, nil
	}
	step := a.steps[0]
	if len(a.steps) > 1 {
		a.steps = a.steps[1:]
	}
	return step.creds, step.err
}

func (a *fakeAuthenticator) Logout(_ context.Context, creds Credentials) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logouts = append(a.logouts, creds)
	return nil
}

func (a *fakeAuthenticator) Logins() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.logins
}

type fetchStep struct {
	payload int
	err     error
}

// scriptedFetch replays steps in order and repeats the last one.
type scriptedFetch struct {
	mu    sync.Mutex
	steps []fetchStep
	calls int
	creds []Credentials
}

func (f *scriptedFetch) Fetch(_ context.Context, creds Credentials) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.creds = append(f.creds, creds)
	step := f.steps[0]
	if len(f.steps) > 1 {
		f.steps = f.steps[1:]
	}
	return step.payload, step.err
}

func (f *scriptedFetch) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type stubConnectivity struct {
	connected bool
	connectOK bool
	connects  int
}

func (c *stubConnectivity) IsConnected(context.Context) bool { return c.connected }

func (c *stubConnectivity) Connect(context.Context) bool {
	c.connects++
	if c.connectOK {
		c.connected = true
	}
	return c.connectOK
}
