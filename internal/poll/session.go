package poll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bnema/dashd/internal/domain"
	"github.com/bnema/dashd/internal/ports"
	"github.com/charmbracelet/log"
)

type SessionState string

const (
	StateUnauthenticated SessionState = "unauthenticated"
	StateAuthenticating  SessionState = "authenticating"
	StateAuthenticated   SessionState = "authenticated"
	StateFailed          SessionState = "failed"
)

type Credentials struct {
	SessionID string
	CSRFToken string
}

// Authenticator is the source-specific login capability. Login must wrap
// domain.ErrMalformedLogin for replies that can never succeed on retry and
// return a *domain.RateLimitError on 429.
type Authenticator interface {
	Login(ctx context.Context) (Credentials, error)
	Logout(ctx context.Context, creds Credentials) error
}

type SessionConfig struct {
	Retry       RetryPolicy
	CallTimeout time.Duration
	// OneShot sessions are released after every successful refresh.
	OneShot bool
}

type SessionAuth struct {
	auth    Authenticator
	cfg     SessionConfig
	limiter *RateLimiter
	sleeper ports.Sleeper
	logger  *log.Logger

	mu     sync.Mutex
	state  SessionState
	creds  Credentials
	failed bool
}

func NewSessionAuth(auth Authenticator, cfg SessionConfig, limiter *RateLimiter, sleeper ports.Sleeper, logger *log.Logger) *SessionAuth {
	if sleeper == nil {
		sleeper = ports.SystemSleeper{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}

	return &SessionAuth{
		auth:    auth,
		cfg:     cfg,
		limiter: limiter,
		sleeper: sleeper,
		logger:  logger,
		state:   StateUnauthenticated,
	}
}

func (s *SessionAuth) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SessionAuth) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

func (s *SessionAuth) Credentials() Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}

func (s *SessionAuth) OneShot() bool {
	return s.cfg.OneShot
}

// EnsureAuthenticated logs in unless a session is already held. A previous
// failure short-circuits without network I/O unless force is set.
func (s *SessionAuth) EnsureAuthenticated(ctx context.Context, now time.Time, force bool) error {
	s.mu.Lock()
	switch {
	case s.state == StateAuthenticated:
		s.mu.Unlock()
		return nil
	case s.failed && !force:
		s.mu.Unlock()
		return domain.ErrAuthPreviouslyFailed
	}
	prevFailed := s.failed
	s.state = StateAuthenticating
	s.mu.Unlock()

	var lastErr error
	attempts := s.cfg.Retry.Attempts()
	for attempt := 0; attempt < attempts; attempt++ {
		creds, err := s.login(ctx)
		if err == nil && creds.SessionID == "" {
			err = fmt.Errorf("%w: no session id", domain.ErrMalformedLogin)
		}
		if err == nil {
			s.mu.Lock()
			s.creds = creds
			s.state = StateAuthenticated
			s.failed = false
			s.mu.Unlock()
			s.logger.Debug("session established", "attempt", attempt+1)
			return nil
		}

		var rateErr *domain.RateLimitError
		switch {
		case errors.As(err, &rateErr):
			if s.limiter != nil {
				s.limiter.ApplyServerLockout(now, rateErr.RetryAfter)
			}
			s.setState(StateUnauthenticated, prevFailed)
			s.logger.Warn("login rate limited", "retry_after", rateErr.RetryAfter)
			return fmt.Errorf("login: %w", err)
		case errors.Is(err, domain.ErrMalformedLogin):
			s.setState(StateFailed, true)
			s.logger.Error("login response malformed", "err", err)
			return fmt.Errorf("login: %w", err)
		}

		lastErr = err
		s.logger.Warn("login attempt failed", "attempt", attempt+1, "of", attempts, "err", err)
		if attempt < attempts-1 {
			if sleepErr := s.sleeper.Sleep(ctx, s.cfg.Retry.Delay(attempt)); sleepErr != nil {
				s.setState(StateUnauthenticated, prevFailed)
				return fmt.Errorf("login: %w", errors.Join(lastErr, sleepErr))
			}
		}
	}

	s.setState(StateFailed, true)
	return fmt.Errorf("login: %d attempts: %w", attempts, errors.Join(domain.ErrAuthRejected, lastErr))
}

// Invalidate drops the session after the remote reported it expired. The
// next refresh re-authenticates; this is not a failure.
func (s *SessionAuth) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = Credentials{}
	s.state = StateUnauthenticated
}

// Release logs out on a best-effort basis and invalidates locally. While the
// source is locked out the remote call is skipped.
func (s *SessionAuth) Release(ctx context.Context, now time.Time) {
	creds := s.Credentials()
	defer s.Invalidate()

	if creds.SessionID == "" {
		return
	}
	if s.limiter != nil && s.limiter.Locked(now) {
		s.logger.Debug("rate limited, dropping session locally")
		return
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CallTimeout)
	defer cancel()
	if err := s.auth.Logout(callCtx, creds); err != nil {
		s.logger.Warn("logout failed", "err", err)
	}
}

func (s *SessionAuth) login(ctx context.Context) (Credentials, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CallTimeout)
	defer cancel()
	return s.auth.Login(callCtx)
}

func (s *SessionAuth) setState(state SessionState, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	s.failed = failed
	if state != StateAuthenticated {
		s.creds = Credentials{}
	}
}
