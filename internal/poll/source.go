// Package poll implements the freshness engine shared by every dashboard
// source: an interval gate, a sliding-window rate limiter, bounded retries
// with exponential backoff, an optional login session, and a stale cache that
// keeps serving the last validated payload when a refresh fails.
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

const (
	defaultCallTimeout = 10 * time.Second
	defaultMinGapRatio = 0.5

	// quota for sources that configure none; loose enough to never bind, so
	// the limiter only carries server lockouts
	defaultMaxPerWindow = 60
	defaultWindow       = time.Minute
)

// Capability is everything source-specific: how to fetch a payload and how
// to tell a structurally valid payload from a bad one.
//
// Fetch classifies its failures by wrapping domain sentinels:
// ErrAuthExpired for 401/403, *RateLimitError for 429, ErrInvalidPayload for
// undecodable bodies. Any other error is treated as transient.
type Capability[T any] struct {
	Fetch    func(ctx context.Context, creds Credentials) (T, error)
	Validate func(T) error
}

type Config struct {
	ID       domain.SourceID
	Interval time.Duration
	// MinGapRatio refuses unforced refreshes closer than ratio*Interval to
	// the last success. Negative disables; zero means the default.
	MinGapRatio float64
	Retry       RetryPolicy
	CallTimeout time.Duration
}

type Deps struct {
	// Limiter defaults to a permissive quota when nil.
	Limiter      *RateLimiter
	Session      *SessionAuth
	Connectivity ports.Connectivity
	Sleeper      ports.Sleeper
	Logger       *log.Logger
}

type Source[T any] struct {
	cfg          Config
	capability   Capability[T]
	gate         *PollGate
	limiter      *RateLimiter
	session      *SessionAuth
	connectivity ports.Connectivity
	sleeper      ports.Sleeper
	logger       *log.Logger
	cache        StaleCache[T]

	mu sync.Mutex
}

func NewSource[T any](cfg Config, capability Capability[T], deps Deps) *Source[T] {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.MinGapRatio == 0 {
		cfg.MinGapRatio = defaultMinGapRatio
	}
	if capability.Validate == nil {
		capability.Validate = func(T) error { return nil }
	}
	if deps.Sleeper == nil {
		deps.Sleeper = ports.SystemSleeper{}
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	if deps.Limiter == nil {
		deps.Limiter = NewRateLimiter(defaultMaxPerWindow, defaultWindow)
	}

	return &Source[T]{
		cfg:          cfg,
		capability:   capability,
		gate:         NewPollGate(cfg.Interval),
		limiter:      deps.Limiter,
		session:      deps.Session,
		connectivity: deps.Connectivity,
		sleeper:      deps.Sleeper,
		logger:       deps.Logger.With("source", string(cfg.ID)),
	}
}

func (s *Source[T]) ID() domain.SourceID {
	return s.cfg.ID
}

func (s *Source[T]) Interval() time.Duration {
	return s.cfg.Interval
}

func (s *Source[T]) LastSuccess() time.Time {
	return s.gate.LastSuccess()
}

// Snapshot returns the last validated payload and when it was stored.
func (s *Source[T]) Snapshot() (T, time.Time, bool) {
	return s.cache.Get()
}

func (s *Source[T]) Degraded() bool {
	return s.cache.Degraded()
}

// SessionState is empty for sources without a login session.
func (s *Source[T]) SessionState() SessionState {
	if s.session == nil {
		return ""
	}
	return s.session.State()
}

// Refresh runs one refresh cycle. It never panics and never returns an error
// past its boundary; the outcome is carried in the Result.
func (s *Source[T]) Refresh(ctx context.Context, now time.Time, force bool) (res domain.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			res = s.fallback(domain.ReasonExhausted, fmt.Errorf("refresh %s: panic: %v", s.cfg.ID, r), 0)
		}
		res.Source = s.cfg.ID
		s.logResult(res)
	}()

	return s.refresh(ctx, now, force)
}

func (s *Source[T]) refresh(ctx context.Context, now time.Time, force bool) domain.Result {
	if !s.gate.IsDue(now, force) {
		return domain.Result{Outcome: domain.OutcomeSkipped}
	}
	if !force && s.gate.WithinMinGap(now, s.cfg.MinGapRatio) {
		s.logger.Warn("refresh refused, too soon after last success", "last_success", s.gate.LastSuccess())
		return domain.Result{Outcome: domain.OutcomeSkipped}
	}

	if s.connectivity != nil && !s.online(ctx) {
		return s.fallback(domain.ReasonNetworkError, domain.ErrOffline, 0)
	}

	if decision := s.limiter.CheckAndRecord(now); !decision.Allowed {
		err := &domain.RateLimitError{RetryAfter: decision.RetryAfter}
		res := s.fallback(domain.ReasonRateLimited, err, 0)
		res.RetryAfter = decision.RetryAfter
		return res
	}

	if s.session != nil {
		if s.session.Failed() && !force {
			return s.failed(domain.ReasonAuthPreviouslyFailed, domain.ErrAuthPreviouslyFailed, 0)
		}
		if err := s.session.EnsureAuthenticated(ctx, now, force); err != nil {
			return s.failed(authReason(err), err, 0)
		}
	}

	return s.fetch(ctx, now)
}

func (s *Source[T]) fetch(ctx context.Context, now time.Time) domain.Result {
	attempts := s.cfg.Retry.Attempts()
	reauthenticated := false
	calls := 0

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		calls++
		payload, err := s.call(ctx)
		if err == nil {
			if verr := s.capability.Validate(payload); verr != nil {
				err = fmt.Errorf("%w: %w", domain.ErrInvalidPayload, verr)
				return s.fallback(domain.ReasonInvalidPayload, err, calls)
			}

			s.cache.Store(payload, now)
			s.gate.MarkSuccess(now)
			if s.session != nil && s.session.OneShot() {
				s.session.Release(ctx, now)
			}
			return domain.Result{Outcome: domain.OutcomeSuccess, Attempts: calls}
		}

		var rateErr *domain.RateLimitError
		switch {
		case errors.Is(err, domain.ErrInvalidPayload):
			return s.fallback(domain.ReasonInvalidPayload, err, calls)

		case errors.As(err, &rateErr):
			s.limiter.ApplyServerLockout(now, rateErr.RetryAfter)
			res := s.fallback(domain.ReasonRateLimited, err, calls)
			res.RetryAfter = rateErr.RetryAfter
			if res.RetryAfter <= 0 {
				res.RetryAfter = DefaultServerLockout
			}
			return res

		case errors.Is(err, domain.ErrAuthExpired):
			if s.session == nil || reauthenticated {
				return s.fallback(domain.ReasonAuthError, err, calls)
			}
			reauthenticated = true
			s.logger.Info("session expired, re-authenticating")
			s.session.Invalidate()
			if authErr := s.session.EnsureAuthenticated(ctx, now, false); authErr != nil {
				return s.fallback(authReason(authErr), authErr, calls)
			}
			// same attempt slot
			attempt--
			continue
		}

		lastErr = err
		s.logger.Warn("fetch attempt failed", "attempt", attempt+1, "of", attempts, "err", err)
		if attempt < attempts-1 {
			if sleepErr := s.sleeper.Sleep(ctx, s.cfg.Retry.Delay(attempt)); sleepErr != nil {
				return s.fallback(domain.ReasonExhausted, errors.Join(lastErr, sleepErr), calls)
			}
		}
	}

	return s.fallback(domain.ReasonExhausted, fmt.Errorf("%d attempts: %w", attempts, lastErr), calls)
}

// call shields the in-flight request from caller cancellation; cancellation
// is honoured between attempts only.
func (s *Source[T]) call(ctx context.Context) (T, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CallTimeout)
	defer cancel()

	var creds Credentials
	if s.session != nil {
		creds = s.session.Credentials()
	}
	return s.capability.Fetch(callCtx, creds)
}

func (s *Source[T]) online(ctx context.Context) bool {
	if s.connectivity.IsConnected(ctx) {
		return true
	}
	s.logger.Info("offline, reconnecting")
	return s.connectivity.Connect(ctx)
}

// fallback serves the stale cache when it holds data.
func (s *Source[T]) fallback(reason domain.Reason, err error, attempts int) domain.Result {
	if s.cache.Has() {
		s.cache.MarkDegraded()
		return domain.Result{Outcome: domain.OutcomeDegraded, Reason: reason, Err: err, Attempts: attempts}
	}
	return s.failed(reason, err, attempts)
}

func (s *Source[T]) failed(reason domain.Reason, err error, attempts int) domain.Result {
	s.cache.MarkDegraded()
	return domain.Result{Outcome: domain.OutcomeFailed, Reason: reason, Err: err, Attempts: attempts}
}

func (s *Source[T]) logResult(res domain.Result) {
	switch res.Outcome {
	case domain.OutcomeSuccess:
		s.logger.Info("refreshed", "attempts", res.Attempts)
	case domain.OutcomeSkipped:
		s.logger.Debug("not due")
	case domain.OutcomeDegraded:
		s.logger.Warn("serving cached data", "reason", res.Reason, "err", res.Err)
	default:
		s.logger.Error("refresh failed", "reason", res.Reason, "err", res.Err)
	}
}

func authReason(err error) domain.Reason {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return domain.ReasonRateLimited
	case errors.Is(err, domain.ErrAuthPreviouslyFailed):
		return domain.ReasonAuthPreviouslyFailed
	default:
		return domain.ReasonAuthError
	}
}
