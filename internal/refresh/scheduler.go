// Package refresh proactively exchanges the refresh token for a new access
// token before expiry, so the operator never works against a stale session.
package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stockdesk/gateway/internal/clock"
)

// ErrCanceled is returned by a RefreshFunc whose result must be discarded
// because the session ended while the exchange was in flight. The scheduler
// goes idle without counting it as a failure.
var ErrCanceled = errors.New("refresh canceled")

type State string

const (
	StateIdle       State = "idle"
	StateScheduled  State = "scheduled"
	StateRefreshing State = "refreshing"
	StateFailed     State = "failed"
)

// RefreshFunc performs one token exchange and returns the new expiry.
type RefreshFunc func(ctx context.Context) (time.Time, error)

type Config struct {
	// Fraction of the remaining token lifetime after which the refresh fires.
	Fraction float64
	// Floor is the minimum delay before a refresh attempt.
	Floor time.Duration
	// MaxAttempts bounds consecutive failed attempts before forced logout.
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
	// CallTimeout bounds a single exchange.
	CallTimeout time.Duration
}

func (c *Config) fillDefaults() {
	if c.Fraction <= 0 || c.Fraction >= 1 {
		c.Fraction = 0.8
	}
	if c.Floor <= 0 {
		c.Floor = 5 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 2 * time.Second
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 30 * time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
}

// Scheduler owns the single refresh timer for the active session. Re-arming
// always cancels the previous timer, so two concurrent refresh attempts can
// never exist.
type Scheduler struct {
	mu          sync.Mutex
	cfg         Config
	clk         clock.Clock
	log         zerolog.Logger
	refresh     RefreshFunc
	onExhausted func()

	timer    clock.Timer
	state    State
	attempts int
	epoch    uint64
}

func NewScheduler(cfg Config, clk clock.Clock, log zerolog.Logger, refresh RefreshFunc, onExhausted func()) *Scheduler {
	cfg.fillDefaults()
	return &Scheduler{
		cfg:         cfg,
		clk:         clk,
		log:         log,
		refresh:     refresh,
		onExhausted: onExhausted,
		state:       StateIdle,
	}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Arm schedules the next refresh from the given expiry. Any previously armed
// timer is cancelled first.
func (s *Scheduler) Arm(expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.epoch++
	s.attempts = 0
	s.state = StateScheduled

	delay := s.fireDelay(expiresAt)
	s.scheduleLocked(s.epoch, delay)

	s.log.Debug().
		Time("expires_at", expiresAt).
		Dur("delay", delay).
		Msg("refresh scheduled")
}

// Stop cancels any pending timer and discards the result of an in-flight
// exchange. Safe to call from any state, any number of times.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.cancelLocked()
	s.state = StateIdle
	s.attempts = 0
}

func (s *Scheduler) fireDelay(expiresAt time.Time) time.Duration {
	remaining := expiresAt.Sub(s.clk.Now())
	delay := time.Duration(float64(remaining) * s.cfg.Fraction)
	if delay < s.cfg.Floor {
		delay = s.cfg.Floor
	}
	return delay
}

func (s *Scheduler) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) scheduleLocked(epoch uint64, delay time.Duration) {
	s.timer = s.clk.AfterFunc(delay, func() {
		s.fire(epoch)
	})
}

func (s *Scheduler) fire(epoch uint64) {
	s.mu.Lock()
	if epoch != s.epoch || s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.state = StateRefreshing
	timeout := s.cfg.CallTimeout
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	newExpiry, err := s.refresh(ctx)
	cancel()

	s.mu.Lock()
	if epoch != s.epoch {
		// Stopped while the exchange was in flight; the result is discarded.
		s.mu.Unlock()
		return
	}

	switch {
	case err == nil:
		s.attempts = 0
		s.state = StateScheduled
		delay := s.fireDelay(newExpiry)
		s.scheduleLocked(epoch, delay)
		s.mu.Unlock()
		s.log.Debug().Dur("next_in", delay).Msg("token refreshed")

	case errors.Is(err, ErrCanceled):
		s.state = StateIdle
		s.timer = nil
		s.mu.Unlock()

	default:
		s.attempts++
		if s.attempts >= s.cfg.MaxAttempts {
			s.state = StateIdle
			s.timer = nil
			attempts := s.attempts
			s.mu.Unlock()
			s.log.Error().Err(err).Int("attempts", attempts).Msg("refresh attempts exhausted, forcing logout")
			if s.onExhausted != nil {
				s.onExhausted()
			}
			return
		}
		s.state = StateFailed
		attempt := s.attempts
		backoff := s.backoff(attempt)
		s.scheduleLocked(epoch, backoff)
		s.mu.Unlock()
		s.log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", backoff).Msg("refresh failed")
	}
}

func (s *Scheduler) backoff(attempt int) time.Duration {
	d := s.cfg.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= s.cfg.BackoffCap {
			return s.cfg.BackoffCap
		}
	}
	if d > s.cfg.BackoffCap {
		d = s.cfg.BackoffCap
	}
	return d
}
