// Package jobs runs the periodic session revalidation sweep.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"stockdesk/gateway/internal/session"
)

// Revalidator is the slice of the auth orchestrator the sweep needs.
type Revalidator interface {
	IsAuthenticated() bool
	Revalidate(ctx context.Context) (session.Result, error)
}

type Scheduler struct {
	cron     *cron.Cron
	auth     Revalidator
	interval time.Duration
	log      zerolog.Logger
}

func NewScheduler(auth Revalidator, interval time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		auth:     auth,
		interval: interval,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Dur("interval", s.interval).Msg("revalidation sweep scheduled")
	return nil
}

// Stop waits for a running sweep to finish, up to a grace period.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("sweep still running at shutdown")
	}
}

// sweep re-validates the stored session between requests, so an expired or
// displaced session is noticed even while the UI is quiet.
func (s *Scheduler) sweep() {
	if !s.auth.IsAuthenticated() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := s.auth.Revalidate(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("revalidation sweep failed")
		return
	}
	if !res.Valid {
		s.log.Warn().Interface("reasons", res.Errors).Msg("sweep invalidated the session")
	}
}
