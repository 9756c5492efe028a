package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stockdesk/gateway/internal/session"
)

type fakeRevalidator struct {
	authed bool
	calls  int
	result session.Result
}

func (f *fakeRevalidator) IsAuthenticated() bool { return f.authed }

func (f *fakeRevalidator) Revalidate(ctx context.Context) (session.Result, error) {
	f.calls++
	return f.result, nil
}

func TestSweepSkipsWhenUnauthenticated(t *testing.T) {
	rv := &fakeRevalidator{}
	s := NewScheduler(rv, time.Minute, zerolog.Nop())

	s.sweep()

	if rv.calls != 0 {
		t.Errorf("revalidate calls = %d, want 0", rv.calls)
	}
}

func TestSweepRevalidates(t *testing.T) {
	rv := &fakeRevalidator{authed: true, result: session.Result{Valid: true}}
	s := NewScheduler(rv, time.Minute, zerolog.Nop())

	s.sweep()
	s.sweep()

	if rv.calls != 2 {
		t.Errorf("revalidate calls = %d, want 2", rv.calls)
	}
}

func TestStartStop(t *testing.T) {
	rv := &fakeRevalidator{}
	s := NewScheduler(rv, time.Minute, zerolog.Nop())

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
}
