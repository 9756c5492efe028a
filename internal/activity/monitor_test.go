package activity

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stockdesk/gateway/internal/clock"
)

var start = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestMonitor(onIdle func()) (*Monitor, *clock.Fake) {
	clk := clock.NewFake(start)
	cfg := Config{IdleThreshold: 10 * time.Minute, Tick: time.Minute}
	return NewMonitor(cfg, clk, zerolog.Nop(), onIdle), clk
}

func TestIdleLogoutFiresExactlyOnce(t *testing.T) {
	fired := 0
	m, clk := newTestMonitor(func() { fired++ })

	m.Start()
	clk.Advance(time.Hour) // well past the threshold, many ticks

	if fired != 1 {
		t.Errorf("idle callback fired %d times, want exactly 1", fired)
	}
	if m.Running() {
		t.Error("monitor should stop itself after firing")
	}
}

func TestTouchDefersIdleLogout(t *testing.T) {
	fired := 0
	m, clk := newTestMonitor(func() { fired++ })

	m.Start()
	for i := 0; i < 15; i++ {
		clk.Advance(5 * time.Minute)
		m.Touch()
	}
	if fired != 0 {
		t.Fatalf("idle callback fired %d times despite steady activity", fired)
	}

	clk.Advance(11 * time.Minute)
	if fired != 1 {
		t.Errorf("idle callback fired %d times after activity ceased, want 1", fired)
	}
}

func TestRestartBeginsFreshEpisode(t *testing.T) {
	fired := 0
	m, clk := newTestMonitor(func() { fired++ })

	m.Start()
	clk.Advance(time.Hour)
	if fired != 1 {
		t.Fatalf("first episode fired %d times", fired)
	}

	// Re-login: a fresh episode with a clean idle state.
	m.Start()
	if !m.Running() {
		t.Fatal("monitor should run after restart")
	}
	clk.Advance(5 * time.Minute)
	if fired != 1 {
		t.Fatal("fresh episode fired prematurely")
	}
	clk.Advance(time.Hour)
	if fired != 2 {
		t.Errorf("fired = %d after second idle episode, want 2", fired)
	}
}

func TestStopCancelsTick(t *testing.T) {
	fired := 0
	m, clk := newTestMonitor(func() { fired++ })

	m.Start()
	m.Stop()

	clk.Advance(24 * time.Hour)
	if fired != 0 {
		t.Error("idle callback fired after Stop")
	}
	if clk.Pending() != 0 {
		t.Errorf("pending timers = %d after Stop, want 0 (leak)", clk.Pending())
	}
}

func TestStopIdempotentAndSafeBeforeStart(t *testing.T) {
	m, _ := newTestMonitor(nil)
	m.Stop()
	m.Stop()

	m.Start()
	m.Stop()
	m.Stop()
	if m.Running() {
		t.Error("monitor running after Stop")
	}
}

func TestDoubleStartKeepsSingleTimer(t *testing.T) {
	m, clk := newTestMonitor(nil)
	m.Start()
	m.Start()
	if clk.Pending() != 1 {
		t.Errorf("pending timers = %d, want 1", clk.Pending())
	}
}

func TestTouchIgnoredWhenStopped(t *testing.T) {
	m, _ := newTestMonitor(nil)
	m.Touch() // must not panic or arm anything
	if m.Running() {
		t.Error("Touch must not start the monitor")
	}
}
