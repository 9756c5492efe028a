// Package activity tracks operator interaction and logs the session out
// after sustained inactivity.
package activity

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stockdesk/gateway/internal/clock"
)

type Config struct {
	// IdleThreshold is the inactivity span that ends the session.
	IdleThreshold time.Duration
	// Tick is how often the threshold is checked.
	Tick time.Duration
}

func (c *Config) fillDefaults() {
	if c.IdleThreshold <= 0 {
		c.IdleThreshold = 30 * time.Minute
	}
	if c.Tick <= 0 {
		c.Tick = 30 * time.Second
	}
}

// Monitor fires the idle callback exactly once per idle episode and then
// stops itself. A later Start begins a fresh episode.
type Monitor struct {
	mu         sync.Mutex
	cfg        Config
	clk        clock.Clock
	log        zerolog.Logger
	onIdle     func()
	timer      clock.Timer
	lastActive time.Time
	running    bool
	epoch      uint64
}

func NewMonitor(cfg Config, clk clock.Clock, log zerolog.Logger, onIdle func()) *Monitor {
	cfg.fillDefaults()
	return &Monitor{
		cfg:    cfg,
		clk:    clk,
		log:    log,
		onIdle: onIdle,
	}
}

func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true
	m.epoch++
	m.lastActive = m.clk.Now()
	m.scheduleLocked(m.epoch)
}

// Stop unregisters the periodic check. Idempotent; safe before Start.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.epoch++
	m.running = false
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Touch records an interaction signal.
func (m *Monitor) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.lastActive = m.clk.Now()
}

func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) scheduleLocked(epoch uint64) {
	m.timer = m.clk.AfterFunc(m.cfg.Tick, func() {
		m.tick(epoch)
	})
}

func (m *Monitor) tick(epoch uint64) {
	m.mu.Lock()
	if epoch != m.epoch || !m.running {
		m.mu.Unlock()
		return
	}

	idle := m.clk.Now().Sub(m.lastActive)
	if idle < m.cfg.IdleThreshold {
		m.scheduleLocked(epoch)
		m.mu.Unlock()
		return
	}

	// Threshold breached: stop first so the callback fires once per episode.
	m.running = false
	m.timer = nil
	m.epoch++
	m.mu.Unlock()

	m.log.Info().Dur("idle", idle).Msg("idle threshold breached, logging out")
	if m.onIdle != nil {
		m.onIdle()
	}
}
