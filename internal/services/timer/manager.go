package timer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/bullscows/internal/dependencies/clock"
)

// TickInterval is the countdown resolution
const TickInterval = time.Second

// TickFunc receives the generation of the countdown and the seconds left
type TickFunc func(gen uint64, remaining int)

// ExpireFunc is invoked once when a countdown reaches zero
type ExpireFunc func(gen uint64)

// Manager owns at most one countdown per key.
// Callbacks run on the countdown's goroutine without the manager lock held, so
// they may call Start or Stop. Each countdown carries a generation; callers
// compare it to the generation they last started to discard callbacks that were
// already in flight when a newer countdown replaced it.
type Manager struct {
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	timers  map[string]*countdown
	nextGen uint64
}

type countdown struct {
	gen       uint64
	remaining int
	ticker    clock.Ticker
	done      chan struct{}
	closeOnce sync.Once
}

func (c *countdown) cancel() {
	c.closeOnce.Do(func() {
		c.ticker.Stop()
		close(c.done)
	})
}

// NewManager creates a new timer Manager
func NewManager(clk clock.Clock, logger *slog.Logger) *Manager {
	return &Manager{
		clock:  clk,
		logger: logger.With(slog.String("component", "timer")),
		timers: make(map[string]*countdown),
	}
}

// Start replaces any countdown for key with a new one of the given length and
// returns its generation. onTick fires once per second with the remaining
// seconds, including zero, then onExpire fires exactly once.
func (m *Manager) Start(key string, seconds int, onTick TickFunc, onExpire ExpireFunc) uint64 {
	m.mu.Lock()
	if existing, ok := m.timers[key]; ok {
		existing.cancel()
	}
	m.nextGen++
	cd := &countdown{
		gen:       m.nextGen,
		remaining: seconds,
		ticker:    m.clock.NewTicker(TickInterval),
		done:      make(chan struct{}),
	}
	m.timers[key] = cd
	m.mu.Unlock()

	m.logger.Debug("timer started",
		slog.String("key", key),
		slog.Int("seconds", seconds),
		slog.Uint64("gen", cd.gen),
	)

	go m.run(key, cd, onTick, onExpire)
	return cd.gen
}

// Stop cancels the countdown for key. It is a no-op if none is running and
// never waits for an in-flight callback.
func (m *Manager) Stop(key string) {
	m.mu.Lock()
	cd, ok := m.timers[key]
	if ok {
		delete(m.timers, key)
	}
	m.mu.Unlock()

	if ok {
		cd.cancel()
		m.logger.Debug("timer stopped", slog.String("key", key), slog.Uint64("gen", cd.gen))
	}
}

// StopAll cancels every countdown
func (m *Manager) StopAll() {
	m.mu.Lock()
	timers := m.timers
	m.timers = make(map[string]*countdown)
	m.mu.Unlock()

	for _, cd := range timers {
		cd.cancel()
	}
}

// Running reports whether a countdown exists for key
func (m *Manager) Running(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.timers[key]
	return ok
}

// Remaining returns the seconds left on key's countdown
func (m *Manager) Remaining(key string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cd, ok := m.timers[key]
	if !ok {
		return 0, false
	}
	return cd.remaining, true
}

// Count returns the number of live countdowns
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *Manager) run(key string, cd *countdown, onTick TickFunc, onExpire ExpireFunc) {
	for {
		select {
		case <-cd.done:
			return
		case <-cd.ticker.C():
		}

		m.mu.Lock()
		if m.timers[key] != cd {
			// Replaced or stopped while the tick was pending
			m.mu.Unlock()
			return
		}
		cd.remaining--
		remaining := cd.remaining
		expired := remaining <= 0
		if expired {
			delete(m.timers, key)
		}
		m.mu.Unlock()

		if expired {
			cd.cancel()
		}

		if onTick != nil {
			onTick(cd.gen, remaining)
		}
		if expired {
			m.logger.Debug("timer expired", slog.String("key", key), slog.Uint64("gen", cd.gen))
			if onExpire != nil {
				onExpire(cd.gen)
			}
			return
		}
	}
}
