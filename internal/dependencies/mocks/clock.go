package mocks

import (
	"sort"
	"sync"
	"time"

	"github.com/mcoot/bullscows/internal/dependencies/clock"
)

// MockClock is a manually driven Clock for testing.
// Tickers and delayed funcs only fire from Advance.
type MockClock struct {
	mu          sync.Mutex
	CurrentTime time.Time
	tickers     []*MockTicker
	pending     []*pendingFunc
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{CurrentTime: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CurrentTime
}

// Set sets the clock to the given time without firing anything
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CurrentTime = t
}

// NewTicker registers a manual ticker
func (c *MockClock) NewTicker(d time.Duration) clock.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &MockTicker{
		period:  d,
		next:    c.CurrentTime.Add(d),
		ch:      make(chan time.Time),
		stopped: make(chan struct{}),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// AfterFunc registers f to run when Advance passes its deadline
func (c *MockClock) AfterFunc(d time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := &pendingFunc{at: c.CurrentTime.Add(d), f: f}
	c.pending = append(c.pending, p)
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if p.done {
			return false
		}
		p.done = true
		return true
	}
}

// Advance moves the clock forward, runs due funcs synchronously, then
// delivers due ticks. Each tick send blocks until the ticker's reader takes
// it or the ticker is stopped.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.CurrentTime = c.CurrentTime.Add(d)
	now := c.CurrentTime

	var due []*pendingFunc
	remaining := c.pending[:0]
	for _, p := range c.pending {
		switch {
		case p.done:
		case !p.at.After(now):
			p.done = true
			due = append(due, p)
		default:
			remaining = append(remaining, p)
		}
	}
	c.pending = remaining
	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })

	type delivery struct {
		ticker *MockTicker
		count  int
	}
	var deliveries []delivery
	live := c.tickers[:0]
	for _, t := range c.tickers {
		if t.isStopped() {
			continue
		}
		live = append(live, t)
		n := 0
		for !t.next.After(now) {
			n++
			t.next = t.next.Add(t.period)
		}
		if n > 0 {
			deliveries = append(deliveries, delivery{t, n})
		}
	}
	c.tickers = live
	c.mu.Unlock()

	for _, p := range due {
		p.f()
	}
	for _, dl := range deliveries {
		for i := 0; i < dl.count; i++ {
			if !dl.ticker.deliver(now) {
				break
			}
		}
	}
}

// ActiveTickers returns the number of tickers not yet stopped
func (c *MockClock) ActiveTickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

// PendingFuncs returns the number of delayed funcs not yet run or cancelled
func (c *MockClock) PendingFuncs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, p := range c.pending {
		if !p.done {
			n++
		}
	}
	return n
}

type pendingFunc struct {
	at   time.Time
	f    func()
	done bool
}

// MockTicker is a ticker that only fires from MockClock.Advance
type MockTicker struct {
	period   time.Duration
	next     time.Time
	ch       chan time.Time
	stopped  chan struct{}
	stopOnce sync.Once
}

// C returns the tick channel
func (t *MockTicker) C() <-chan time.Time {
	return t.ch
}

// Stop prevents further deliveries
func (t *MockTicker) Stop() {
	t.stopOnce.Do(func() { close(t.stopped) })
}

func (t *MockTicker) isStopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}

func (t *MockTicker) deliver(now time.Time) bool {
	select {
	case t.ch <- now:
		return true
	case <-t.stopped:
		return false
	}
}
