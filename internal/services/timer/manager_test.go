package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/bullscows/internal/dependencies/mocks"
	"github.com/mcoot/bullscows/internal/testutil"
)

type tick struct {
	gen       uint64
	remaining int
}

type ManagerSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	manager *Manager

	ticks   chan tick
	expires chan uint64
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.manager = NewManager(s.clock, testutil.NopLogger())
	s.ticks = make(chan tick, 64)
	s.expires = make(chan uint64, 8)
}

func (s *ManagerSuite) TearDownTest() {
	s.manager.StopAll()
}

func (s *ManagerSuite) onTick(gen uint64, remaining int) {
	s.ticks <- tick{gen: gen, remaining: remaining}
}

func (s *ManagerSuite) onExpire(gen uint64) {
	s.expires <- gen
}

func (s *ManagerSuite) nextTick() tick {
	select {
	case t := <-s.ticks:
		return t
	case <-time.After(time.Second):
		s.FailNow("timed out waiting for tick")
		return tick{}
	}
}

func (s *ManagerSuite) nextExpire() uint64 {
	select {
	case gen := <-s.expires:
		return gen
	case <-time.After(time.Second):
		s.FailNow("timed out waiting for expiry")
		return 0
	}
}

func (s *ManagerSuite) assertQuiet() {
	select {
	case t := <-s.ticks:
		s.Failf("unexpected tick", "%+v", t)
	case gen := <-s.expires:
		s.Failf("unexpected expiry", "gen %d", gen)
	case <-time.After(50 * time.Millisecond):
	}
}

func (s *ManagerSuite) TestCountdownTicksThenExpiresOnce() {
	gen := s.manager.Start("ROOM01", 3, s.onTick, s.onExpire)

	for _, want := range []int{2, 1, 0} {
		s.clock.Advance(TickInterval)
		got := s.nextTick()
		s.Equal(gen, got.gen)
		s.Equal(want, got.remaining)
	}
	s.Equal(gen, s.nextExpire())

	s.clock.Advance(5 * TickInterval)
	s.assertQuiet()
	s.False(s.manager.Running("ROOM01"))
}

func (s *ManagerSuite) TestRemainingTracksTicks() {
	s.manager.Start("ROOM01", 30, s.onTick, s.onExpire)

	remaining, ok := s.manager.Remaining("ROOM01")
	s.True(ok)
	s.Equal(30, remaining)

	s.clock.Advance(TickInterval)
	s.nextTick()
	remaining, _ = s.manager.Remaining("ROOM01")
	s.Equal(29, remaining)
}

func (s *ManagerSuite) TestStartTwiceKeepsOnlyLatestStream() {
	first := s.manager.Start("ROOM01", 5, s.onTick, s.onExpire)
	second := s.manager.Start("ROOM01", 5, s.onTick, s.onExpire)
	s.NotEqual(first, second)
	s.Equal(1, s.manager.Count())
	s.Equal(1, s.clock.ActiveTickers())

	s.clock.Advance(TickInterval)
	got := s.nextTick()
	s.Equal(second, got.gen)
	s.Equal(4, got.remaining)
	s.assertQuiet()
}

func (s *ManagerSuite) TestStopWithoutTimerIsNoop() {
	s.NotPanics(func() {
		s.manager.Stop("NOTHING")
		s.manager.Stop("NOTHING")
	})
	s.False(s.manager.Running("NOTHING"))
}

func (s *ManagerSuite) TestStopCancelsCountdown() {
	s.manager.Start("ROOM01", 2, s.onTick, s.onExpire)
	s.manager.Stop("ROOM01")
	s.manager.Stop("ROOM01")

	s.clock.Advance(3 * TickInterval)
	s.assertQuiet()
	s.Equal(0, s.clock.ActiveTickers())
}

func (s *ManagerSuite) TestKeysAreIndependent() {
	a := s.manager.Start("ROOM0A", 1, s.onTick, s.onExpire)
	s.manager.Start("ROOM0B", 10, s.onTick, s.onExpire)
	s.manager.Stop("ROOM0B")

	s.clock.Advance(TickInterval)
	s.Equal(a, s.nextTick().gen)
	s.Equal(a, s.nextExpire())
}

func (s *ManagerSuite) TestRestartFromExpiryCallback() {
	var mu sync.Mutex
	var restarted uint64
	onExpire := func(gen uint64) {
		mu.Lock()
		defer mu.Unlock()
		restarted = s.manager.Start("ROOM01", 2, s.onTick, s.onExpire)
	}

	s.manager.Start("ROOM01", 1, s.onTick, onExpire)
	s.clock.Advance(TickInterval)
	s.Equal(0, s.nextTick().remaining)

	s.Eventually(func() bool { return s.manager.Running("ROOM01") }, time.Second, time.Millisecond)

	s.clock.Advance(TickInterval)
	got := s.nextTick()
	mu.Lock()
	s.Equal(restarted, got.gen)
	mu.Unlock()
	s.Equal(1, got.remaining)
}
