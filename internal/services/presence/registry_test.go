package presence

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/bullscows/internal/dependencies/mocks"
	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/storage"
	"github.com/mcoot/bullscows/internal/storage/memory"
	"github.com/mcoot/bullscows/internal/testutil"
)

// flipRecorder wraps an account store and records presence flips per user
type flipRecorder struct {
	storage.AccountStore
	mu    sync.Mutex
	flips map[model.PlayerID][]bool
}

func (f *flipRecorder) SetOnline(ctx context.Context, id model.PlayerID, online bool) error {
	f.mu.Lock()
	f.flips[id] = append(f.flips[id], online)
	f.mu.Unlock()
	return f.AccountStore.SetOnline(ctx, id, online)
}

func (f *flipRecorder) flipsFor(id model.PlayerID) []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.flips[id]...)
}

type RegistrySuite struct {
	suite.Suite
	store    *memory.Storage
	recorder *flipRecorder
	registry *Registry
	ctx      context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New(mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)), time.Hour)
	s.Require().NoError(s.store.SaveAccount(s.ctx, &model.Account{ID: "alice", DisplayName: "Alice"}))
	s.Require().NoError(s.store.SaveAccount(s.ctx, &model.Account{ID: "bob", DisplayName: "Bob"}))
	s.recorder = &flipRecorder{AccountStore: s.store, flips: map[model.PlayerID][]bool{}}
	s.registry = NewRegistry(s.recorder, testutil.NopLogger())
}

func (s *RegistrySuite) TestFirstAndLastConnectionFlipPresence() {
	h := testutil.NewRecordingHandle("c1")

	s.True(s.registry.Register(s.ctx, "alice", h))
	s.True(s.registry.IsOnline("alice"))
	account, _ := s.store.GetAccount(s.ctx, "alice")
	s.True(account.Online)

	s.True(s.registry.Deregister(s.ctx, "alice", h))
	s.False(s.registry.IsOnline("alice"))
	account, _ = s.store.GetAccount(s.ctx, "alice")
	s.False(account.Online)

	s.Equal([]bool{true, false}, s.recorder.flipsFor("alice"))
}

func (s *RegistrySuite) TestMultiTabDoesNotDuplicateFlips() {
	tab1 := testutil.NewRecordingHandle("c1")
	tab2 := testutil.NewRecordingHandle("c2")

	s.True(s.registry.Register(s.ctx, "alice", tab1))
	s.False(s.registry.Register(s.ctx, "alice", tab2))
	s.Equal(2, s.registry.ConnectionCount("alice"))

	s.False(s.registry.Deregister(s.ctx, "alice", tab1))
	s.True(s.registry.IsOnline("alice"))

	s.True(s.registry.Deregister(s.ctx, "alice", tab2))
	s.Equal([]bool{true, false}, s.recorder.flipsFor("alice"))
}

func (s *RegistrySuite) TestDuplicateRegisterAndUnknownDeregister() {
	h := testutil.NewRecordingHandle("c1")
	s.True(s.registry.Register(s.ctx, "alice", h))
	s.False(s.registry.Register(s.ctx, "alice", h))
	s.Equal(1, s.registry.ConnectionCount("alice"))

	s.False(s.registry.Deregister(s.ctx, "alice", testutil.NewRecordingHandle("other")))
	s.False(s.registry.Deregister(s.ctx, "nobody", h))
	s.Equal([]bool{true}, s.recorder.flipsFor("alice"))
}

func (s *RegistrySuite) TestSendToUserReachesEveryConnection() {
	tab1 := testutil.NewRecordingHandle("c1")
	tab2 := testutil.NewRecordingHandle("c2")
	other := testutil.NewRecordingHandle("c3")
	s.registry.Register(s.ctx, "alice", tab1)
	s.registry.Register(s.ctx, "alice", tab2)
	s.registry.Register(s.ctx, "bob", other)

	event := model.Event{Type: model.EventPlayerJoined, RoomCode: "ROOM01"}
	s.Equal(2, s.registry.SendToUser("alice", event))

	s.Len(tab1.Events(), 1)
	s.Len(tab2.Events(), 1)
	s.Empty(other.Events())
	s.Equal(0, s.registry.SendToUser("carol", event))
}

func (s *RegistrySuite) TestAnyConnectionForReturnsOldest() {
	s.Nil(s.registry.AnyConnectionFor("alice"))

	tab1 := testutil.NewRecordingHandle("c1")
	tab2 := testutil.NewRecordingHandle("c2")
	s.registry.Register(s.ctx, "alice", tab1)
	s.registry.Register(s.ctx, "alice", tab2)
	s.Equal("c1", s.registry.AnyConnectionFor("alice").ID())

	s.registry.Deregister(s.ctx, "alice", tab1)
	s.Equal("c2", s.registry.AnyConnectionFor("alice").ID())
}

func (s *RegistrySuite) TestOfflineHookFiresOnLastConnectionOnly() {
	var mu sync.Mutex
	var offline []model.PlayerID
	s.registry.OnOffline(func(id model.PlayerID) {
		mu.Lock()
		offline = append(offline, id)
		mu.Unlock()
	})

	tab1 := testutil.NewRecordingHandle("c1")
	tab2 := testutil.NewRecordingHandle("c2")
	s.registry.Register(s.ctx, "alice", tab1)
	s.registry.Register(s.ctx, "alice", tab2)
	s.registry.Deregister(s.ctx, "alice", tab1)
	s.registry.Deregister(s.ctx, "alice", tab2)

	s.Equal([]model.PlayerID{"alice"}, offline)
}

func (s *RegistrySuite) TestConcurrentChurnAlternatesFlips() {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := testutil.NewRecordingHandle(fmt.Sprintf("c%d", i))
			s.registry.Register(s.ctx, "alice", h)
			s.registry.Deregister(s.ctx, "alice", h)
		}(i)
	}
	wg.Wait()

	flips := s.recorder.flipsFor("alice")
	s.Require().NotEmpty(flips)
	s.True(flips[0])
	s.False(flips[len(flips)-1])
	for i := 1; i < len(flips); i++ {
		s.NotEqual(flips[i-1], flips[i], "flip %d repeats", i)
	}
	s.False(s.registry.IsOnline("alice"))
	s.Equal(0, s.registry.OnlineUsers())
}
