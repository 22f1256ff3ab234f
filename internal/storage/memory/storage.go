package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/bullscows/internal/dependencies/clock"
	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/storage"
)

// Storage is an in-memory implementation of both the room and account stores
type Storage struct {
	mu sync.RWMutex

	clock   clock.Clock
	roomTTL time.Duration

	rooms    map[model.RoomCode]roomRecord
	accounts map[model.PlayerID]model.Account
	friends  map[friendPair]struct{}
}

type roomRecord struct {
	room      model.Room
	expiresAt time.Time
}

type friendPair struct {
	a, b model.PlayerID
}

func newFriendPair(a, b model.PlayerID) friendPair {
	if b < a {
		a, b = b, a
	}
	return friendPair{a: a, b: b}
}

// New creates a new in-memory storage instance. A zero roomTTL disables expiry.
func New(clk clock.Clock, roomTTL time.Duration) *Storage {
	return &Storage{
		clock:    clk,
		roomTTL:  roomTTL,
		rooms:    make(map[model.RoomCode]roomRecord),
		accounts: make(map[model.PlayerID]model.Account),
		friends:  make(map[friendPair]struct{}),
	}
}

// Ensure Storage implements the interfaces
var (
	_ storage.RoomStore          = (*Storage)(nil)
	_ storage.AccountStore       = (*Storage)(nil)
	_ storage.AccountProvisioner = (*Storage)(nil)
)

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.liveRoom(room.Code); ok {
		return model.ErrRoomExists
	}
	rec := roomRecord{room: *room}
	if s.roomTTL > 0 {
		rec.expiresAt = s.clock.Now().Add(s.roomTTL)
	}
	s.rooms[room.Code] = rec
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.liveRoom(code)
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	room := rec.room
	return &room, nil
}

func (s *Storage) UpdateRoom(ctx context.Context, code model.RoomCode, fn func(*model.Room) error) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.liveRoom(code)
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	room := rec.room
	if err := fn(&room); err != nil {
		return nil, err
	}
	rec.room = room
	s.rooms[code] = rec
	result := room
	return &result, nil
}

func (s *Storage) DeleteRoom(ctx context.Context, code model.RoomCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
	return nil
}

// liveRoom returns the record for code, evicting it if expired. Caller holds the write lock.
func (s *Storage) liveRoom(code model.RoomCode) (roomRecord, bool) {
	rec, ok := s.rooms[code]
	if !ok {
		return roomRecord{}, false
	}
	if !rec.expiresAt.IsZero() && !s.clock.Now().Before(rec.expiresAt) {
		delete(s.rooms, code)
		return roomRecord{}, false
	}
	return rec, true
}

// Account operations

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = *account
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, id model.PlayerID) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return &account, nil
}

func (s *Storage) SetOnline(ctx context.Context, id model.PlayerID, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return model.ErrAccountNotFound
	}
	account.Online = online
	s.accounts[id] = account
	return nil
}

func (s *Storage) ResetPresence(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, account := range s.accounts {
		account.Online = false
		s.accounts[id] = account
	}
	return nil
}

// Friend operations

// AddFriendship records a mutual friendship
func (s *Storage) AddFriendship(ctx context.Context, a, b model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.friends[newFriendPair(a, b)] = struct{}{}
	return nil
}

func (s *Storage) AreFriends(ctx context.Context, a, b model.PlayerID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.friends[newFriendPair(a, b)]
	return ok, nil
}
