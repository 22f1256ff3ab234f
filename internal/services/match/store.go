package match

import (
	"sync"

	"github.com/mcoot/bullscows/internal/model"
)

// Store holds the live session of every room in this process.
// All reads and writes of a session happen while holding its room lock.
type Store struct {
	mu       sync.Mutex
	locks    map[model.RoomCode]*roomLock
	sessions map[model.RoomCode]*model.Session
	seats    map[model.PlayerID]model.RoomCode
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore creates an empty session store
func NewStore() *Store {
	return &Store{
		locks:    make(map[model.RoomCode]*roomLock),
		sessions: make(map[model.RoomCode]*model.Session),
		seats:    make(map[model.PlayerID]model.RoomCode),
	}
}

// Lock acquires the room's lock and returns the matching unlock
func (s *Store) Lock(code model.RoomCode) func() {
	s.mu.Lock()
	l, ok := s.locks[code]
	if !ok {
		l = &roomLock{}
		s.locks[code] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, code)
		}
		s.mu.Unlock()
	}
}

// With runs fn on the room's session under its lock
func (s *Store) With(code model.RoomCode, fn func(*model.Session) error) error {
	unlock := s.Lock(code)
	defer unlock()

	session := s.Get(code)
	if session == nil {
		return model.ErrSessionNotFound
	}
	return fn(session)
}

// Get returns the session for code, or nil. Callers hold the room lock.
func (s *Store) Get(code model.RoomCode) *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[code]
}

// Put stores a session. Callers hold the room lock.
func (s *Store) Put(session *model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Code] = session
	s.seats[session.Host.ID] = session.Code
	if session.Opponent != nil {
		s.seats[session.Opponent.ID] = session.Code
	}
}

// SeatOf returns the room of the most recent session the player was seated in
func (s *Store) SeatOf(playerID model.PlayerID) (model.RoomCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.seats[playerID]
	return code, ok
}

// DeleteIf removes the session only if it is still the one given
func (s *Store) DeleteIf(code model.RoomCode, session *model.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[code] != session {
		return false
	}
	delete(s.sessions, code)
	for id, seat := range s.seats {
		if seat == code {
			delete(s.seats, id)
		}
	}
	return true
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Clear drops every session
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[model.RoomCode]*model.Session)
	s.seats = make(map[model.PlayerID]model.RoomCode)
}
