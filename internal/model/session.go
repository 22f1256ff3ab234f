package model

import "time"

// SessionStatus is the phase of a live match
type SessionStatus string

const (
	SessionLobby    SessionStatus = "LOBBY"     // Room exists, host has not started
	SessionSetup    SessionStatus = "SETUP"     // Waiting for both secrets
	SessionPlaying  SessionStatus = "PLAYING"   // Players alternate guesses
	SessionGameOver SessionStatus = "GAME_OVER" // Winner decided, awaiting teardown
)

// FinishReason explains how a match ended
type FinishReason string

const (
	FinishWin          FinishReason = "win"
	FinishDisconnect   FinishReason = "disconnect"
	FinishOpponentLeft FinishReason = "opponent-left"
)

// GuessEntry records one evaluated guess within a round
type GuessEntry struct {
	PlayerID PlayerID
	Guess    string
	Bulls    int
	Cows     int
	Misses   int
	Sequence int // 1-based, contiguous within a round
	At       time.Time
}

// Session is the authoritative in-memory state of one match.
// It is never persisted and is only mutated under its room's lock.
type Session struct {
	Code       RoomCode
	Status     SessionStatus
	Host       Participant
	Opponent   *Participant
	DigitCount int
	Difficulty Difficulty
	Format     int

	// Turn pacing
	TurnSeconds int
	TimerGen    uint64 // generation of the only timer whose callbacks are accepted

	Secrets       map[PlayerID]string
	CurrentTurn   PlayerID
	GuessLog      []GuessEntry
	GuessSequence int
	RoundNumber   int
	Scores        map[PlayerID]int
	RoundLoserID  PlayerID
	WinnerID      PlayerID
	FinishReason  FinishReason

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession allocates a session in setup for the given room and seats
func NewSession(room *Room, host, opponent Participant, turnSeconds int, now time.Time) *Session {
	return &Session{
		Code:        room.Code,
		Status:      SessionSetup,
		Host:        host,
		Opponent:    &opponent,
		DigitCount:  room.Settings.DigitCount,
		Difficulty:  room.Settings.Difficulty,
		Format:      room.Settings.Format,
		TurnSeconds: turnSeconds,
		Secrets:     make(map[PlayerID]string, 2),
		GuessLog:    []GuessEntry{},
		RoundNumber: 1,
		Scores: map[PlayerID]int{
			host.ID:     0,
			opponent.ID: 0,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PlayerIDs returns host then opponent
func (s *Session) PlayerIDs() []PlayerID {
	if s.Opponent == nil {
		return []PlayerID{s.Host.ID}
	}
	return []PlayerID{s.Host.ID, s.Opponent.ID}
}

// IsParticipant reports whether the player holds a seat in this session
func (s *Session) IsParticipant(id PlayerID) bool {
	if id == "" {
		return false
	}
	return s.Host.ID == id || (s.Opponent != nil && s.Opponent.ID == id)
}

// OtherPlayer returns the id of the seat not held by id
func (s *Session) OtherPlayer(id PlayerID) PlayerID {
	if s.Opponent == nil {
		return ""
	}
	if id == s.Host.ID {
		return s.Opponent.ID
	}
	return s.Host.ID
}

// Participant returns the seat for the given player, or nil
func (s *Session) Participant(id PlayerID) *Participant {
	if s.Host.ID == id {
		return &s.Host
	}
	if s.Opponent != nil && s.Opponent.ID == id {
		return s.Opponent
	}
	return nil
}

// IsHardMode reports whether turns are timed
func (s *Session) IsHardMode() bool {
	return s.Difficulty == DifficultyHard
}

// IsActive reports whether the match is under way and a drop would forfeit it
func (s *Session) IsActive() bool {
	return s.Status == SessionSetup || s.Status == SessionPlaying
}

// CopyScores returns a snapshot of the score map
func (s *Session) CopyScores() map[PlayerID]int {
	scores := make(map[PlayerID]int, len(s.Scores))
	for id, n := range s.Scores {
		scores[id] = n
	}
	return scores
}
