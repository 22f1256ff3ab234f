package model

import "time"

// EventType identifies a server-pushed notification
type EventType string

const (
	// Lobby events
	EventPlayerJoined EventType = "player-joined"
	EventPlayerLeft   EventType = "player-left"
	EventRoomClosed   EventType = "room-closed"
	EventRoomInvite   EventType = "room-invite"

	// Match events
	EventGameStarted   EventType = "game-started"
	EventOpponentReady EventType = "opponent-ready"
	EventMatchStart    EventType = "match-start"
	EventTurnResult    EventType = "turn-result"
	EventTimerTick     EventType = "timer-tick"
	EventTurnSkipped   EventType = "turn-skipped"
	EventRoundOver     EventType = "round-over"
	EventGameOver      EventType = "game-over"
)

// Event is a fire-and-forget notification to one or both participants
type Event struct {
	Type      EventType `json:"type"`
	RoomCode  RoomCode  `json:"room"`
	Timestamp time.Time `json:"ts"`
	Payload   any       `json:"payload,omitempty"`
}

// PlayerJoinedPayload is sent to the host when an opponent takes the second seat
type PlayerJoinedPayload struct {
	PlayerID    PlayerID `json:"player_id"`
	DisplayName string   `json:"display_name"`
}

// PlayerLeftPayload is sent to the host when the opponent leaves before the start
type PlayerLeftPayload struct {
	PlayerID    PlayerID `json:"player_id"`
	DisplayName string   `json:"display_name"`
}

// RoomClosedPayload is sent to the opponent when the host abandons the room pre-start
type RoomClosedPayload struct {
	Reason string `json:"reason"`
}

// RoomInvitePayload is pushed to an online friend
type RoomInvitePayload struct {
	FromID   PlayerID     `json:"from_id"`
	FromName string       `json:"from_name"`
	Settings RoomSettings `json:"settings"`
}

// GameStartedPayload announces that the host started the match and secrets are due
type GameStartedPayload struct {
	HostID      PlayerID   `json:"host_id"`
	OpponentID  PlayerID   `json:"opponent_id"`
	RoundNumber int        `json:"round_number"`
	DigitCount  int        `json:"digit_count"`
	Format      int        `json:"format"`
	Difficulty  Difficulty `json:"difficulty"`
}

// OpponentReadyPayload tells a player their opponent locked in a secret
type OpponentReadyPayload struct {
	PlayerID PlayerID `json:"player_id"`
}

// MatchStartPayload opens a round of play
type MatchStartPayload struct {
	FirstTurn    PlayerID `json:"first_turn"`
	RoundNumber  int      `json:"round_number"`
	TimerSeconds int      `json:"timer_seconds,omitempty"` // hard mode only
}

// TurnResultPayload carries an evaluated guess and who moves next
type TurnResultPayload struct {
	PlayerID PlayerID `json:"player_id"`
	Guess    string   `json:"guess"`
	Bulls    int      `json:"bulls"`
	Cows     int      `json:"cows"`
	Misses   int      `json:"misses"`
	Sequence int      `json:"sequence"`
	NextTurn PlayerID `json:"next_turn,omitempty"`
}

// TimerTickPayload reports the countdown for the current turn
type TimerTickPayload struct {
	Remaining   int      `json:"remaining"`
	CurrentTurn PlayerID `json:"current_turn"`
}

// TurnSkippedPayload reports a turn lost to the timer
type TurnSkippedPayload struct {
	SkippedID    PlayerID `json:"skipped_id"`
	NextTurn     PlayerID `json:"next_turn"`
	TimerSeconds int      `json:"timer_seconds"`
}

// RoundOverPayload closes a round that did not decide the match
type RoundOverPayload struct {
	WinnerID    PlayerID            `json:"winner_id"`
	Scores      map[PlayerID]int    `json:"scores"`
	NextRound   int                 `json:"next_round"`
	NextOpener  PlayerID            `json:"next_opener"`
	Secrets     map[PlayerID]string `json:"secrets"`
	RoundNumber int                 `json:"round_number"`
}

// GameOverPayload ends the match
type GameOverPayload struct {
	WinnerID   PlayerID            `json:"winner_id"`
	WinnerName string              `json:"winner_name"`
	Scores     map[PlayerID]int    `json:"scores"`
	Reason     FinishReason        `json:"reason"`
	Secrets    map[PlayerID]string `json:"secrets,omitempty"`
}
