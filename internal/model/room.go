package model

import (
	"strings"
	"time"
)

// RoomCode is a short human-readable identifier for joining rooms
type RoomCode string

// Normalize returns the canonical form of a code typed by a user
func (c RoomCode) Normalize() RoomCode {
	return RoomCode(strings.ToUpper(strings.TrimSpace(string(c))))
}

// RoomStatus is the persisted lifecycle status of a room
type RoomStatus string

const (
	RoomStatusWaiting   RoomStatus = "waiting"   // Open for an opponent or waiting for the host to start
	RoomStatusActive    RoomStatus = "active"    // A live session exists
	RoomStatusCompleted RoomStatus = "completed" // Match ended on merit
	RoomStatusCancelled RoomStatus = "cancelled" // Match ended by forfeit
)

// IsFinished reports whether the status records a match outcome
func (s RoomStatus) IsFinished() bool {
	return s == RoomStatusCompleted || s == RoomStatusCancelled
}

// Difficulty controls turn pacing
type Difficulty string

const (
	DifficultyEasy Difficulty = "easy" // No turn timer
	DifficultyHard Difficulty = "hard" // Per-turn countdown
)

// RoomSettings are chosen by the host when creating a room
type RoomSettings struct {
	Format     int        `json:"format"`      // Best-of-N: 1, 3 or 5
	DigitCount int        `json:"digit_count"` // 3 or 4
	Difficulty Difficulty `json:"difficulty"`
}

// DefaultRoomSettings returns the settings used when the host omits them
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		Format:     3,
		DigitCount: 4,
		Difficulty: DifficultyEasy,
	}
}

// Validate checks the settings against the supported formats
func (s RoomSettings) Validate() error {
	switch s.Format {
	case 1, 3, 5:
	default:
		return ErrInvalidSettings
	}
	if s.DigitCount != 3 && s.DigitCount != 4 {
		return ErrInvalidSettings
	}
	if s.Difficulty != DifficultyEasy && s.Difficulty != DifficultyHard {
		return ErrInvalidSettings
	}
	return nil
}

// Room is the persisted record of a match lobby.
// It expires from the store after the retention window regardless of outcome.
type Room struct {
	Code       RoomCode     `json:"code"`
	HostID     PlayerID     `json:"host_id"`
	OpponentID PlayerID     `json:"opponent_id,omitempty"`
	Settings   RoomSettings `json:"settings"`
	Status     RoomStatus   `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// HasOpponent reports whether the second seat is taken
func (r *Room) HasOpponent() bool {
	return r.OpponentID != ""
}

// IsMember reports whether the player holds either seat
func (r *Room) IsMember(id PlayerID) bool {
	return id != "" && (r.HostID == id || r.OpponentID == id)
}

// RoomView is a room with display names attached, for read-only display
type RoomView struct {
	Room
	HostName     string `json:"host_name"`
	OpponentName string `json:"opponent_name,omitempty"`
}
