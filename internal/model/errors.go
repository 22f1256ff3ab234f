package model

import "errors"

// Validation errors: malformed input, nothing is mutated
var (
	ErrInvalidLength   = errors.New("wrong number of digits")
	ErrNonDigit        = errors.New("only digits 0-9 are allowed")
	ErrRepeatedDigit   = errors.New("digits must not repeat")
	ErrInvalidSettings = errors.New("invalid room settings")
	ErrInvalidMessage  = errors.New("invalid message")
)

// Precondition errors: well-formed request arriving at the wrong time or from the wrong player
var (
	ErrNotYourTurn      = errors.New("not this player's turn")
	ErrAlreadySubmitted = errors.New("secret already submitted")
	ErrNotInGame        = errors.New("player is not in this game")
	ErrWrongPhase       = errors.New("game is not in the expected phase")
	ErrRoomNotAvailable = errors.New("room is not accepting players")
	ErrRoomFull         = errors.New("room is full")
	ErrSelfJoin         = errors.New("host cannot join own room")
	ErrNotHost          = errors.New("player is not the host")
	ErrNotInRoom        = errors.New("player is not in room")
	ErrOpponentMissing  = errors.New("room has no opponent")
	ErrOpponentOffline  = errors.New("both players must be connected")
	ErrGameInProgress   = errors.New("game is in progress")
	ErrNotFriends       = errors.New("players are not friends")
)

// Not-found errors: the client should resynchronise
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrSessionNotFound = errors.New("game session not found")
	ErrAccountNotFound = errors.New("account not found")
)

// Storage-level conflict, retried internally
var ErrRoomExists = errors.New("room code already in use")

// ErrorKind is the taxonomy an error belongs to
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindPrecondition ErrorKind = "precondition"
	KindNotFound     ErrorKind = "not_found"
	KindInternal     ErrorKind = "internal"
)

var (
	validationErrors = []error{
		ErrInvalidLength, ErrNonDigit, ErrRepeatedDigit, ErrInvalidSettings, ErrInvalidMessage,
	}
	preconditionErrors = []error{
		ErrNotYourTurn, ErrAlreadySubmitted, ErrNotInGame, ErrWrongPhase, ErrRoomNotAvailable,
		ErrRoomFull, ErrSelfJoin, ErrNotHost, ErrNotInRoom, ErrOpponentMissing, ErrOpponentOffline,
		ErrGameInProgress, ErrNotFriends,
	}
	notFoundErrors = []error{
		ErrRoomNotFound, ErrSessionNotFound, ErrAccountNotFound,
	}
)

// KindOf classifies an error; unknown errors are internal
func KindOf(err error) ErrorKind {
	switch {
	case isAny(err, validationErrors):
		return KindValidation
	case isAny(err, preconditionErrors):
		return KindPrecondition
	case isAny(err, notFoundErrors):
		return KindNotFound
	default:
		return KindInternal
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
