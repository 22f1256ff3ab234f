package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeInvalidLength    = "INVALID_LENGTH"
	CodeNonDigit         = "NON_DIGIT"
	CodeRepeatedDigit    = "REPEATED_DIGIT"
	CodeInvalidSettings  = "INVALID_SETTINGS"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeNotHost          = "NOT_HOST"
	CodeNotYourTurn      = "NOT_YOUR_TURN"
	CodeAlreadySubmitted = "ALREADY_SUBMITTED"
	CodeNotInGame        = "NOT_IN_GAME"
	CodeWrongPhase       = "WRONG_PHASE"
	CodeRoomNotAvailable = "ROOM_NOT_AVAILABLE"
	CodeRoomFull         = "ROOM_FULL"
	CodeSelfJoin         = "SELF_JOIN"
	CodeNotInRoom        = "NOT_IN_ROOM"
	CodeOpponentMissing  = "OPPONENT_MISSING"
	CodeOpponentOffline  = "OPPONENT_OFFLINE"
	CodeGameInProgress   = "GAME_IN_PROGRESS"
	CodeNotFriends       = "NOT_FRIENDS"
	CodePlayerNotFound   = "PLAYER_NOT_FOUND"
	CodeRoomNotFound     = "ROOM_NOT_FOUND"
	CodeGameNotFound     = "GAME_NOT_FOUND"
	CodeInternalError    = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	status, apiErr := Describe(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: apiErr})
}

// Describe maps an error to its HTTP status and client-facing code.
// The websocket transport reuses the codes and ignores the status.
func Describe(err error) (int, APIError) {
	he := toHTTPError(err)
	return he.status, he.apiError
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Validation
	case errors.Is(err, model.ErrInvalidLength):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidLength, "Wrong number of digits"}}
	case errors.Is(err, model.ErrNonDigit):
		return &httpError{http.StatusBadRequest, APIError{CodeNonDigit, "Only digits 0-9 are allowed"}}
	case errors.Is(err, model.ErrRepeatedDigit):
		return &httpError{http.StatusBadRequest, APIError{CodeRepeatedDigit, "Digits must not repeat"}}
	case errors.Is(err, model.ErrInvalidSettings):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidSettings, "Format must be 1, 3 or 5 and digit count 3 or 4"}}
	case errors.Is(err, model.ErrInvalidMessage):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Malformed message"}}

	// Preconditions
	case errors.Is(err, model.ErrNotYourTurn):
		return &httpError{http.StatusForbidden, APIError{CodeNotYourTurn, "Not your turn"}}
	case errors.Is(err, model.ErrAlreadySubmitted):
		return &httpError{http.StatusConflict, APIError{CodeAlreadySubmitted, "Secret already submitted"}}
	case errors.Is(err, model.ErrNotInGame):
		return &httpError{http.StatusForbidden, APIError{CodeNotInGame, "You are not playing in this game"}}
	case errors.Is(err, model.ErrWrongPhase):
		return &httpError{http.StatusConflict, APIError{CodeWrongPhase, "Not allowed in the current phase"}}
	case errors.Is(err, model.ErrRoomNotAvailable):
		return &httpError{http.StatusConflict, APIError{CodeRoomNotAvailable, "Room is not accepting players"}}
	case errors.Is(err, model.ErrRoomFull):
		return &httpError{http.StatusConflict, APIError{CodeRoomFull, "Room is full"}}
	case errors.Is(err, model.ErrSelfJoin):
		return &httpError{http.StatusConflict, APIError{CodeSelfJoin, "You cannot join your own room"}}
	case errors.Is(err, model.ErrNotHost):
		return &httpError{http.StatusForbidden, APIError{CodeNotHost, "Only the host can perform this action"}}
	case errors.Is(err, model.ErrNotInRoom):
		return &httpError{http.StatusForbidden, APIError{CodeNotInRoom, "You are not in this room"}}
	case errors.Is(err, model.ErrOpponentMissing):
		return &httpError{http.StatusConflict, APIError{CodeOpponentMissing, "Waiting for an opponent"}}
	case errors.Is(err, model.ErrOpponentOffline):
		return &httpError{http.StatusConflict, APIError{CodeOpponentOffline, "Both players must be connected"}}
	case errors.Is(err, model.ErrGameInProgress):
		return &httpError{http.StatusConflict, APIError{CodeGameInProgress, "Game is in progress"}}
	case errors.Is(err, model.ErrNotFriends):
		return &httpError{http.StatusForbidden, APIError{CodeNotFriends, "You can only invite friends"}}

	// Not found
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}
	case errors.Is(err, model.ErrSessionNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeGameNotFound, "Game not found"}}
	case errors.Is(err, model.ErrAccountNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}

	// Auth
	case errors.Is(err, auth.ErrMissingToken):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
	case errors.Is(err, auth.ErrInvalidToken):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired token"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
