package ws

import (
	"encoding/json"

	"github.com/mcoot/bullscows/internal/model"
)

// Subprotocol is the websocket subprotocol clients must offer
const Subprotocol = "bnc.v1"

// Intent is the type of a client request
type Intent string

const (
	IntentCreateRoom   Intent = "create-room"
	IntentJoinRoom     Intent = "join-room"
	IntentStartGame    Intent = "start-game"
	IntentLeaveRoom    Intent = "leave-room"
	IntentGetRoom      Intent = "get-room"
	IntentGameInit     Intent = "game-init"
	IntentSubmitSecret Intent = "submit-secret"
	IntentSubmitGuess  Intent = "submit-guess"
	IntentInviteFriend Intent = "invite-friend"
	IntentPing         Intent = "ping"
)

// responseType marks a frame as the answer to a request rather than a pushed event
const responseType = "response"

// Request is a client-to-server frame
type Request struct {
	ID      string          `json:"id"`
	Type    Intent          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response answers exactly one Request, correlated by ID
type Response struct {
	Type  string     `json:"type"`
	ID    string     `json:"id"`
	OK    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a rejected request.
// Resync tells the client its view is stale and it should refetch state.
type ErrorBody struct {
	Code    string          `json:"code"`
	Kind    model.ErrorKind `json:"kind"`
	Message string          `json:"message"`
	Resync  bool            `json:"resync"`
}

// RoomPayload targets an existing room
type RoomPayload struct {
	RoomCode model.RoomCode `json:"room_code"`
}

// SecretPayload carries a player's secret for the current round
type SecretPayload struct {
	RoomCode model.RoomCode `json:"room_code"`
	Secret   string         `json:"secret"`
}

// GuessPayload carries a guess at the opponent's secret
type GuessPayload struct {
	RoomCode model.RoomCode `json:"room_code"`
	Guess    string         `json:"guess"`
}

// InvitePayload names the friend to invite into a room
type InvitePayload struct {
	RoomCode model.RoomCode `json:"room_code"`
	FriendID model.PlayerID `json:"friend_id"`
}

// PongData is the reply to a ping
type PongData struct {
	PlayerID model.PlayerID `json:"player_id"`
	Time     string         `json:"time"`
}
