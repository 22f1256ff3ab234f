package response

import (
	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/services/auth"
)

// Player represents a player in API responses
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// PlayerFromIdentity converts an authenticated identity to a response Player
func PlayerFromIdentity(identity *auth.Identity) Player {
	return Player{
		ID:          string(identity.PlayerID),
		DisplayName: identity.DisplayName,
	}
}

// Presence reports whether a player currently has open connections
type Presence struct {
	PlayerID    string `json:"player_id"`
	Online      bool   `json:"online"`
	Connections int    `json:"connections"`
}

// PresenceFor builds a Presence response from a live connection count
func PresenceFor(playerID model.PlayerID, connections int) Presence {
	return Presence{
		PlayerID:    string(playerID),
		Online:      connections > 0,
		Connections: connections,
	}
}

// Health is the response for the health endpoint
type Health struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
	OnlinePlayers  int    `json:"online_players"`
}
