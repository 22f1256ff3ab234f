package model

// PlayerID uniquely identifies an account across the system
type PlayerID string

// Account is the read-only view of a user owned by the external account store
type Account struct {
	ID          PlayerID
	DisplayName string
	Online      bool // derived from live connections, mirrored for other services
}

// Participant is one of the two seats in a live session
type Participant struct {
	ID          PlayerID
	DisplayName string
	ConnID      string // connection handle resolved when the match started
}
