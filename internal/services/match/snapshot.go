package match

import (
	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/services/rounds"
)

// PlayerView is one seat as seen by a participant
type PlayerView struct {
	ID          model.PlayerID `json:"id"`
	DisplayName string         `json:"display_name"`
	Score       int            `json:"score"`
	Ready       bool           `json:"ready"` // secret submitted this round
	Online      bool           `json:"online"`
}

// GuessView is one entry of the public guess log
type GuessView struct {
	PlayerID model.PlayerID `json:"player_id"`
	Guess    string         `json:"guess"`
	Bulls    int            `json:"bulls"`
	Cows     int            `json:"cows"`
	Misses   int            `json:"misses"`
	Sequence int            `json:"sequence"`
}

// Snapshot is the session state sent to one participant. It carries that
// participant's own secret and never the opponent's.
type Snapshot struct {
	RoomCode       model.RoomCode      `json:"room_code"`
	Status         model.SessionStatus `json:"status"`
	DigitCount     int                 `json:"digit_count"`
	Difficulty     model.Difficulty    `json:"difficulty"`
	Format         int                 `json:"format"`
	WinsNeeded     int                 `json:"wins_needed"`
	RoundNumber    int                 `json:"round_number"`
	Players        []PlayerView        `json:"players"`
	CurrentTurn    model.PlayerID      `json:"current_turn,omitempty"`
	MySecret       string              `json:"my_secret,omitempty"`
	GuessLog       []GuessView         `json:"guess_log"`
	TimerRemaining int                 `json:"timer_remaining,omitempty"`
	WinnerID       model.PlayerID      `json:"winner_id,omitempty"`
	FinishReason   model.FinishReason  `json:"finish_reason,omitempty"`
}

// buildSnapshot sanitises s for viewer. Called under the room lock.
func buildSnapshot(s *model.Session, viewer model.PlayerID, online func(model.PlayerID) bool, timerRemaining int) *Snapshot {
	snap := &Snapshot{
		RoomCode:       s.Code,
		Status:         s.Status,
		DigitCount:     s.DigitCount,
		Difficulty:     s.Difficulty,
		Format:         s.Format,
		WinsNeeded:     rounds.WinsNeeded(s.Format),
		RoundNumber:    s.RoundNumber,
		CurrentTurn:    s.CurrentTurn,
		MySecret:       s.Secrets[viewer],
		GuessLog:       make([]GuessView, 0, len(s.GuessLog)),
		TimerRemaining: timerRemaining,
		WinnerID:       s.WinnerID,
		FinishReason:   s.FinishReason,
	}

	for _, id := range s.PlayerIDs() {
		p := s.Participant(id)
		_, ready := s.Secrets[id]
		snap.Players = append(snap.Players, PlayerView{
			ID:          id,
			DisplayName: p.DisplayName,
			Score:       s.Scores[id],
			Ready:       ready,
			Online:      online(id),
		})
	}

	for _, g := range s.GuessLog {
		snap.GuessLog = append(snap.GuessLog, GuessView{
			PlayerID: g.PlayerID,
			Guess:    g.Guess,
			Bulls:    g.Bulls,
			Cows:     g.Cows,
			Misses:   g.Misses,
			Sequence: g.Sequence,
		})
	}
	return snap
}

// lobbySnapshot describes a room whose match has not been started
func lobbySnapshot(view *model.RoomView, online func(model.PlayerID) bool) *Snapshot {
	snap := &Snapshot{
		RoomCode:    view.Code,
		Status:      model.SessionLobby,
		DigitCount:  view.Settings.DigitCount,
		Difficulty:  view.Settings.Difficulty,
		Format:      view.Settings.Format,
		WinsNeeded:  rounds.WinsNeeded(view.Settings.Format),
		RoundNumber: 0,
		GuessLog:    []GuessView{},
		Players: []PlayerView{
			{ID: view.HostID, DisplayName: view.HostName, Online: online(view.HostID)},
		},
	}
	if view.HasOpponent() {
		snap.Players = append(snap.Players, PlayerView{
			ID:          view.OpponentID,
			DisplayName: view.OpponentName,
			Online:      online(view.OpponentID),
		})
	}
	return snap
}
