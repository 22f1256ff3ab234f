package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mcoot/bullscows/internal/ws"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintEvent outputs one pushed event; JSON output is one line per event
func (o *Output) PrintEvent(frame ws.Frame) {
	if o.format == "json" {
		data, _ := json.Marshal(frame)
		fmt.Fprintln(o.w, string(data))
		return
	}

	ts := frame.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	payload := strings.ReplaceAll(string(frame.Payload), "\n", " ")
	if len(payload) > 120 {
		payload = payload[:120] + "..."
	}
	fmt.Fprintf(o.w, "[%s] %s %s: %s\n", ts.Format("15:04:05"), frame.RoomCode, frame.Type, payload)
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case Room:
		o.printRoom(v)
	case Presence:
		o.printPresence(v)
	case GameView:
		o.printGameView(v)
	case HealthResult:
		o.printHealthResult(v)
	case TokenResult:
		fmt.Fprintln(o.w, v.Token)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// RoomSettings response type
type RoomSettings struct {
	Format     int    `json:"format"`
	DigitCount int    `json:"digit_count"`
	Difficulty string `json:"difficulty"`
}

// Room response type
type Room struct {
	Code         string       `json:"code"`
	HostID       string       `json:"host_id"`
	HostName     string       `json:"host_name"`
	OpponentID   string       `json:"opponent_id,omitempty"`
	OpponentName string       `json:"opponent_name,omitempty"`
	Settings     RoomSettings `json:"settings"`
	Status       string       `json:"status"`
}

// Presence response type
type Presence struct {
	PlayerID    string `json:"player_id"`
	Online      bool   `json:"online"`
	Connections int    `json:"connections"`
}

// GamePlayer response type
type GamePlayer struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
	Online      bool   `json:"online"`
	Ready       bool   `json:"ready"`
}

// GameGuess response type
type GameGuess struct {
	PlayerID string `json:"player_id"`
	Guess    string `json:"guess"`
	Bulls    int    `json:"bulls"`
	Cows     int    `json:"cows"`
	Sequence int    `json:"sequence"`
}

// GameView is a player's snapshot of a room or match
type GameView struct {
	RoomCode       string       `json:"room_code"`
	Status         string       `json:"status"`
	DigitCount     int          `json:"digit_count"`
	Difficulty     string       `json:"difficulty"`
	Format         int          `json:"format"`
	RoundNumber    int          `json:"round_number"`
	Players        []GamePlayer `json:"players"`
	CurrentTurn    string       `json:"current_turn,omitempty"`
	MySecret       string       `json:"my_secret,omitempty"`
	GuessLog       []GameGuess  `json:"guess_log"`
	TimerRemaining int          `json:"timer_remaining,omitempty"`
	WinnerID       string       `json:"winner_id,omitempty"`
}

// HealthResult response type
type HealthResult struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
	OnlinePlayers  int    `json:"online_players"`
}

// TokenResult is a freshly minted token
type TokenResult struct {
	Token     string    `json:"token"`
	PlayerID  string    `json:"player_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (o *Output) printPlayer(p Player) {
	fmt.Fprintf(o.w, "Player: %s (%s)\n", p.DisplayName, p.ID)
}

func (o *Output) printRoom(r Room) {
	fmt.Fprintf(o.w, "Room: %s\n", r.Code)
	fmt.Fprintf(o.w, "Status: %s\n", r.Status)
	fmt.Fprintf(o.w, "Format: best of %d, %d digits, %s\n", r.Settings.Format, r.Settings.DigitCount, r.Settings.Difficulty)
	fmt.Fprintf(o.w, "Host: %s (%s)\n", r.HostName, r.HostID)
	if r.OpponentID != "" {
		fmt.Fprintf(o.w, "Opponent: %s (%s)\n", r.OpponentName, r.OpponentID)
	} else {
		fmt.Fprintln(o.w, "Opponent: (waiting)")
	}
}

func (o *Output) printPresence(p Presence) {
	state := "offline"
	if p.Online {
		state = "online"
	}
	fmt.Fprintf(o.w, "%s is %s (%d connections)\n", p.PlayerID, state, p.Connections)
}

func (o *Output) printGameView(g GameView) {
	fmt.Fprintf(o.w, "Room: %s\n", g.RoomCode)
	fmt.Fprintf(o.w, "Status: %s\n", g.Status)
	if g.RoundNumber > 0 {
		fmt.Fprintf(o.w, "Round: %d (best of %d)\n", g.RoundNumber, g.Format)
	}
	for _, p := range g.Players {
		marks := []string{}
		if p.ID == g.CurrentTurn {
			marks = append(marks, "to move")
		}
		if p.Ready {
			marks = append(marks, "ready")
		}
		if !p.Online {
			marks = append(marks, "offline")
		}
		suffix := ""
		if len(marks) > 0 {
			suffix = " [" + strings.Join(marks, ", ") + "]"
		}
		fmt.Fprintf(o.w, "  %s (%s): %d%s\n", p.DisplayName, p.ID, p.Score, suffix)
	}
	if g.MySecret != "" {
		fmt.Fprintf(o.w, "Your secret: %s\n", g.MySecret)
	}
	if g.TimerRemaining > 0 {
		fmt.Fprintf(o.w, "Time left: %ds\n", g.TimerRemaining)
	}
	if len(g.GuessLog) > 0 {
		fmt.Fprintln(o.w, "Guesses:")
		for _, entry := range g.GuessLog {
			fmt.Fprintf(o.w, "  %d. %s %s -> %dB %dC\n", entry.Sequence, entry.PlayerID, entry.Guess, entry.Bulls, entry.Cows)
		}
	}
	if g.WinnerID != "" {
		fmt.Fprintf(o.w, "Winner: %s\n", g.WinnerID)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	fmt.Fprintf(o.w, "Active sessions: %d\n", h.ActiveSessions)
	fmt.Fprintf(o.w, "Online players: %d\n", h.OnlinePlayers)
}
