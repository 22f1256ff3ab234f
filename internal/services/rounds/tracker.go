package rounds

import (
	"github.com/mcoot/bullscows/internal/dependencies/random"
	"github.com/mcoot/bullscows/internal/model"
)

// WinsNeeded returns the round wins required to take a best-of-format match
func WinsNeeded(format int) int {
	return (format + 1) / 2
}

// Verdict describes what a round win did to the match
type Verdict struct {
	MatchOver   bool
	WinnerID    model.PlayerID
	LoserID     model.PlayerID
	Scores      map[model.PlayerID]int
	RoundNumber int // the round just finished
	NextRound   int // zero when the match is over
	Secrets     map[model.PlayerID]string
}

// Tracker applies best-of-N scoring to a session
type Tracker struct {
	random random.Random
}

// New creates a new Tracker
func New(random random.Random) *Tracker {
	return &Tracker{random: random}
}

// RecordRoundWin credits winnerID with the current round. If that reaches the
// wins needed the session moves to game over; otherwise it resets for the next
// round in setup with the loser due to open.
func (t *Tracker) RecordRoundWin(s *model.Session, winnerID model.PlayerID) Verdict {
	s.Scores[winnerID]++

	v := Verdict{
		WinnerID:    winnerID,
		LoserID:     s.OtherPlayer(winnerID),
		RoundNumber: s.RoundNumber,
		Secrets:     make(map[model.PlayerID]string, len(s.Secrets)),
	}
	for id, secret := range s.Secrets {
		v.Secrets[id] = secret
	}

	if s.Scores[winnerID] >= WinsNeeded(s.Format) {
		s.Status = model.SessionGameOver
		s.WinnerID = winnerID
		s.FinishReason = model.FinishWin
		s.CurrentTurn = ""
		v.MatchOver = true
		v.Scores = s.CopyScores()
		return v
	}

	s.RoundNumber++
	s.Status = model.SessionSetup
	s.Secrets = make(map[model.PlayerID]string, 2)
	s.GuessLog = []model.GuessEntry{}
	s.GuessSequence = 0
	s.CurrentTurn = ""
	s.RoundLoserID = v.LoserID

	v.NextRound = s.RoundNumber
	v.Scores = s.CopyScores()
	return v
}

// FirstTurn picks who opens the current round and consumes RoundLoserID.
// Round one is a fair coin flip between the two seats.
func (t *Tracker) FirstTurn(s *model.Session) model.PlayerID {
	if s.RoundLoserID != "" {
		opener := s.RoundLoserID
		s.RoundLoserID = ""
		return opener
	}
	return random.Pick(t.random, s.PlayerIDs()...)
}
