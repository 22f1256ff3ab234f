package match

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mcoot/bullscows/internal/dependencies/clock"
	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/services/evaluator"
	"github.com/mcoot/bullscows/internal/services/presence"
	"github.com/mcoot/bullscows/internal/services/room"
	"github.com/mcoot/bullscows/internal/services/rounds"
	"github.com/mcoot/bullscows/internal/services/timer"
	"github.com/mcoot/bullscows/internal/storage"
)

// Config controls match pacing
type Config struct {
	// TurnSeconds is the hard-mode countdown per turn
	TurnSeconds int
	// GameOverGrace is how long a finished session lingers before deletion
	GameOverGrace time.Duration
}

// DefaultConfig returns the standard pacing
func DefaultConfig() Config {
	return Config{
		TurnSeconds:   30,
		GameOverGrace: 5 * time.Second,
	}
}

// Presence is the slice of the presence registry the match engine needs
type Presence interface {
	IsOnline(userID model.PlayerID) bool
	AnyConnectionFor(userID model.PlayerID) presence.Handle
	SendToUsers(event model.Event, userIDs ...model.PlayerID)
}

// Controller runs the match state machine for every room.
// Each intent takes the room lock for its whole mutation and pushes the
// resulting events before releasing it, so every participant sees a room's
// events in mutation order. Room store writes happen after the lock is released.
type Controller struct {
	cfg      Config
	store    *Store
	rooms    *room.Controller
	accounts storage.AccountStore
	presence Presence
	timers   *timer.Manager
	tracker  *rounds.Tracker
	clock    clock.Clock
	logger   *slog.Logger
}

// NewController creates a new match Controller
func NewController(
	cfg Config,
	store *Store,
	rooms *room.Controller,
	accounts storage.AccountStore,
	presence Presence,
	timers *timer.Manager,
	tracker *rounds.Tracker,
	clock clock.Clock,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		cfg:      cfg,
		store:    store,
		rooms:    rooms,
		accounts: accounts,
		presence: presence,
		timers:   timers,
		tracker:  tracker,
		clock:    clock,
		logger:   logger.With(slog.String("component", "match")),
	}
}

// Lobby intents

// CreateRoom opens a waiting room hosted by hostID. A player seated in a live
// match cannot open another room.
func (c *Controller) CreateRoom(ctx context.Context, hostID model.PlayerID, settings model.RoomSettings) (*model.RoomView, error) {
	if c.inActiveMatch(hostID) {
		return nil, model.ErrGameInProgress
	}
	created, err := c.rooms.CreateRoom(ctx, hostID, settings)
	if err != nil {
		return nil, err
	}
	return c.rooms.GetRoomView(ctx, created.Code)
}

// Join seats the player in the room and tells the host
func (c *Controller) Join(ctx context.Context, code model.RoomCode, playerID model.PlayerID) (*model.RoomView, error) {
	if c.inActiveMatch(playerID) {
		return nil, model.ErrGameInProgress
	}
	view, err := c.rooms.JoinRoom(ctx, code, playerID)
	if err != nil {
		return nil, err
	}
	c.notify(code, model.EventPlayerJoined, model.PlayerJoinedPayload{
		PlayerID:    playerID,
		DisplayName: view.OpponentName,
	}, view.HostID)
	return view, nil
}

// Invite pushes a room invite to a friend who is online
func (c *Controller) Invite(ctx context.Context, code model.RoomCode, fromID, toID model.PlayerID) error {
	view, err := c.rooms.GetRoomView(ctx, code)
	if err != nil {
		return err
	}
	if !view.IsMember(fromID) {
		return model.ErrNotInRoom
	}
	friends, err := c.accounts.AreFriends(ctx, fromID, toID)
	if err != nil {
		return err
	}
	if !friends {
		return model.ErrNotFriends
	}
	if !c.presence.IsOnline(toID) {
		return model.ErrOpponentOffline
	}

	fromName := view.HostName
	if fromID == view.OpponentID {
		fromName = view.OpponentName
	}
	c.notify(code, model.EventRoomInvite, model.RoomInvitePayload{
		FromID:   fromID,
		FromName: fromName,
		Settings: view.Settings,
	}, toID)
	return nil
}

// Start moves a room from lobby to setup. Only the host may start, and both
// players must hold an open connection.
func (c *Controller) Start(ctx context.Context, code model.RoomCode, hostID model.PlayerID) error {
	view, err := c.rooms.GetRoomView(ctx, code)
	if err != nil {
		return err
	}
	if view.HostID != hostID {
		return model.ErrNotHost
	}
	if !view.HasOpponent() {
		return model.ErrOpponentMissing
	}
	if view.Status != model.RoomStatusWaiting {
		return model.ErrRoomNotAvailable
	}
	if c.inActiveMatch(view.HostID) || c.inActiveMatch(view.OpponentID) {
		return model.ErrGameInProgress
	}
	hostConn := c.presence.AnyConnectionFor(view.HostID)
	opponentConn := c.presence.AnyConnectionFor(view.OpponentID)
	if hostConn == nil || opponentConn == nil {
		return model.ErrOpponentOffline
	}

	unlock := c.store.Lock(code)
	defer unlock()
	if existing := c.store.Get(code); existing != nil && existing.IsActive() {
		return model.ErrGameInProgress
	}
	// Claim the room under the lock; departures also hold it, so the seats
	// read above cannot change before the session exists.
	if err := c.rooms.MarkActive(ctx, code, view.HostID, view.OpponentID); err != nil {
		return err
	}
	session := model.NewSession(&view.Room,
		model.Participant{ID: view.HostID, DisplayName: view.HostName, ConnID: hostConn.ID()},
		model.Participant{ID: view.OpponentID, DisplayName: view.OpponentName, ConnID: opponentConn.ID()},
		c.cfg.TurnSeconds,
		c.clock.Now(),
	)
	c.store.Put(session)
	c.emit(session, model.EventGameStarted, model.GameStartedPayload{
		HostID:      session.Host.ID,
		OpponentID:  session.Opponent.ID,
		RoundNumber: session.RoundNumber,
		DigitCount:  session.DigitCount,
		Format:      session.Format,
		Difficulty:  session.Difficulty,
	})

	c.logger.Info("match started",
		slog.String("code", string(code)),
		slog.String("host_id", string(view.HostID)),
		slog.String("opponent_id", string(view.OpponentID)),
	)
	return nil
}

// Gameplay intents

// GameInit returns the caller's view of the room's match. Rooms that have not
// been started report the lobby state.
func (c *Controller) GameInit(ctx context.Context, code model.RoomCode, playerID model.PlayerID) (*Snapshot, error) {
	snap, err := c.Snapshot(code, playerID)
	if !errors.Is(err, model.ErrSessionNotFound) {
		return snap, err
	}

	view, err := c.rooms.GetRoomView(ctx, code)
	if err != nil {
		return nil, err
	}
	if !view.IsMember(playerID) {
		return nil, model.ErrNotInRoom
	}
	return lobbySnapshot(view, c.presence.IsOnline), nil
}

// Snapshot returns the live session as seen by playerID
func (c *Controller) Snapshot(code model.RoomCode, playerID model.PlayerID) (*Snapshot, error) {
	var snap *Snapshot
	err := c.store.With(code, func(s *model.Session) error {
		if !s.IsParticipant(playerID) {
			return model.ErrNotInGame
		}
		remaining := 0
		if s.IsHardMode() && s.Status == model.SessionPlaying {
			remaining, _ = c.timers.Remaining(timerKey(code))
		}
		snap = buildSnapshot(s, playerID, c.presence.IsOnline, remaining)
		return nil
	})
	return snap, err
}

// SubmitSecret locks in a player's secret for the current round. Once both
// secrets are in, play begins.
func (c *Controller) SubmitSecret(ctx context.Context, code model.RoomCode, playerID model.PlayerID, secret string) error {
	return c.store.With(code, func(s *model.Session) error {
		if !s.IsParticipant(playerID) {
			return model.ErrNotInGame
		}
		if s.Status != model.SessionSetup {
			return model.ErrWrongPhase
		}
		if err := evaluator.Validate(secret, s.DigitCount); err != nil {
			return err
		}
		if _, ok := s.Secrets[playerID]; ok {
			return model.ErrAlreadySubmitted
		}

		s.Secrets[playerID] = secret
		s.UpdatedAt = c.clock.Now()
		c.emit(s, model.EventOpponentReady, model.OpponentReadyPayload{PlayerID: playerID}, s.OtherPlayer(playerID))

		if len(s.Secrets) == 2 {
			c.beginPlay(s)
		}
		return nil
	})
}

// SubmitGuess evaluates a guess from the player whose turn it is
func (c *Controller) SubmitGuess(ctx context.Context, code model.RoomCode, playerID model.PlayerID, guess string) (evaluator.Result, error) {
	var result evaluator.Result
	var matchOver bool

	err := c.store.With(code, func(s *model.Session) error {
		if !s.IsParticipant(playerID) {
			return model.ErrNotInGame
		}
		if s.Status != model.SessionPlaying {
			return model.ErrWrongPhase
		}
		if s.CurrentTurn != playerID {
			return model.ErrNotYourTurn
		}

		other := s.OtherPlayer(playerID)
		res, err := evaluator.Evaluate(s.Secrets[other], guess, s.DigitCount)
		if err != nil {
			return err
		}
		result = res

		now := c.clock.Now()
		s.GuessSequence++
		entry := model.GuessEntry{
			PlayerID: playerID,
			Guess:    guess,
			Bulls:    res.Bulls,
			Cows:     res.Cows,
			Misses:   res.Misses,
			Sequence: s.GuessSequence,
			At:       now,
		}
		s.GuessLog = append(s.GuessLog, entry)
		s.UpdatedAt = now

		turnResult := model.TurnResultPayload{
			PlayerID: playerID,
			Guess:    guess,
			Bulls:    res.Bulls,
			Cows:     res.Cows,
			Misses:   res.Misses,
			Sequence: entry.Sequence,
		}

		if !res.IsWin(s.DigitCount) {
			s.CurrentTurn = other
			if s.IsHardMode() {
				c.startTurnTimer(s)
			}
			turnResult.NextTurn = other
			c.emit(s, model.EventTurnResult, turnResult)
			return nil
		}

		c.stopTurnTimer(s)
		c.emit(s, model.EventTurnResult, turnResult)

		verdict := c.tracker.RecordRoundWin(s, playerID)
		if verdict.MatchOver {
			matchOver = true
			c.announceGameOver(s, verdict.Secrets)
			return nil
		}

		c.emit(s, model.EventRoundOver, model.RoundOverPayload{
			WinnerID:    verdict.WinnerID,
			Scores:      verdict.Scores,
			NextRound:   verdict.NextRound,
			NextOpener:  s.RoundLoserID,
			Secrets:     verdict.Secrets,
			RoundNumber: verdict.RoundNumber,
		})
		c.logger.Info("round over",
			slog.String("code", string(code)),
			slog.String("winner_id", string(verdict.WinnerID)),
			slog.Int("round", verdict.RoundNumber),
		)
		return nil
	})
	if err != nil {
		return evaluator.Result{}, err
	}

	if matchOver {
		c.markFinished(ctx, code, model.RoomStatusCompleted)
	}
	return result, nil
}

// Departures

// Leave handles an explicit leave-room. During a live match it forfeits the
// match to the other player; otherwise it leaves the room record.
func (c *Controller) Leave(ctx context.Context, code model.RoomCode, playerID model.PlayerID) error {
	forfeited, err := c.depart(ctx, code, playerID, model.FinishOpponentLeft, true)
	if !forfeited {
		return err
	}
	c.markFinished(ctx, code, model.RoomStatusCancelled)
	return c.leaveRoom(ctx, code, playerID)
}

// HandleDisconnect resolves a player's last connection dropping. A live match
// is forfeited; a room that has not started is left as if by leave-room.
func (c *Controller) HandleDisconnect(ctx context.Context, playerID model.PlayerID) {
	if c.presence.IsOnline(playerID) {
		return
	}
	// The live match is found through its session, not the lobby index, which
	// only tracks the player's latest room.
	if code, ok := c.store.SeatOf(playerID); ok && c.forfeit(code, playerID, model.FinishDisconnect) {
		c.markFinished(ctx, code, model.RoomStatusCancelled)
		return
	}
	code, ok := c.rooms.RoomFor(playerID)
	if !ok {
		return
	}

	forfeited, err := c.depart(ctx, code, playerID, model.FinishDisconnect, false)
	if forfeited {
		c.markFinished(ctx, code, model.RoomStatusCancelled)
		return
	}
	if err != nil && !errors.Is(err, model.ErrRoomNotFound) {
		c.logger.Warn("failed to leave room on disconnect",
			slog.String("code", string(code)),
			slog.String("player_id", string(playerID)),
			slog.String("error", err.Error()),
		)
	}
}

// Shutdown stops every timer and drops every live session
func (c *Controller) Shutdown() {
	c.timers.StopAll()
	c.store.Clear()
	c.logger.Info("match engine stopped")
}

// ActiveSessions returns the number of live sessions
func (c *Controller) ActiveSessions() int {
	return c.store.Len()
}

// forfeit ends a live match in favour of the player who did not leave. It
// reports whether this call ended the match; a match that is already over is
// left untouched.
func (c *Controller) forfeit(code model.RoomCode, leaverID model.PlayerID, reason model.FinishReason) bool {
	unlock := c.store.Lock(code)
	defer unlock()

	s := c.store.Get(code)
	if s == nil || !s.IsParticipant(leaverID) || !s.IsActive() {
		return false
	}
	c.endByForfeit(s, leaverID, reason)
	return true
}

// endByForfeit awards the match to the other player. Called under the room lock.
func (c *Controller) endByForfeit(s *model.Session, leaverID model.PlayerID, reason model.FinishReason) {
	c.stopTurnTimer(s)
	s.Status = model.SessionGameOver
	s.WinnerID = s.OtherPlayer(leaverID)
	s.FinishReason = reason
	s.CurrentTurn = ""
	s.UpdatedAt = c.clock.Now()

	secrets := make(map[model.PlayerID]string, len(s.Secrets))
	for id, secret := range s.Secrets {
		secrets[id] = secret
	}
	c.announceGameOver(s, secrets)
}

// depart resolves a player leaving the room under its lock, so a concurrent
// start sees either the seat taken or the seat empty. A live match the player
// is in is forfeited; otherwise the room record is left, unless a finished
// session is still held and leaveFinished is false. It reports whether a
// match was forfeited.
func (c *Controller) depart(ctx context.Context, code model.RoomCode, playerID model.PlayerID, reason model.FinishReason, leaveFinished bool) (bool, error) {
	unlock := c.store.Lock(code)
	defer unlock()

	if s := c.store.Get(code); s != nil {
		if s.IsParticipant(playerID) && s.IsActive() {
			c.endByForfeit(s, playerID, reason)
			return true, nil
		}
		if !leaveFinished {
			return false, nil
		}
	}
	return false, c.leaveRoom(ctx, code, playerID)
}

// inActiveMatch reports whether the player is seated in a match that has not ended
func (c *Controller) inActiveMatch(playerID model.PlayerID) bool {
	code, ok := c.store.SeatOf(playerID)
	if !ok {
		return false
	}
	unlock := c.store.Lock(code)
	defer unlock()
	s := c.store.Get(code)
	return s != nil && s.IsParticipant(playerID) && s.IsActive()
}

// leaveRoom updates the room record and tells whoever remains
func (c *Controller) leaveRoom(ctx context.Context, code model.RoomCode, playerID model.PlayerID) error {
	outcome, err := c.rooms.LeaveRoom(ctx, code, playerID)
	if err != nil {
		return err
	}

	if outcome.Deleted {
		if outcome.Room.HasOpponent() {
			c.notify(code, model.EventRoomClosed, model.RoomClosedPayload{Reason: "host-left"}, outcome.Room.OpponentID)
		}
		return nil
	}
	c.notify(code, model.EventPlayerLeft, model.PlayerLeftPayload{
		PlayerID:    playerID,
		DisplayName: c.rooms.DisplayName(ctx, playerID),
	}, outcome.Room.HostID)
	return nil
}

// beginPlay opens a round once both secrets are in. Called under the room lock.
func (c *Controller) beginPlay(s *model.Session) {
	s.Status = model.SessionPlaying
	s.CurrentTurn = c.tracker.FirstTurn(s)

	payload := model.MatchStartPayload{
		FirstTurn:   s.CurrentTurn,
		RoundNumber: s.RoundNumber,
	}
	if s.IsHardMode() {
		payload.TimerSeconds = s.TurnSeconds
		c.startTurnTimer(s)
	}
	c.emit(s, model.EventMatchStart, payload)

	c.logger.Info("round started",
		slog.String("code", string(s.Code)),
		slog.Int("round", s.RoundNumber),
		slog.String("first_turn", string(s.CurrentTurn)),
	)
}

// announceGameOver broadcasts the result and schedules the session's removal.
// Called under the room lock with the session already in game over.
func (c *Controller) announceGameOver(s *model.Session, secrets map[model.PlayerID]string) {
	winnerName := ""
	if p := s.Participant(s.WinnerID); p != nil {
		winnerName = p.DisplayName
	}
	c.emit(s, model.EventGameOver, model.GameOverPayload{
		WinnerID:   s.WinnerID,
		WinnerName: winnerName,
		Scores:     s.CopyScores(),
		Reason:     s.FinishReason,
		Secrets:    secrets,
	})

	c.logger.Info("match over",
		slog.String("code", string(s.Code)),
		slog.String("winner_id", string(s.WinnerID)),
		slog.String("reason", string(s.FinishReason)),
	)

	finished := s
	c.clock.AfterFunc(c.cfg.GameOverGrace, func() {
		unlock := c.store.Lock(finished.Code)
		defer unlock()
		if c.store.DeleteIf(finished.Code, finished) {
			c.logger.Debug("session removed", slog.String("code", string(finished.Code)))
		}
	})
}

func (c *Controller) markFinished(ctx context.Context, code model.RoomCode, status model.RoomStatus) {
	if err := c.rooms.MarkFinished(ctx, code, status); err != nil && !errors.Is(err, model.ErrRoomNotFound) {
		c.logger.Warn("failed to record room outcome",
			slog.String("code", string(code)),
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
	}
}

// Turn timer

func timerKey(code model.RoomCode) string {
	return string(code)
}

// startTurnTimer replaces the room's countdown. Called under the room lock.
func (c *Controller) startTurnTimer(s *model.Session) {
	code := s.Code
	s.TimerGen = c.timers.Start(timerKey(code), s.TurnSeconds,
		func(gen uint64, remaining int) { c.onTick(code, gen, remaining) },
		func(gen uint64) { c.onExpire(code, gen) },
	)
}

// stopTurnTimer cancels the room's countdown. Called under the room lock.
func (c *Controller) stopTurnTimer(s *model.Session) {
	c.timers.Stop(timerKey(s.Code))
	s.TimerGen = 0
}

func (c *Controller) onTick(code model.RoomCode, gen uint64, remaining int) {
	_ = c.store.With(code, func(s *model.Session) error {
		if s.TimerGen != gen || s.Status != model.SessionPlaying {
			return nil
		}
		c.emit(s, model.EventTimerTick, model.TimerTickPayload{
			Remaining:   remaining,
			CurrentTurn: s.CurrentTurn,
		})
		return nil
	})
}

// onExpire skips the turn of a player who ran out of time
func (c *Controller) onExpire(code model.RoomCode, gen uint64) {
	_ = c.store.With(code, func(s *model.Session) error {
		if s.TimerGen != gen || s.Status != model.SessionPlaying {
			return nil
		}
		skipped := s.CurrentTurn
		s.CurrentTurn = s.OtherPlayer(skipped)
		s.UpdatedAt = c.clock.Now()
		c.startTurnTimer(s)
		c.emit(s, model.EventTurnSkipped, model.TurnSkippedPayload{
			SkippedID:    skipped,
			NextTurn:     s.CurrentTurn,
			TimerSeconds: s.TurnSeconds,
		})

		c.logger.Info("turn skipped",
			slog.String("code", string(code)),
			slog.String("player_id", string(skipped)),
		)
		return nil
	})
}

// Events

// emit pushes an event to the given players, or to both seats when none are
// named. Called under the room lock.
func (c *Controller) emit(s *model.Session, eventType model.EventType, payload any, to ...model.PlayerID) {
	if len(to) == 0 {
		to = s.PlayerIDs()
	}
	c.notify(s.Code, eventType, payload, to...)
}

func (c *Controller) notify(code model.RoomCode, eventType model.EventType, payload any, to ...model.PlayerID) {
	event := model.Event{
		Type:      eventType,
		RoomCode:  code,
		Timestamp: c.clock.Now(),
		Payload:   payload,
	}
	c.presence.SendToUsers(event, to...)
}
