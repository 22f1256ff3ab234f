package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mcoot/bullscows/internal/api/apierr"
	"github.com/mcoot/bullscows/internal/dependencies/clock"
	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/services/match"
	"github.com/mcoot/bullscows/internal/services/room"
)

// intentFunc runs one intent on behalf of an authenticated player
type intentFunc func(ctx context.Context, playerID model.PlayerID, payload json.RawMessage) (any, error)

// Dispatcher routes decoded requests to the room and match controllers
type Dispatcher struct {
	rooms   *room.Controller
	matches *match.Controller
	clock   clock.Clock
	logger  *slog.Logger

	intents map[Intent]intentFunc
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(rooms *room.Controller, matches *match.Controller, clock clock.Clock, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		rooms:   rooms,
		matches: matches,
		clock:   clock,
		logger:  logger.With(slog.String("component", "dispatcher")),
	}
	d.intents = map[Intent]intentFunc{
		IntentCreateRoom:   d.createRoom,
		IntentJoinRoom:     d.joinRoom,
		IntentStartGame:    d.startGame,
		IntentLeaveRoom:    d.leaveRoom,
		IntentGetRoom:      d.getRoom,
		IntentGameInit:     d.gameInit,
		IntentSubmitSecret: d.submitSecret,
		IntentSubmitGuess:  d.submitGuess,
		IntentInviteFriend: d.inviteFriend,
		IntentPing:         d.ping,
	}
	return d
}

// Dispatch decodes one frame, runs it and builds the correlated response
func (d *Dispatcher) Dispatch(ctx context.Context, playerID model.PlayerID, frame []byte) Response {
	var req Request
	if err := json.Unmarshal(frame, &req); err != nil {
		return d.failure("", model.ErrInvalidMessage)
	}

	fn, ok := d.intents[req.Type]
	if !ok {
		return d.failure(req.ID, model.ErrInvalidMessage)
	}

	data, err := fn(ctx, playerID, req.Payload)
	if err != nil {
		if model.KindOf(err) == model.KindInternal {
			d.logger.Error("intent failed",
				slog.String("intent", string(req.Type)),
				slog.String("player_id", string(playerID)),
				slog.String("error", err.Error()),
			)
		} else {
			d.logger.Debug("intent rejected",
				slog.String("intent", string(req.Type)),
				slog.String("player_id", string(playerID)),
				slog.String("error", err.Error()),
			)
		}
		return d.failure(req.ID, err)
	}

	return Response{Type: responseType, ID: req.ID, OK: true, Data: data}
}

func (d *Dispatcher) failure(id string, err error) Response {
	return Response{Type: responseType, ID: id, OK: false, Error: errorBody(err)}
}

// errorBody maps an error onto the wire taxonomy
func errorBody(err error) *ErrorBody {
	_, apiErr := apierr.Describe(err)
	kind := model.KindOf(err)
	return &ErrorBody{
		Code:    apiErr.Code,
		Kind:    kind,
		Message: apiErr.Message,
		Resync:  kind == model.KindNotFound,
	}
}

// decode unmarshals an intent payload; a missing payload decodes as empty
func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return model.ErrInvalidMessage
	}
	return nil
}

func decodeRoom(payload json.RawMessage) (model.RoomCode, error) {
	var p RoomPayload
	if err := decode(payload, &p); err != nil {
		return "", err
	}
	if p.RoomCode == "" {
		return "", model.ErrInvalidMessage
	}
	return p.RoomCode.Normalize(), nil
}

func (d *Dispatcher) createRoom(ctx context.Context, playerID model.PlayerID, payload json.RawMessage) (any, error) {
	settings := model.DefaultRoomSettings()
	if err := decode(payload, &settings); err != nil {
		return nil, err
	}

	return d.matches.CreateRoom(ctx, playerID, settings)
}

func (d *Dispatcher) joinRoom(ctx context.Context, playerID model.PlayerID, payload json.RawMessage) (any, error) {
	code, err := decodeRoom(payload)
	if err != nil {
		return nil, err
	}
	return d.matches.Join(ctx, code, playerID)
}

func (d *Dispatcher) startGame(ctx context.Context, playerID model.PlayerID, payload json.RawMessage) (any, error) {
	code, err := decodeRoom(payload)
	if err != nil {
		return nil, err
	}
	if err := d.matches.Start(ctx, code, playerID); err != nil {
		return nil, err
	}
	return d.matches.Snapshot(code, playerID)
}

func (d *Dispatcher) leaveRoom(ctx context.Context, playerID model.PlayerID, payload json.RawMessage) (any, error) {
	code, err := decodeRoom(payload)
	if err != nil {
		return nil, err
	}
	return nil, d.matches.Leave(ctx, code, playerID)
}

func (d *Dispatcher) getRoom(ctx context.Context, _ model.PlayerID, payload json.RawMessage) (any, error) {
	code, err := decodeRoom(payload)
	if err != nil {
		return nil, err
	}
	return d.rooms.GetRoomView(ctx, code)
}

func (d *Dispatcher) gameInit(ctx context.Context, playerID model.PlayerID, payload json.RawMessage) (any, error) {
	code, err := decodeRoom(payload)
	if err != nil {
		return nil, err
	}
	return d.matches.GameInit(ctx, code, playerID)
}

func (d *Dispatcher) submitSecret(ctx context.Context, playerID model.PlayerID, payload json.RawMessage) (any, error) {
	var p SecretPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if p.RoomCode == "" {
		return nil, model.ErrInvalidMessage
	}
	return nil, d.matches.SubmitSecret(ctx, p.RoomCode.Normalize(), playerID, p.Secret)
}

func (d *Dispatcher) submitGuess(ctx context.Context, playerID model.PlayerID, payload json.RawMessage) (any, error) {
	var p GuessPayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if p.RoomCode == "" {
		return nil, model.ErrInvalidMessage
	}
	result, err := d.matches.SubmitGuess(ctx, p.RoomCode.Normalize(), playerID, p.Guess)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (d *Dispatcher) inviteFriend(ctx context.Context, playerID model.PlayerID, payload json.RawMessage) (any, error) {
	var p InvitePayload
	if err := decode(payload, &p); err != nil {
		return nil, err
	}
	if p.RoomCode == "" || p.FriendID == "" {
		return nil, model.ErrInvalidMessage
	}
	return nil, d.matches.Invite(ctx, p.RoomCode.Normalize(), playerID, p.FriendID)
}

func (d *Dispatcher) ping(_ context.Context, playerID model.PlayerID, _ json.RawMessage) (any, error) {
	return PongData{PlayerID: playerID, Time: d.clock.Now().UTC().Format(time.RFC3339)}, nil
}
