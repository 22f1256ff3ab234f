package ws_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/bullscows/internal/factory"
	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/ws"
)

type HandlerSuite struct {
	suite.Suite
	app    *factory.TestApp
	server *httptest.Server
	wsURL  string
	tokens map[string]string
	ctx    context.Context
	cancel context.CancelFunc
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.app = factory.NewTestApp()
	s.server = httptest.NewServer(s.app.Handler(nil))
	s.wsURL = "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Second)

	s.tokens = make(map[string]string)
	for id, name := range map[string]string{"alice": "Alice", "bob": "Bob"} {
		token, err := s.app.AddPlayer(id, name)
		s.Require().NoError(err)
		s.tokens[id] = token
	}
}

func (s *HandlerSuite) TearDownTest() {
	s.cancel()
	s.server.Close()
	s.app.Close()
}

func (s *HandlerSuite) dial(playerID string) *ws.Client {
	c, err := ws.Dial(s.ctx, s.wsURL, s.tokens[playerID])
	s.Require().NoError(err)
	s.Eventually(func() bool {
		return s.app.Presence.IsOnline(model.PlayerID(playerID))
	}, time.Second, 5*time.Millisecond)
	return c
}

func (s *HandlerSuite) TestRejectsMissingToken() {
	_, resp, err := websocket.Dial(s.ctx, s.wsURL, &websocket.DialOptions{
		Subprotocols: []string{ws.Subprotocol},
	})
	s.Require().Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlerSuite) TestRejectsForgedToken() {
	forged, err := factoryToken("not-the-secret", "alice")
	s.Require().NoError(err)

	_, resp, err := websocket.Dial(s.ctx, s.wsURL, &websocket.DialOptions{
		Subprotocols: []string{ws.Subprotocol},
		HTTPHeader:   http.Header{"Authorization": {"Bearer " + forged}},
	})
	s.Require().Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlerSuite) TestAcceptsQueryToken() {
	c, _, err := websocket.Dial(s.ctx, s.wsURL+"?token="+s.tokens["alice"], &websocket.DialOptions{
		Subprotocols: []string{ws.Subprotocol},
	})
	s.Require().NoError(err)
	defer func() { _ = c.Close(websocket.StatusNormalClosure, "") }()
	s.Equal(ws.Subprotocol, c.Subprotocol())
}

func (s *HandlerSuite) TestRequiresSubprotocol() {
	c, _, err := websocket.Dial(s.ctx, s.wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": {"Bearer " + s.tokens["alice"]}},
	})
	s.Require().NoError(err)

	_, _, err = c.Read(s.ctx)
	s.Equal(websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func (s *HandlerSuite) TestPing() {
	c := s.dial("alice")
	defer func() { _ = c.Close() }()

	var pong ws.PongData
	s.Require().NoError(c.Call(s.ctx, ws.IntentPing, nil, &pong))
	s.Equal(model.PlayerID("alice"), pong.PlayerID)
}

func (s *HandlerSuite) TestRejectedRequestCarriesError() {
	c := s.dial("alice")
	defer func() { _ = c.Close() }()

	_, err := c.Request(s.ctx, ws.IntentGetRoom, ws.RoomPayload{RoomCode: "ZZZZZZ"})
	var reqErr *ws.RequestError
	s.Require().True(errors.As(err, &reqErr))
	s.Equal("ROOM_NOT_FOUND", reqErr.Body.Code)
	s.Equal(model.KindNotFound, reqErr.Body.Kind)
	s.True(reqErr.Body.Resync)
}

func (s *HandlerSuite) TestPushesLobbyEvents() {
	alice := s.dial("alice")
	defer func() { _ = alice.Close() }()
	bob := s.dial("bob")
	defer func() { _ = bob.Close() }()

	s.app.MockRandom.QueueString("ROOM23")
	var view model.RoomView
	s.Require().NoError(alice.Call(s.ctx, ws.IntentCreateRoom, model.RoomSettings{
		Format: 3, DigitCount: 4, Difficulty: model.DifficultyEasy,
	}, &view))
	s.Equal(model.RoomCode("ROOM23"), view.Code)

	s.Require().NoError(bob.Call(s.ctx, ws.IntentJoinRoom, ws.RoomPayload{RoomCode: view.Code}, nil))

	ev, err := alice.WaitFor(s.ctx, model.EventPlayerJoined)
	s.Require().NoError(err)
	s.Equal(view.Code, ev.RoomCode)

	var joined model.PlayerJoinedPayload
	s.Require().NoError(json.Unmarshal(ev.Payload, &joined))
	s.Equal(model.PlayerID("bob"), joined.PlayerID)
	s.Equal("Bob", joined.DisplayName)
}

func (s *HandlerSuite) TestClosingLastConnectionForfeits() {
	alice := s.dial("alice")
	defer func() { _ = alice.Close() }()
	bob := s.dial("bob")

	s.app.MockRandom.QueueString("ROOM23")
	s.Require().NoError(alice.Call(s.ctx, ws.IntentCreateRoom, nil, nil))
	s.Require().NoError(bob.Call(s.ctx, ws.IntentJoinRoom, ws.RoomPayload{RoomCode: "ROOM23"}, nil))
	s.Require().NoError(alice.Call(s.ctx, ws.IntentStartGame, ws.RoomPayload{RoomCode: "ROOM23"}, nil))

	s.Require().NoError(bob.Close())

	ev, err := alice.WaitFor(s.ctx, model.EventGameOver)
	s.Require().NoError(err)

	var over model.GameOverPayload
	s.Require().NoError(json.Unmarshal(ev.Payload, &over))
	s.Equal(model.PlayerID("alice"), over.WinnerID)
	s.Equal(model.FinishDisconnect, over.Reason)
	s.False(s.app.Presence.IsOnline("bob"))
}

func (s *HandlerSuite) TestSecondTabKeepsPlayerOnline() {
	first := s.dial("alice")
	second := s.dial("alice")
	defer func() { _ = second.Close() }()

	s.Eventually(func() bool {
		return s.app.Presence.ConnectionCount("alice") == 2
	}, time.Second, 5*time.Millisecond)

	s.Require().NoError(first.Close())

	s.Eventually(func() bool {
		return s.app.Presence.ConnectionCount("alice") == 1
	}, time.Second, 5*time.Millisecond)
	s.True(s.app.Presence.IsOnline("alice"))
}
