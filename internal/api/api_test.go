package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/bullscows/internal/api/apierr"
	"github.com/mcoot/bullscows/internal/api/response"
	"github.com/mcoot/bullscows/internal/factory"
	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/testutil"
)

// testServer wraps the router built by the test factory
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
	tokens  map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(app.Close)

	ts := &testServer{
		handler: app.Handler(nil),
		app:     app,
		tokens:  make(map[string]string),
	}
	for id, name := range map[string]string{"alice": "Alice", "bob": "Bob"} {
		token, err := app.AddPlayer(id, name)
		require.NoError(t, err)
		ts.tokens[id] = token
	}
	return ts
}

func (ts *testServer) request(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apierr.APIError {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp response.Health
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{
		"/api/v1/players/me",
		"/api/v1/players/alice/presence",
		"/api/v1/rooms/ROOM23",
	} {
		rr := ts.request(http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
		assert.Equal(t, apierr.CodeUnauthorized, decodeError(t, rr).Code, path)
	}

	rr := ts.request(http.MethodGet, "/api/v1/players/me", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetMe(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players/me", ts.tokens["alice"])
	assert.Equal(t, http.StatusOK, rr.Code)

	var player response.Player
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &player))
	assert.Equal(t, "alice", player.ID)
	assert.Equal(t, "Alice", player.DisplayName)
}

func TestPresence(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players/bob/presence", ts.tokens["alice"])
	assert.Equal(t, http.StatusOK, rr.Code)

	var presence response.Presence
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &presence))
	assert.Equal(t, "bob", presence.PlayerID)
	assert.False(t, presence.Online)

	ts.app.Presence.Register(context.Background(), "bob", testutil.NewRecordingHandle("bob-1"))
	ts.app.Presence.Register(context.Background(), "bob", testutil.NewRecordingHandle("bob-2"))

	rr = ts.request(http.MethodGet, "/api/v1/players/bob/presence", ts.tokens["alice"])
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &presence))
	assert.True(t, presence.Online)
	assert.Equal(t, 2, presence.Connections)
}

func TestGetRoom(t *testing.T) {
	ts := newTestServer(t)

	ts.app.MockRandom.QueueString("ROOM23")
	_, err := ts.app.RoomController.CreateRoom(context.Background(), "alice", model.DefaultRoomSettings())
	require.NoError(t, err)

	rr := ts.request(http.MethodGet, "/api/v1/rooms/room23", ts.tokens["bob"])
	assert.Equal(t, http.StatusOK, rr.Code)

	var view model.RoomView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, model.RoomCode("ROOM23"), view.Code)
	assert.Equal(t, "Alice", view.HostName)
	assert.Equal(t, model.RoomStatusWaiting, view.Status)
	assert.Equal(t, model.DefaultRoomSettings(), view.Settings)

	rr = ts.request(http.MethodGet, "/api/v1/rooms/NOPE99", ts.tokens["bob"])
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeRoomNotFound, decodeError(t, rr).Code)
}

func TestGetGame(t *testing.T) {
	ts := newTestServer(t)

	ts.app.MockRandom.QueueString("ROOM23")
	_, err := ts.app.RoomController.CreateRoom(context.Background(), "alice", model.DefaultRoomSettings())
	require.NoError(t, err)

	// Before the match starts the host sees the lobby
	rr := ts.request(http.MethodGet, "/api/v1/rooms/ROOM23/game", ts.tokens["alice"])
	assert.Equal(t, http.StatusOK, rr.Code)

	var snapshot struct {
		RoomCode string `json:"room_code"`
		Status   string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snapshot))
	assert.Equal(t, "ROOM23", snapshot.RoomCode)
	assert.Equal(t, string(model.SessionLobby), snapshot.Status)

	// Outsiders are refused
	rr = ts.request(http.MethodGet, "/api/v1/rooms/ROOM23/game", ts.tokens["bob"])
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeNotInRoom, decodeError(t, rr).Code)
}
