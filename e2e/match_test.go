package e2e_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/bullscows/internal/model"
	"github.com/mcoot/bullscows/internal/services/evaluator"
	"github.com/mcoot/bullscows/internal/ws"
)

type duelist struct {
	id     model.PlayerID
	secret string
	conn   *ws.Client
}

func connectDuelist(ctx context.Context, t *testing.T, ts *testServer, id, name, secret string) *duelist {
	t.Helper()
	conn, err := ws.Dial(ctx, ts.wsURL, tokenFor(t, id, name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	// Presence registration happens just after the upgrade completes
	require.Eventually(t, func() bool {
		return ts.app.Presence.IsOnline(model.PlayerID(id))
	}, 2*time.Second, 10*time.Millisecond)

	return &duelist{id: model.PlayerID(id), secret: secret, conn: conn}
}

func decodePayload[T any](t *testing.T, frame ws.Frame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(frame.Payload, &v))
	return v
}

// openDuel seats both players in a started match
func openDuel(ctx context.Context, t *testing.T, host, guest *duelist, settings model.RoomSettings) model.RoomCode {
	t.Helper()

	var view model.RoomView
	require.NoError(t, host.conn.Call(ctx, ws.IntentCreateRoom, settings, &view))
	require.NoError(t, guest.conn.Call(ctx, ws.IntentJoinRoom, ws.RoomPayload{RoomCode: view.Code}, nil))
	_, err := host.conn.WaitFor(ctx, model.EventPlayerJoined)
	require.NoError(t, err)

	require.NoError(t, host.conn.Call(ctx, ws.IntentStartGame, ws.RoomPayload{RoomCode: view.Code}, nil))
	for _, d := range []*duelist{host, guest} {
		_, err := d.conn.WaitFor(ctx, model.EventGameStarted)
		require.NoError(t, err)
	}
	return view.Code
}

// submitSecrets locks in both secrets and returns who opens the round
func submitSecrets(ctx context.Context, t *testing.T, code model.RoomCode, players ...*duelist) model.PlayerID {
	t.Helper()
	for _, d := range players {
		require.NoError(t, d.conn.Call(ctx, ws.IntentSubmitSecret, ws.SecretPayload{RoomCode: code, Secret: d.secret}, nil))
	}

	var opener model.PlayerID
	for _, d := range players {
		frame, err := d.conn.WaitFor(ctx, model.EventMatchStart)
		require.NoError(t, err)
		start := decodePayload[model.MatchStartPayload](t, frame)
		if opener == "" {
			opener = start.FirstTurn
		}
		assert.Equal(t, opener, start.FirstTurn, "both players must agree on the opener")
	}
	return opener
}

func TestMatch_BestOfThree(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	alice := connectDuelist(ctx, t, ts, "alice", "Alice", "1234")
	bob := connectDuelist(ctx, t, ts, "bob", "Bob", "5678")
	byID := map[model.PlayerID]*duelist{alice.id: alice, bob.id: bob}
	other := func(id model.PlayerID) *duelist {
		if id == alice.id {
			return bob
		}
		return alice
	}

	code := openDuel(ctx, t, alice, bob, model.RoomSettings{Format: 3, DigitCount: 4, Difficulty: model.DifficultyEasy})

	// Whoever opens a round guesses right at once, so the opener alternates
	// with the round loser and the match goes to three rounds.
	var lastWinner model.PlayerID
	for round := 1; round <= 3; round++ {
		opener := submitSecrets(ctx, t, code, alice, bob)
		if round > 1 {
			assert.NotEqual(t, lastWinner, opener, "the loser of the previous round opens")
		}

		mover := byID[opener]
		target := other(opener)

		var result evaluator.Result
		require.NoError(t, mover.conn.Call(ctx, ws.IntentSubmitGuess, ws.GuessPayload{RoomCode: code, Guess: target.secret}, &result))
		assert.Equal(t, 4, result.Bulls)

		frame, err := target.conn.WaitFor(ctx, model.EventTurnResult)
		require.NoError(t, err)
		turn := decodePayload[model.TurnResultPayload](t, frame)
		assert.Equal(t, 1, turn.Sequence)
		assert.Equal(t, target.secret, turn.Guess)

		lastWinner = opener
		if round < 3 {
			for _, d := range []*duelist{alice, bob} {
				frame, err := d.conn.WaitFor(ctx, model.EventRoundOver)
				require.NoError(t, err)
				over := decodePayload[model.RoundOverPayload](t, frame)
				assert.Equal(t, opener, over.WinnerID)
				assert.Equal(t, round+1, over.NextRound)
			}
		}
	}

	for _, d := range []*duelist{alice, bob} {
		frame, err := d.conn.WaitFor(ctx, model.EventGameOver)
		require.NoError(t, err)
		over := decodePayload[model.GameOverPayload](t, frame)
		assert.Equal(t, lastWinner, over.WinnerID)
		assert.Equal(t, model.FinishWin, over.Reason)
		assert.Equal(t, 2, over.Scores[lastWinner])
		assert.Equal(t, 1, over.Scores[other(lastWinner).id])
	}

	var snapshot struct {
		Status   string `json:"status"`
		WinnerID string `json:"winner_id"`
	}
	require.NoError(t, alice.conn.Call(ctx, ws.IntentGameInit, ws.RoomPayload{RoomCode: code}, &snapshot))
	assert.Equal(t, "GAME_OVER", snapshot.Status)
	assert.Equal(t, string(lastWinner), snapshot.WinnerID)

	room, err := ts.app.RoomStore.GetRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, model.RoomStatusCompleted, room.Status)

	// The finished session is dropped after the grace period
	require.Eventually(t, func() bool {
		return ts.app.MatchController.ActiveSessions() == 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestMatch_HardModeTimeout(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	alice := connectDuelist(ctx, t, ts, "alice", "Alice", "012")
	bob := connectDuelist(ctx, t, ts, "bob", "Bob", "987")

	code := openDuel(ctx, t, alice, bob, model.RoomSettings{Format: 1, DigitCount: 3, Difficulty: model.DifficultyHard})
	opener := submitSecrets(ctx, t, code, alice, bob)

	// Nobody moves; the opener's two seconds run out
	frame, err := alice.conn.WaitFor(ctx, model.EventTimerTick)
	require.NoError(t, err)
	tick := decodePayload[model.TimerTickPayload](t, frame)
	assert.Equal(t, opener, tick.CurrentTurn)
	assert.Equal(t, 1, tick.Remaining)

	frame, err = alice.conn.WaitFor(ctx, model.EventTurnSkipped)
	require.NoError(t, err)
	skipped := decodePayload[model.TurnSkippedPayload](t, frame)
	assert.Equal(t, opener, skipped.SkippedID)
	assert.NotEqual(t, opener, skipped.NextTurn)
	assert.Equal(t, 2, skipped.TimerSeconds)
}

func TestMatch_LeaveForfeits(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	alice := connectDuelist(ctx, t, ts, "alice", "Alice", "0123")
	bob := connectDuelist(ctx, t, ts, "bob", "Bob", "4567")

	code := openDuel(ctx, t, alice, bob, model.RoomSettings{Format: 5, DigitCount: 4, Difficulty: model.DifficultyEasy})
	submitSecrets(ctx, t, code, alice, bob)

	require.NoError(t, bob.conn.Call(ctx, ws.IntentLeaveRoom, ws.RoomPayload{RoomCode: code}, nil))

	frame, err := alice.conn.WaitFor(ctx, model.EventGameOver)
	require.NoError(t, err)
	over := decodePayload[model.GameOverPayload](t, frame)
	assert.Equal(t, alice.id, over.WinnerID)
	assert.Equal(t, model.FinishOpponentLeft, over.Reason)
	assert.Equal(t, "4567", over.Secrets[bob.id])

	// Guessing after the match ended is rejected
	_, err = alice.conn.Request(ctx, ws.IntentSubmitGuess, ws.GuessPayload{RoomCode: code, Guess: "4567"})
	var reqErr *ws.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "WRONG_PHASE", reqErr.Body.Code)
}
