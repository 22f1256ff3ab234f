package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/coder/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/bullscows/internal/ws"
)

func newSendCmd() *cobra.Command {
	var listen bool

	cmd := &cobra.Command{
		Use:   "send <intent> [json-payload]",
		Short: "Send one websocket intent and print the response",
		Long: `Open a websocket connection, send one intent and print the server's response.

Intents: create-room, join-room, start-game, leave-room, get-room, game-init,
submit-secret, submit-guess, invite-friend, ping.

Example:
  bnc send join-room '{"room_code":"ABC234"}' --listen

With --listen the connection stays open afterwards and pushed events are
printed until Ctrl+C. Closing the connection counts as a disconnect, so
without --listen a player in a live match forfeits when the command exits.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload any
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("payload is not valid JSON")
				}
				payload = json.RawMessage(args[1])
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			conn, err := ws.Dial(ctx, cfg.WebsocketURL(), cfg.Token)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			frame, err := conn.Request(ctx, ws.Intent(args[0]), payload)
			if err != nil {
				return err
			}
			out.Print(frame)

			if !listen {
				return nil
			}
			return streamEvents(ctx, conn, out)
		},
	}

	cmd.Flags().BoolVar(&listen, "listen", false, "Keep the connection open and stream events")

	return cmd
}

func newListenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Connect and stream pushed events",
		Long: `Hold a websocket connection open and print every event pushed to this player:
room-invite, player-joined, player-left, room-closed, game-started,
opponent-ready, match-start, turn-result, timer-tick, turn-skipped,
round-over and game-over.

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			conn, err := ws.Dial(ctx, cfg.WebsocketURL(), cfg.Token)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			return streamEvents(ctx, conn, NewOutput(cfg.Output, cmd.OutOrStdout()))
		},
	}
}

// streamEvents prints events until the context ends or the server closes the connection
func streamEvents(ctx context.Context, conn *ws.Client, out *Output) error {
	for {
		frame, err := conn.NextEvent(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			if status := websocket.CloseStatus(err); status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}
		out.PrintEvent(frame)
	}
}
