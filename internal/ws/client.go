package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/mcoot/bullscows/internal/model"
)

// Frame is any server-to-client message: a Response when Type is "response",
// otherwise a pushed event
type Frame struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	OK        bool            `json:"ok,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     *ErrorBody      `json:"error,omitempty"`
	RoomCode  model.RoomCode  `json:"room,omitempty"`
	Timestamp time.Time       `json:"ts,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// IsResponse reports whether the frame answers a request
func (f Frame) IsResponse() bool {
	return f.Type == responseType
}

// RequestError is a request the server rejected
type RequestError struct {
	Body ErrorBody
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Body.Message, e.Body.Code)
}

// Client speaks the bnc.v1 protocol from the client side.
// Events that arrive while waiting for a response are queued for NextEvent.
// A Client is not safe for concurrent use.
type Client struct {
	conn   *websocket.Conn
	queued []Frame
}

// Dial opens an authenticated connection to a /ws endpoint
func Dial(ctx context.Context, url, token string) (*Client, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{Subprotocol},
		HTTPHeader:   header,
	})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed with HTTP %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Request sends an intent and waits for its response
func (c *Client) Request(ctx context.Context, intent Intent, payload any) (Frame, error) {
	req := Request{ID: uuid.NewString(), Type: intent}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Frame{}, fmt.Errorf("failed to marshal payload: %w", err)
		}
		req.Payload = raw
	}

	data, err := json.Marshal(req)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to marshal request: %w", err)
	}
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return Frame{}, err
	}

	for {
		frame, err := c.read(ctx)
		if err != nil {
			return Frame{}, err
		}
		if !frame.IsResponse() {
			c.queued = append(c.queued, frame)
			continue
		}
		if frame.ID != req.ID {
			continue
		}
		if !frame.OK && frame.Error != nil {
			return frame, &RequestError{Body: *frame.Error}
		}
		return frame, nil
	}
}

// Call sends an intent and decodes the response data into out (which may be nil)
func (c *Client) Call(ctx context.Context, intent Intent, payload, out any) error {
	frame, err := c.Request(ctx, intent, payload)
	if err != nil {
		return err
	}
	if out == nil || len(frame.Data) == 0 {
		return nil
	}
	return json.Unmarshal(frame.Data, out)
}

// NextEvent returns the next pushed event, blocking until one arrives
func (c *Client) NextEvent(ctx context.Context) (Frame, error) {
	if len(c.queued) > 0 {
		frame := c.queued[0]
		c.queued = c.queued[1:]
		return frame, nil
	}
	for {
		frame, err := c.read(ctx)
		if err != nil {
			return Frame{}, err
		}
		if !frame.IsResponse() {
			return frame, nil
		}
	}
}

// WaitFor returns the next event of the given type, discarding others
func (c *Client) WaitFor(ctx context.Context, eventType model.EventType) (Frame, error) {
	for {
		frame, err := c.NextEvent(ctx)
		if err != nil {
			return Frame{}, err
		}
		if frame.Type == string(eventType) {
			return frame, nil
		}
	}
}

// Close closes the connection normally
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

func (c *Client) read(ctx context.Context) (Frame, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return Frame{}, err
	}
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return Frame{}, fmt.Errorf("malformed frame: %w", err)
	}
	return frame, nil
}
