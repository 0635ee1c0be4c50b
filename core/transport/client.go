package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/overlay-core/core/events"
)

// Client is a websocket connection to the overlay gateway.
//
// Dial opens the connection and pumps inbound messages to the handler as
// typed [events.Event] values until the connection drops; there is no
// reconnection. Emit writes outbound events. Close tears the connection
// down and stops the read loop.
type Client struct {
	url string

	conn    *websocket.Conn
	connMu  sync.Mutex
	closed  bool
	closeMu sync.Mutex
}

func NewClient(url string) *Client {
	return &Client{url: url}
}

func (c *Client) Dial(ctx context.Context, handler func(events.Event)) error {
	if handler == nil {
		return fmt.Errorf("no event handler provided")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to open socket connection to gateway: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	handler(events.NewConnected())
	go c.readAndProcessMessages(conn, handler)

	return nil
}

func (c *Client) Emit(event events.Event) error {
	frame, err := encodeEvent(event)
	if err != nil {
		return err
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	if err := c.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("failed to write to gateway: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	c.closeMu.Lock()
	c.closed = true
	c.closeMu.Unlock()

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) isClosed() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closed
}

func (c *Client) readAndProcessMessages(conn *websocket.Conn, handler func(events.Event)) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !c.isClosed() {
				log.Printf("Failed to read gateway websocket message: %v", err)
			}

			c.connMu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.connMu.Unlock()
			conn.Close()

			handler(events.NewDisconnected())
			return
		}

		event, err := decodeMessage(msg)
		if err != nil {
			log.Printf("Failed to decode gateway message: %v", err)
			continue
		}
		if event != nil {
			handler(event)
		}
	}
}

// decodeMessage maps a wire frame to its typed event. Unknown event names
// decode to nil so protocol additions do not break older overlays.
func decodeMessage(msg []byte) (events.Event, error) {
	frame := envelope{}
	if err := json.Unmarshal(msg, &frame); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gateway frame: %w", err)
	}

	switch frame.Event {
	case wireStatus:
		payload := StatusPayload{}
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal status payload: %w", err)
		}
		return events.NewStatusChanged(payload.Status), nil

	case wireTalk:
		payload := TalkPayload{}
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal talk payload: %w", err)
		}
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		return events.NewTalkRequested(payload.ID, payload.Message), nil

	case wireReplyTurn:
		payload := ReplyTurnPayload{}
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reply-turn payload: %w", err)
		}
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		return events.NewReplyTurnRequested(payload.ID, payload.ChatUsername, payload.ChatMessage, payload.BotMessage), nil
	}

	return nil, nil
}

func encodeEvent(event events.Event) (*envelope, error) {
	switch typedEvent := event.(type) {
	case events.TalkDone:
		data, err := json.Marshal(TalkDonePayload{ID: typedEvent.ID})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal talk done payload: %w", err)
		}
		return &envelope{Event: wireTalkDone, Data: data}, nil
	}

	return nil, fmt.Errorf("event kind %q is not an outbound gateway event", event.Kind())
}
