// Package ws is the lobby's messaging channel: named JSON events over a
// single websocket connection.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/globalchat-lobby/internal/proto"
)

const (
	readLimit      = 1 << 20
	inboundBufSize = 32
)

// Channel emits events to the server and delivers inbound events in arrival order.
type Channel struct {
	conn    *websocket.Conn
	inbound chan proto.Message
	log     *zerolog.Logger

	closeOnce sync.Once
}

// Dial connects to the websocket endpoint at url.
func Dial(ctx context.Context, url string, logger *zerolog.Logger) (*Channel, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	logger.Debug().Str("url", url).Msg("websocket connected")
	return NewChannel(conn, logger), nil
}

// NewChannel wraps an established connection.
func NewChannel(conn *websocket.Conn, logger *zerolog.Logger) *Channel {
	conn.SetReadLimit(readLimit)
	return &Channel{
		conn:    conn,
		inbound: make(chan proto.Message, inboundBufSize),
		log:     logger,
	}
}

// Emit sends one event. It does not wait for any acknowledgment.
func (c *Channel) Emit(ctx context.Context, event string, payload any) error {
	env := proto.Envelope{Event: event}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s: %w", event, err)
		}
		env.Data = raw
	}
	if err := wsjson.Write(ctx, c.conn, env); err != nil {
		return fmt.Errorf("write %s: %w", event, err)
	}
	c.log.Debug().Str("event", event).Msg("event sent")
	return nil
}

// LeaveRoom tells the server the user left its current room.
func (c *Channel) LeaveRoom(ctx context.Context) error {
	return c.Emit(ctx, proto.EventLeaveRoom, struct{}{})
}

// Inbound returns the stream of server events. It is closed when Run returns.
func (c *Channel) Inbound() <-chan proto.Message {
	return c.inbound
}

// Run reads events until the connection or ctx ends. A normal close or a
// cancelled context returns nil.
func (c *Channel) Run(ctx context.Context) error {
	defer close(c.inbound)

	for {
		var env proto.Envelope
		if err := wsjson.Read(ctx, c.conn, &env); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				c.log.Debug().Msg("websocket closed by server")
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if env.Event == "" {
			c.log.Warn().Msg("dropping event without name")
			continue
		}

		select {
		case c.inbound <- proto.Message{Event: env.Event, Data: env.Data}:
		case <-ctx.Done():
			return nil
		}
	}
}

// Close ends the connection with a normal closure.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close(websocket.StatusNormalClosure, "bye")
	})
	return err
}
