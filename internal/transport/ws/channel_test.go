package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/require"

	logpkg "github.com/vovakirdan/globalchat-lobby/internal/log"
	"github.com/vovakirdan/globalchat-lobby/internal/proto"
)

// echoServer answers every envelope with "<event>_ack" carrying the same data,
// and closes normally on "bye".
func echoServer(t *testing.T, received chan<- proto.Envelope) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		_ = wsjson.Write(ctx, conn, proto.Envelope{Event: proto.EventConnected, Data: json.RawMessage(`{"status":"success"}`)})
		for {
			var env proto.Envelope
			if err := wsjson.Read(ctx, conn, &env); err != nil {
				return
			}
			if received != nil {
				received <- env
			}
			if env.Event == "bye" {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if err := wsjson.Write(ctx, conn, proto.Envelope{Event: env.Event + "_ack", Data: env.Data}); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) (*Channel, <-chan error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	ch, err := Dial(ctx, url, logpkg.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	done := make(chan error, 1)
	go func() { done <- ch.Run(ctx) }()
	return ch, done
}

func mustMessage(t *testing.T, ch *Channel) proto.Message {
	t.Helper()
	select {
	case msg, ok := <-ch.Inbound():
		require.True(t, ok, "inbound closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("no inbound message")
		return proto.Message{}
	}
}

func TestChannelRoundTrip(t *testing.T) {
	received := make(chan proto.Envelope, 4)
	ch, _ := dial(t, echoServer(t, received))

	connected := mustMessage(t, ch)
	require.Equal(t, proto.EventConnected, connected.Event)
	var data proto.ConnectedData
	require.NoError(t, connected.Decode(&data))
	require.Equal(t, "success", data.Status)

	err := ch.Emit(context.Background(), proto.EventJoinRoomRequest, proto.JoinRoomData{RoomID: "r1", RequestID: "req-1"})
	require.NoError(t, err)

	env := <-received
	require.Equal(t, proto.EventJoinRoomRequest, env.Event)
	require.JSONEq(t, `{"room_id":"r1","request_id":"req-1"}`, string(env.Data))

	ack := mustMessage(t, ch)
	require.Equal(t, proto.EventJoinRoomRequest+"_ack", ack.Event)
	var join proto.JoinRoomData
	require.NoError(t, ack.Decode(&join))
	require.Equal(t, "r1", join.RoomID)
}

func TestChannelLeaveRoom(t *testing.T) {
	received := make(chan proto.Envelope, 4)
	ch, _ := dial(t, echoServer(t, received))
	mustMessage(t, ch)

	require.NoError(t, ch.LeaveRoom(context.Background()))
	env := <-received
	require.Equal(t, proto.EventLeaveRoom, env.Event)
	require.JSONEq(t, `{}`, string(env.Data))
}

func TestChannelRunEndsOnNormalClose(t *testing.T) {
	ch, done := dial(t, echoServer(t, nil))
	mustMessage(t, ch)

	require.NoError(t, ch.Emit(context.Background(), "bye", nil))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not return")
	}
	_, ok := <-ch.Inbound()
	require.False(t, ok, "inbound should be closed")
}

func TestDialFailure(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/ws", logpkg.Nop())
	require.Error(t, err)
}
