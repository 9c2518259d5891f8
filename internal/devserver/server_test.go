package devserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/globalchat-lobby/internal/config"
	logpkg "github.com/vovakirdan/globalchat-lobby/internal/log"
	"github.com/vovakirdan/globalchat-lobby/internal/proto"
)

func startTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	cfg := config.Default()
	cfg.RoomCleanupDelay = time.Minute
	srv := New(cfg, logpkg.Nop())
	t.Cleanup(srv.Rooms().Close)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
	ctx  context.Context
}

func dialClient(t *testing.T, ts *httptest.Server, query string) *testClient {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if query != "" {
		url += "?" + query
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })

	return &testClient{t: t, conn: conn, ctx: ctx}
}

func (c *testClient) send(event string, payload any) {
	c.t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(c.t, err)
	require.NoError(c.t, wsjson.Write(c.ctx, c.conn, proto.Envelope{Event: event, Data: raw}))
}

func (c *testClient) expect(event string, out any) {
	c.t.Helper()
	var env proto.Envelope
	require.NoError(c.t, wsjson.Read(c.ctx, c.conn, &env))
	require.Equal(c.t, event, env.Event, "payload: %s", string(env.Data))
	if out != nil {
		require.NoError(c.t, json.Unmarshal(env.Data, out))
	}
}

func TestHealthAndEmptyCatalog(t *testing.T) {
	_, ts := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = ts.Client().Get(ts.URL + "/api/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	require.JSONEq(t, `[]`, string(body))
}

func TestConnectedCarriesQueryProfile(t *testing.T) {
	_, ts := startTestServer(t)

	c := dialClient(t, ts, "nickname=mina&language=korean")
	var connected proto.ConnectedData
	c.expect(proto.EventConnected, &connected)
	require.Equal(t, "success", connected.Status)
	require.Equal(t, "mina", connected.User.Nickname)
	require.Equal(t, "ko", connected.User.Language)

	anon := dialClient(t, ts, "")
	connected = proto.ConnectedData{}
	anon.expect(proto.EventConnected, &connected)
	require.True(t, strings.HasPrefix(connected.User.Nickname, "guest-"))
	require.Empty(t, connected.User.Language)
}

func TestCreateLanguageAndJoinFlow(t *testing.T) {
	srv, ts := startTestServer(t)

	c := dialClient(t, ts, "nickname=mina")
	c.expect(proto.EventConnected, nil)

	c.send(proto.EventCreateRoom, proto.CreateRoomData{Title: "Test", Password: "", MaxUsers: "", RequestID: "req-1"})
	var created proto.RoomCreatedData
	c.expect(proto.EventRoomCreated, &created)
	require.True(t, created.Success)
	require.NotEmpty(t, created.RoomID)
	require.Equal(t, "req-1", created.RequestID)

	c.send(proto.EventJoinRoomRequest, proto.JoinRoomData{RoomID: created.RoomID, RequestID: "req-2"})
	var required proto.LanguageRequiredData
	c.expect(proto.EventLanguageRequired, &required)
	require.Equal(t, "req-2", required.RequestID)

	c.send(proto.EventSetLanguage, proto.SetLanguageData{Language: "english", RequestID: "req-3"})
	var set proto.LanguageSetData
	c.expect(proto.EventLanguageSet, &set)
	require.True(t, set.Success)
	require.Equal(t, "en", set.Language)

	c.send(proto.EventJoinRoomRequest, proto.JoinRoomData{RoomID: created.RoomID, RequestID: "req-4"})
	var joined proto.RoomJoinedData
	c.expect(proto.EventRoomJoined, &joined)
	require.True(t, joined.Success)
	require.Equal(t, created.RoomID, joined.RoomInfo.ID)
	require.Equal(t, 50, joined.RoomInfo.MaxUsers)
	require.Len(t, joined.Users, 1)

	list := srv.Rooms().List()
	require.Len(t, list, 1)
	require.Equal(t, 1, list[0].UserCount)

	c.send(proto.EventLeaveRoom, struct{}{})
	c.expect(proto.EventRoomLeft, nil)
	require.Equal(t, 0, srv.Rooms().List()[0].UserCount)
}

func TestJoinErrors(t *testing.T) {
	srv, ts := startTestServer(t)
	info, err := srv.Rooms().Create("Secret", "abc", 1, "joon")
	require.NoError(t, err)

	c := dialClient(t, ts, "nickname=mina&language=ja")
	c.expect(proto.EventConnected, nil)

	var joinErr proto.ErrorData
	c.send(proto.EventJoinRoomRequest, proto.JoinRoomData{RoomID: "missing"})
	c.expect(proto.EventJoinRoomError, &joinErr)
	require.Equal(t, "Room does not exist", joinErr.Message)

	c.send(proto.EventJoinRoomRequest, proto.JoinRoomData{RoomID: info.ID, Password: "nope"})
	c.expect(proto.EventJoinRoomError, &joinErr)
	require.Equal(t, "Incorrect password", joinErr.Message)

	c.send(proto.EventJoinRoomRequest, proto.JoinRoomData{RoomID: info.ID, Password: "abc"})
	c.expect(proto.EventRoomJoined, nil)

	other := dialClient(t, ts, "language=en")
	other.expect(proto.EventConnected, nil)
	other.send(proto.EventJoinRoomRequest, proto.JoinRoomData{RoomID: info.ID, Password: "abc", RequestID: "x"})
	other.expect(proto.EventJoinRoomError, &joinErr)
	require.Equal(t, "Room is full", joinErr.Message)
	require.Equal(t, "x", joinErr.RequestID)
}

func TestUnsupportedLanguageAndBadCreate(t *testing.T) {
	_, ts := startTestServer(t)

	c := dialClient(t, ts, "")
	c.expect(proto.EventConnected, nil)

	c.send(proto.EventSetLanguage, proto.SetLanguageData{Language: "klingon"})
	var set proto.LanguageSetData
	c.expect(proto.EventLanguageSet, &set)
	require.False(t, set.Success)
	require.NotEmpty(t, set.Message)

	c.send(proto.EventCreateRoom, proto.CreateRoomData{Title: "  "})
	var createErr proto.ErrorData
	c.expect(proto.EventCreateRoomError, &createErr)
	require.Equal(t, "Room title is required", createErr.Message)
}

func TestDisconnectLeavesRoom(t *testing.T) {
	srv, ts := startTestServer(t)
	info, _ := srv.Rooms().Create("Open", "", 50, "joon")

	c := dialClient(t, ts, "language=en")
	c.expect(proto.EventConnected, nil)
	c.send(proto.EventJoinRoomRequest, proto.JoinRoomData{RoomID: info.ID})
	c.expect(proto.EventRoomJoined, nil)
	require.Equal(t, 1, srv.Rooms().List()[0].UserCount)

	require.NoError(t, c.conn.Close(websocket.StatusNormalClosure, "bye"))
	require.Eventually(t, func() bool {
		list := srv.Rooms().List()
		return len(list) == 1 && list[0].UserCount == 0
	}, 2*time.Second, 10*time.Millisecond)
}
