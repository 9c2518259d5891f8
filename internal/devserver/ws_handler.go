package devserver

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/globalchat-lobby/internal/core"
	"github.com/vovakirdan/globalchat-lobby/internal/proto"
	"github.com/vovakirdan/globalchat-lobby/internal/utils"
)

// connection is one websocket client of the dev server.
type connection struct {
	id          string
	user        proto.User
	currentRoom string
	conn        *websocket.Conn
}

type wsHandler struct {
	rooms        *Rooms
	maxPerMinute int
	log          *zerolog.Logger
}

func (h *wsHandler) serve(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	cl := &connection{
		id:   utils.NewID(),
		user: userFromQuery(c),
		conn: conn,
	}
	defer func() {
		if cl.currentRoom != "" {
			h.rooms.Leave(cl.currentRoom, cl.id)
		}
	}()
	logger := h.log.With().Str("client_id", cl.id).Logger()
	logger.Info().Str("nickname", cl.user.Nickname).Str("language", cl.user.Language).Msg("client connected")

	err = h.readLoop(ctx, cl, &logger)

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			status = websocket.StatusInternalError
			reason = "read failed"
			logger.Warn().Err(err).Msg("ws connection closed with error")
		}
	}
	conn.Close(status, reason)
}

func userFromQuery(c *gin.Context) proto.User {
	user := proto.User{Nickname: strings.TrimSpace(c.Query("nickname"))}
	if user.Nickname == "" {
		user.Nickname = "guest-" + utils.NewID()[:8]
	}
	if lang, err := core.ParseLanguage(c.Query("language")); err == nil {
		user.Language = lang.Code()
	}
	return user
}

func (h *wsHandler) readLoop(ctx context.Context, cl *connection, logger *zerolog.Logger) error {
	limiter := newRateLimiter(h.maxPerMinute)
	stop := make(chan struct{})
	defer close(stop)
	limiter.startReset(stop)

	user := cl.user
	if err := h.send(ctx, cl, proto.EventConnected, proto.ConnectedData{Status: "success", User: &user}); err != nil {
		return err
	}

	for {
		var env proto.Envelope
		if err := wsjson.Read(ctx, cl.conn, &env); err != nil {
			return err
		}
		if !limiter.allow() {
			logger.Warn().Str("event", env.Event).Msg("rate limit exceeded, dropping event")
			continue
		}
		msg := proto.Message{Event: env.Event, Data: env.Data}
		if err := h.dispatch(ctx, cl, msg, logger); err != nil {
			return err
		}
	}
}

// dispatch handles one client event. Only write failures are returned.
func (h *wsHandler) dispatch(ctx context.Context, cl *connection, msg proto.Message, logger *zerolog.Logger) error {
	switch msg.Event {
	case proto.EventSetLanguage:
		var data proto.SetLanguageData
		if err := msg.Decode(&data); err != nil {
			logger.Debug().Err(err).Msg("bad set_language payload")
		}
		lang, err := core.ParseLanguage(data.Language)
		if err != nil {
			return h.send(ctx, cl, proto.EventLanguageSet, proto.LanguageSetData{
				Success:   false,
				Message:   "Unsupported language",
				RequestID: data.RequestID,
			})
		}
		cl.user.Language = lang.Code()
		logger.Info().Str("language", cl.user.Language).Msg("language set")
		return h.send(ctx, cl, proto.EventLanguageSet, proto.LanguageSetData{
			Success:   true,
			Language:  cl.user.Language,
			RequestID: data.RequestID,
		})

	case proto.EventCreateRoom:
		var data proto.CreateRoomData
		if err := msg.Decode(&data); err != nil {
			return h.send(ctx, cl, proto.EventCreateRoomError, proto.ErrorData{Message: "Invalid request"})
		}
		maxUsers, err := ParseMaxUsers(data.MaxUsers)
		if err != nil {
			return h.send(ctx, cl, proto.EventCreateRoomError, proto.ErrorData{Message: "Invalid max users", RequestID: data.RequestID})
		}
		info, err := h.rooms.Create(data.Title, data.Password, maxUsers, cl.user.Nickname)
		if err != nil {
			logger.Debug().Err(err).Msg("create room refused")
			text := "Failed to create room"
			if errors.Is(err, ErrTitleRequired) {
				text = "Room title is required"
			}
			return h.send(ctx, cl, proto.EventCreateRoomError, proto.ErrorData{Message: text, RequestID: data.RequestID})
		}
		return h.send(ctx, cl, proto.EventRoomCreated, proto.RoomCreatedData{
			Success:   true,
			RoomID:    info.ID,
			RoomTitle: info.Title,
			RequestID: data.RequestID,
		})

	case proto.EventJoinRoomRequest:
		var data proto.JoinRoomData
		if err := msg.Decode(&data); err != nil || data.RoomID == "" {
			return h.send(ctx, cl, proto.EventJoinRoomError, proto.ErrorData{Message: "Invalid request", RequestID: data.RequestID})
		}
		if cl.user.Language == "" {
			return h.send(ctx, cl, proto.EventLanguageRequired, proto.LanguageRequiredData{RequestID: data.RequestID})
		}
		info, users, err := h.rooms.Join(data.RoomID, data.Password, cl.id, cl.user)
		if err != nil {
			logger.Debug().Err(err).Str("room_id", data.RoomID).Msg("join refused")
			return h.send(ctx, cl, proto.EventJoinRoomError, proto.ErrorData{Message: joinErrorMessage(err), RequestID: data.RequestID})
		}
		if cl.currentRoom != "" && cl.currentRoom != info.ID {
			h.rooms.Leave(cl.currentRoom, cl.id)
		}
		cl.currentRoom = info.ID
		logger.Info().Str("room_id", info.ID).Msg("joined room")
		return h.send(ctx, cl, proto.EventRoomJoined, proto.RoomJoinedData{
			Success:   true,
			RoomInfo:  &info,
			Users:     users,
			RequestID: data.RequestID,
		})

	case proto.EventLeaveRoom:
		if cl.currentRoom == "" {
			return nil
		}
		roomID := cl.currentRoom
		h.rooms.Leave(roomID, cl.id)
		cl.currentRoom = ""
		return h.send(ctx, cl, proto.EventRoomLeft, proto.RoomInfo{ID: roomID})

	default:
		logger.Debug().Str("event", msg.Event).Msg("unknown event")
		return nil
	}
}

func (h *wsHandler) send(ctx context.Context, cl *connection, event string, payload any) error {
	msg, err := proto.NewMessage(event, payload)
	if err != nil {
		return err
	}
	return wsjson.Write(ctx, cl.conn, proto.Envelope{Event: msg.Event, Data: msg.Data})
}
