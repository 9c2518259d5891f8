package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/globalchat-lobby/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

// run walks the raw lobby protocol: create a room, set a language, join it.
func run() error {
	addr := flag.String("addr", "ws://localhost:5000/ws", "WebSocket address")
	title := flag.String("title", "smoke test", "room title to create")
	password := flag.String("password", "", "room password")
	language := flag.String("language", "english", "language to set")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(event string, payload any) error {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", event, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Envelope{Event: event, Data: raw}); err != nil {
			return fmt.Errorf("send %s: %w", event, err)
		}
		return nil
	}
	await := func(events ...string) (proto.Message, error) {
		for {
			var env proto.Envelope
			if err := wsjson.Read(ctx, conn, &env); err != nil {
				return proto.Message{}, fmt.Errorf("read: %w", err)
			}
			fmt.Printf("Received event=%s data=%s\n", env.Event, string(env.Data))
			for _, want := range events {
				if env.Event == want {
					return proto.Message{Event: env.Event, Data: env.Data}, nil
				}
			}
		}
	}

	if _, err := await(proto.EventConnected); err != nil {
		return err
	}

	if err := send(proto.EventCreateRoom, proto.CreateRoomData{Title: *title, Password: *password, MaxUsers: "50"}); err != nil {
		return err
	}
	msg, err := await(proto.EventRoomCreated, proto.EventCreateRoomError)
	if err != nil {
		return err
	}
	var created proto.RoomCreatedData
	if err := msg.Decode(&created); err != nil {
		return err
	}
	if msg.Event != proto.EventRoomCreated || created.RoomID == "" {
		return fmt.Errorf("create failed")
	}

	if err := send(proto.EventSetLanguage, proto.SetLanguageData{Language: *language}); err != nil {
		return err
	}
	if _, err := await(proto.EventLanguageSet); err != nil {
		return err
	}

	if err := send(proto.EventJoinRoomRequest, proto.JoinRoomData{RoomID: created.RoomID, Password: *password}); err != nil {
		return err
	}
	msg, err = await(proto.EventRoomJoined, proto.EventJoinRoomError, proto.EventLanguageRequired)
	if err != nil {
		return err
	}
	if msg.Event != proto.EventRoomJoined {
		return fmt.Errorf("join failed: %s", msg.Event)
	}

	fmt.Printf("Joined room %s\n", created.RoomID)
	return nil
}
