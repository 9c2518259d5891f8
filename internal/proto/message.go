package proto

import (
	"encoding/json"
	"fmt"
)

// Envelope is the wire frame for every event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Message is a decoded inbound envelope handed to the negotiator.
type Message struct {
	Event string
	Data  json.RawMessage
}

// Decode unmarshals the payload into v. An empty payload leaves v untouched.
func (m Message) Decode(v any) error {
	if len(m.Data) == 0 || string(m.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", m.Event, err)
	}
	return nil
}

// NewMessage builds a Message from a typed payload.
func NewMessage(event string, payload any) (Message, error) {
	if payload == nil {
		return Message{Event: event}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s: %w", event, err)
	}
	return Message{Event: event, Data: raw}, nil
}

const (
	// client -> server
	EventCreateRoom      = "create_room"
	EventSetLanguage     = "set_language"
	EventJoinRoomRequest = "join_room_request"
	EventLeaveRoom       = "leave_room"

	// server -> client
	EventConnected        = "connected"
	EventCreateRoomError  = "create_room_error"
	EventRoomCreated      = "room_created"
	EventLanguageRequired = "language_required"
	EventLanguageSet      = "language_set"
	EventJoinRoomError    = "join_room_error"
	EventRoomJoined       = "room_joined"
	EventRoomLeft         = "room_left"
)

// CreateRoomData asks the server to create a room.
type CreateRoomData struct {
	Title     string `json:"title"`
	Password  string `json:"password"`
	MaxUsers  string `json:"max_users"`
	RequestID string `json:"request_id,omitempty"`
}

// SetLanguageData asks the server to store the user's language.
type SetLanguageData struct {
	Language  string `json:"language"`
	RequestID string `json:"request_id,omitempty"`
}

// JoinRoomData asks the server to enter a room.
type JoinRoomData struct {
	RoomID    string `json:"room_id"`
	Password  string `json:"password,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// User is the server's view of the connected user.
type User struct {
	Nickname string `json:"nickname,omitempty"`
	Language string `json:"language,omitempty"`
	Picture  string `json:"picture,omitempty"`
}

// ConnectedData seeds the client session right after connect.
type ConnectedData struct {
	Status string `json:"status,omitempty"`
	User   *User  `json:"user,omitempty"`
}

// ErrorData is the payload of every *_error event.
type ErrorData struct {
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// RoomCreatedData confirms room creation.
type RoomCreatedData struct {
	Success   bool   `json:"success,omitempty"`
	RoomID    string `json:"room_id"`
	RoomTitle string `json:"room_title,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// LanguageRequiredData is sent when the server refuses to proceed without a language.
type LanguageRequiredData struct {
	RequestID string `json:"request_id,omitempty"`
}

// LanguageSetData acknowledges set_language.
type LanguageSetData struct {
	Success   bool   `json:"success"`
	Language  string `json:"language,omitempty"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// RoomInfo is the room echoed back on a successful join.
type RoomInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
	MaxUsers  int    `json:"max_users,omitempty"`
}

// RoomJoinedData confirms or refuses a join.
type RoomJoinedData struct {
	Success   bool      `json:"success"`
	RoomInfo  *RoomInfo `json:"room_info,omitempty"`
	Users     []User    `json:"users,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// RoomSummary is one entry of the room catalog.
type RoomSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	HasPassword bool   `json:"has_password"`
	UserCount   int    `json:"user_count"`
	MaxUsers    int    `json:"max_users"`
	CreatedBy   string `json:"created_by,omitempty"`
}
