// Package handoff passes join context from the lobby to the chat page.
// Values live in a session-scoped key-value store that outlives the lobby
// process but not the browsing session.
package handoff

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Keys written by the lobby and read by the chat page.
const (
	KeyRoomID    = "room_id"
	KeyPassword  = "room_password"
	KeyLanguage  = "language"
	KeyWrittenAt = "written_at"
)

// ErrMissingRoom is returned when a handoff without a room id is written.
var ErrMissingRoom = errors.New("handoff: missing room id")

// Handoff is the context the chat page resumes from.
type Handoff struct {
	RoomID    string
	Password  string
	Language  string
	WrittenAt time.Time
}

// KV is a string key-value store scoped to one browsing session.
type KV interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	// Replace swaps the whole session for values in one step.
	Replace(ctx context.Context, values map[string]string) error
}

// Write records h in place of whatever the session held. An empty
// password or language leaves the key absent, so a value from an earlier
// join cannot survive. Either the whole record lands or none of it does.
func Write(ctx context.Context, kv KV, h Handoff) error {
	if h.RoomID == "" {
		return ErrMissingRoom
	}
	values := map[string]string{KeyRoomID: h.RoomID}
	if h.Password != "" {
		values[KeyPassword] = h.Password
	}
	if h.Language != "" {
		values[KeyLanguage] = h.Language
	}
	if !h.WrittenAt.IsZero() {
		values[KeyWrittenAt] = h.WrittenAt.UTC().Format(time.RFC3339Nano)
	}
	if err := kv.Replace(ctx, values); err != nil {
		return fmt.Errorf("replace handoff: %w", err)
	}
	return nil
}

// Read loads the handoff. ok is false when no room id was recorded.
func Read(ctx context.Context, kv KV) (Handoff, bool, error) {
	roomID, ok, err := kv.Get(ctx, KeyRoomID)
	if err != nil {
		return Handoff{}, false, fmt.Errorf("get room id: %w", err)
	}
	if !ok || roomID == "" {
		return Handoff{}, false, nil
	}

	h := Handoff{RoomID: roomID}
	if h.Password, _, err = kv.Get(ctx, KeyPassword); err != nil {
		return Handoff{}, false, fmt.Errorf("get password: %w", err)
	}
	if h.Language, _, err = kv.Get(ctx, KeyLanguage); err != nil {
		return Handoff{}, false, fmt.Errorf("get language: %w", err)
	}
	written, found, err := kv.Get(ctx, KeyWrittenAt)
	if err != nil {
		return Handoff{}, false, fmt.Errorf("get written_at: %w", err)
	}
	if found {
		if ts, parseErr := time.Parse(time.RFC3339Nano, written); parseErr == nil {
			h.WrittenAt = ts
		}
	}
	return h, true, nil
}

// Writer stamps and stores handoffs, and expires them after TTL on read.
type Writer struct {
	kv  KV
	ttl time.Duration
	now func() time.Time
}

// NewWriter builds a Writer. A zero ttl never expires entries.
func NewWriter(kv KV, ttl time.Duration) *Writer {
	return &Writer{kv: kv, ttl: ttl, now: time.Now}
}

// WriteHandoff records h with the current time.
func (w *Writer) WriteHandoff(ctx context.Context, h Handoff) error {
	h.WrittenAt = w.now()
	return Write(ctx, w.kv, h)
}

// ReadHandoff loads the handoff, clearing it if it outlived the session TTL.
func (w *Writer) ReadHandoff(ctx context.Context) (Handoff, bool, error) {
	h, ok, err := Read(ctx, w.kv)
	if err != nil || !ok {
		return h, ok, err
	}
	if w.ttl > 0 && !h.WrittenAt.IsZero() && w.now().Sub(h.WrittenAt) > w.ttl {
		if clearErr := w.kv.Clear(ctx); clearErr != nil {
			return Handoff{}, false, fmt.Errorf("clear expired handoff: %w", clearErr)
		}
		return Handoff{}, false, nil
	}
	return h, true, nil
}

// Clear ends the session's handoff.
func (w *Writer) Clear(ctx context.Context) error {
	return w.kv.Clear(ctx)
}
